package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tweetqueue/internal/identity"
)

// Post is a post accepted by the Sandbox.
type Post struct {
	ID       string
	Author   string
	Text     string
	PostedAt time.Time
}

// Sandbox is an in-process platform that accepts tokens minted by the
// local identity provider. It rejects an author's duplicate text the way
// real platforms do.
type Sandbox struct {
	secret []byte

	mu    sync.Mutex
	posts []Post
	seq   int
}

// NewSandbox returns an empty sandbox verifying tokens with secret.
func NewSandbox(secret []byte) *Sandbox {
	return &Sandbox{secret: secret}
}

// Publish implements Client.
func (s *Sandbox) Publish(ctx context.Context, token, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", newError(KindTimeout, "request cancelled", err)
	}
	claims, err := identity.VerifyToken(s.secret, token)
	if err != nil {
		return "", newError(KindUnauthorized, "token rejected", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, post := range s.posts {
		if post.Author == claims.Subject && post.Text == text {
			return "", newError(KindRejected, "duplicate post", nil)
		}
	}
	s.seq++
	post := Post{
		ID:       fmt.Sprintf("sandbox-%d", s.seq),
		Author:   claims.Subject,
		Text:     text,
		PostedAt: time.Now().UTC(),
	}
	s.posts = append(s.posts, post)
	return post.ID, nil
}

// Posts returns every accepted post in publish order.
func (s *Sandbox) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Post(nil), s.posts...)
}
