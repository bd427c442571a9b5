package identity

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tweetqueue/internal/session"
)

// HashCost is the bcrypt cost used by HashPassword.
const HashCost = 12

// HashPassword produces the bcrypt hash stored in identity.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// LocalProvider authenticates the single configured user.
type LocalProvider struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewLocalProvider builds a provider for one user.
func NewLocalProvider(username, passwordHash, secret string, ttl time.Duration) *LocalProvider {
	return &LocalProvider{
		username:     username,
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
		now:          time.Now,
	}
}

// Authenticate implements session.IdentityProvider.
func (p *LocalProvider) Authenticate(ctx context.Context, username, password string) (session.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return session.Credentials{}, session.NewAuthError(session.ReasonNetwork, "login cancelled", err)
	}
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(p.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(p.passwordHash, []byte(password))
	if !userMatch || passErr != nil {
		return session.Credentials{}, session.NewAuthError(session.ReasonInvalidCredentials, "username or password is incorrect", nil)
	}

	token, expiresAt, err := MintToken(p.secret, p.username, p.ttl, p.now())
	if err != nil {
		return session.Credentials{}, fmt.Errorf("mint session token: %w", err)
	}
	return session.Credentials{UserID: p.username, Token: token, ExpiresAt: expiresAt}, nil
}
