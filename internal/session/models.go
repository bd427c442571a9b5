package session

import (
	"time"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticated   Status = "authenticated"
	StatusExpired         Status = "expired"
)

// ParseStatus converts a persisted value into a Status.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusUnauthenticated, StatusAuthenticated, StatusExpired:
		return Status(value), true
	}
	return "", false
}

// Session is the current authentication state. Token is empty unless the
// session is Authenticated.
type Session struct {
	UserID    string    `json:"user_id,omitempty"`
	Token     string    `json:"-"`
	Status    Status    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Authenticated reports whether queue operations may proceed.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Token != ""
}

// Credentials are returned by an IdentityProvider on a successful login.
type Credentials struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}
