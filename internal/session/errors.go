package session

import (
	"errors"
	"fmt"

	"tweetqueue/internal/services"
)

// Reason distinguishes authentication failures.
type Reason string

const (
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonNetwork            Reason = "network"
	ReasonUnauthenticated    Reason = "unauthenticated"
	ReasonSessionExpired     Reason = "session_expired"
)

// AuthError reports a credential or session problem.
type AuthError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %s: %v", e.Reason, msg, e.Err)
	}
	return fmt.Sprintf("auth %s: %s", e.Reason, msg)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, services.ErrAuth) match any AuthError.
func (e *AuthError) Is(target error) bool { return target == services.ErrAuth }

// ErrorKind implements services.ErrorClassifier.
func (e *AuthError) ErrorKind() string { return string(services.KindAuth) }

// SuggestedAction implements services.ActionAdvisor. An unreachable identity
// provider is worth retrying; everything else needs a new login.
func (e *AuthError) SuggestedAction() services.Action {
	if e.Reason == ReasonNetwork {
		return services.ActionRetryLater
	}
	return services.ActionReauthenticate
}

// NewAuthError builds an AuthError.
func NewAuthError(reason Reason, message string, err error) *AuthError {
	return &AuthError{Reason: reason, Message: message, Err: err}
}

// ReasonOf extracts the AuthError reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason, true
	}
	return "", false
}
