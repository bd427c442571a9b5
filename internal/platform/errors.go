package platform

import (
	"fmt"
	"time"

	"tweetqueue/internal/services"
)

// Kind classifies a platform failure.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindRateLimited  Kind = "rate_limited"
	KindRejected     Kind = "rejected"
	KindTimeout      Kind = "timeout"
)

// Error is returned by every Client.
type Error struct {
	Kind       Kind
	RetryAfter time.Duration
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("platform %s", e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, services.ErrPlatform) match any platform error.
func (e *Error) Is(target error) bool { return target == services.ErrPlatform }

// ErrorKind implements services.ErrorClassifier.
func (e *Error) ErrorKind() string { return string(services.KindPlatform) }

// Transient reports whether retrying the same call may succeed.
func (e *Error) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindRateLimited
}

// SuggestedAction implements services.ActionAdvisor.
func (e *Error) SuggestedAction() services.Action {
	switch e.Kind {
	case KindUnauthorized:
		return services.ActionReauthenticate
	case KindRejected:
		return services.ActionFixInput
	default:
		return services.ActionRetryLater
	}
}

func newError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}
