package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuth          = errors.New("authentication error")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrPlatform      = errors.New("platform error")
	ErrRunInProgress = errors.New("publish run in progress")
	ErrQueueLocked   = errors.New("queue locked")
	ErrPersistence   = errors.New("persistence error")
	ErrConfiguration = errors.New("configuration error")
)

// Kind is the coarse error class reported to command callers.
type Kind string

const (
	KindAuth          Kind = "auth"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindInvalidState  Kind = "invalid_state"
	KindPlatform      Kind = "platform"
	KindRunInProgress Kind = "run_in_progress"
	KindQueueLocked   Kind = "queue_locked"
	KindPersistence   Kind = "persistence"
	KindConfiguration Kind = "configuration"
	KindInternal      Kind = "internal"
)

// Action tells the caller what to do about a failed command.
type Action string

const (
	ActionFixInput       Action = "fix_input"
	ActionRetryLater     Action = "retry_later"
	ActionReauthenticate Action = "reauthenticate"
)

// ErrorClassifier allows typed errors to declare their classification.
// ErrorKind returns one of the Kind values as a string.
type ErrorClassifier interface {
	ErrorKind() string
}

// ActionAdvisor lets typed errors override the default action for their kind.
type ActionAdvisor interface {
	SuggestedAction() Action
}

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrPersistence
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf classifies err. Typed errors implementing ErrorClassifier win over
// sentinel markers; anything unrecognised is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		if kind := Kind(strings.TrimSpace(classifier.ErrorKind())); kind != "" {
			return kind
		}
	}
	switch {
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrPlatform):
		return KindPlatform
	case errors.Is(err, ErrRunInProgress):
		return KindRunInProgress
	case errors.Is(err, ErrQueueLocked):
		return KindQueueLocked
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindInternal
	}
}

// ActionFor maps err to the action a caller should take.
func ActionFor(err error) Action {
	if err == nil {
		return ""
	}
	var advisor ActionAdvisor
	if errors.As(err, &advisor) {
		if action := advisor.SuggestedAction(); action != "" {
			return action
		}
	}
	switch KindOf(err) {
	case KindAuth:
		return ActionReauthenticate
	case KindValidation, KindNotFound, KindInvalidState, KindConfiguration:
		return ActionFixInput
	default:
		return ActionRetryLater
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
