package queue

import (
	"strings"
	"time"
)

// State represents the lifecycle of a draft.
type State string

const (
	StateQueued     State = "queued"
	StatePublishing State = "publishing"
	StatePublished  State = "published"
	StateFailed     State = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StatePublished || s == StateFailed
}

// ParseState converts a persisted or user supplied value into a State.
func ParseState(value string) (State, bool) {
	switch State(strings.ToLower(strings.TrimSpace(value))) {
	case StateQueued:
		return StateQueued, true
	case StatePublishing:
		return StatePublishing, true
	case StatePublished:
		return StatePublished, true
	case StateFailed:
		return StateFailed, true
	}
	return "", false
}

// FailureReason records why a draft ended up Failed.
type FailureReason string

const (
	FailureTimeout      FailureReason = "timeout"
	FailureRateLimited  FailureReason = "rate_limited"
	FailureRejected     FailureReason = "rejected"
	FailureUnauthorized FailureReason = "unauthorized"
	FailureCancelled    FailureReason = "cancelled"
	FailureUnknown      FailureReason = "unknown"
)

// InterruptedDetail is recorded on drafts found Publishing at startup.
const InterruptedDetail = "daemon stopped before the platform confirmed the post; verify and re-publish manually"

// UnsavedDetail is recorded on a draft whose final state could not be saved.
const UnsavedDetail = "the result could not be saved; verify on the platform and re-publish manually"

// Item is one draft. Position is -1 for anything that is not Queued.
type Item struct {
	ID            string        `json:"id"`
	Seq           int64         `json:"seq"`
	Text          string        `json:"text"`
	State         State         `json:"state"`
	Position      int           `json:"position"`
	ExternalID    string        `json:"external_id,omitempty"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`
	FailureDetail string        `json:"failure_detail,omitempty"`
	Attempts      int           `json:"attempts"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	PublishedAt   time.Time     `json:"published_at,omitzero"`
}

// Summary counts drafts per state.
type Summary struct {
	Queued     int `json:"queued"`
	Publishing int `json:"publishing"`
	Published  int `json:"published"`
	Failed     int `json:"failed"`
}
