package publish

import (
	"time"

	"tweetqueue/internal/queue"
)

// Outcome is the per-draft result of a run.
type Outcome string

const (
	OutcomePublished          Outcome = "published"
	OutcomeFailed             Outcome = "failed"
	OutcomeSkippedDueToAuth   Outcome = "skipped_due_to_auth"
	OutcomeSkippedDueToCancel Outcome = "skipped_due_to_cancel"
)

// ItemResult records what happened to one snapshot draft.
type ItemResult struct {
	ID         string              `json:"id"`
	Outcome    Outcome             `json:"outcome"`
	Reason     queue.FailureReason `json:"reason,omitempty"`
	Detail     string              `json:"detail,omitempty"`
	ExternalID string              `json:"external_id,omitempty"`
	Attempts   int                 `json:"attempts,omitempty"`
}

// Report summarizes a finished run. Results follow snapshot order.
type Report struct {
	RunID          string       `json:"run_id"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	Results        []ItemResult `json:"results"`
	Cancelled      bool         `json:"cancelled,omitempty"`
	SessionExpired bool         `json:"session_expired,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// Outcomes indexes the results by draft id.
func (r Report) Outcomes() map[string]ItemResult {
	out := make(map[string]ItemResult, len(r.Results))
	for _, res := range r.Results {
		out[res.ID] = res
	}
	return out
}

// Counts tallies published, failed, and skipped drafts.
func (r Report) Counts() (published, failed, skipped int) {
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomePublished:
			published++
		case OutcomeFailed:
			failed++
		default:
			skipped++
		}
	}
	return published, failed, skipped
}

// Duration is the wall time of the run.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) skipRemaining(ids []string, outcome Outcome) {
	for _, id := range ids {
		r.Results = append(r.Results, ItemResult{ID: id, Outcome: outcome})
	}
}
