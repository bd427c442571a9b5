package api

import (
	"time"

	"tweetqueue/internal/publish"
	"tweetqueue/internal/queue"
	"tweetqueue/internal/session"
)

// FromQueueItem converts a draft to its API representation.
func FromQueueItem(item queue.Item) Tweet {
	return Tweet{
		ID:            item.ID,
		Text:          item.Text,
		State:         string(item.State),
		Position:      item.Position,
		ExternalID:    item.ExternalID,
		FailureReason: string(item.FailureReason),
		FailureDetail: item.FailureDetail,
		Attempts:      item.Attempts,
		CreatedAt:     formatTime(item.CreatedAt),
		UpdatedAt:     formatTime(item.UpdatedAt),
		PublishedAt:   formatTime(item.PublishedAt),
	}
}

// FromQueueItems converts drafts preserving their order.
func FromQueueItems(items []queue.Item) []Tweet {
	out := make([]Tweet, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromSummary produces a string-keyed representation of queue counts.
func FromSummary(summary queue.Summary) map[string]int {
	return map[string]int{
		string(queue.StateQueued):     summary.Queued,
		string(queue.StatePublishing): summary.Publishing,
		string(queue.StatePublished):  summary.Published,
		string(queue.StateFailed):     summary.Failed,
	}
}

// FromSession drops the token and formats timestamps.
func FromSession(sess session.Session) SessionView {
	return SessionView{
		Status:    string(sess.Status),
		UserID:    sess.UserID,
		Reason:    sess.Reason,
		ExpiresAt: formatTime(sess.ExpiresAt),
	}
}

// FromReport converts a run report.
func FromReport(report publish.Report) RunReport {
	published, failed, skipped := report.Counts()
	out := RunReport{
		RunID:          report.RunID,
		StartedAt:      formatTime(report.StartedAt),
		FinishedAt:     formatTime(report.FinishedAt),
		Published:      published,
		Failed:         failed,
		Skipped:        skipped,
		Cancelled:      report.Cancelled,
		SessionExpired: report.SessionExpired,
		Error:          report.Error,
		Items:          make([]ItemOutcome, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		out.Items = append(out.Items, ItemOutcome{
			ID:         res.ID,
			Outcome:    string(res.Outcome),
			Reason:     string(res.Reason),
			Detail:     res.Detail,
			ExternalID: res.ExternalID,
			Attempts:   res.Attempts,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
