package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Tweet describes a draft in a transport-friendly format.
type Tweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	State         string `json:"state"`
	Position      int    `json:"position"`
	ExternalID    string `json:"externalId,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
	FailureDetail string `json:"failureDetail,omitempty"`
	Attempts      int    `json:"attempts"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
	PublishedAt   string `json:"publishedAt,omitempty"`
}

// QueueListResponse wraps the ordered queue for API responses.
type QueueListResponse struct {
	Items  []Tweet        `json:"items"`
	Counts map[string]int `json:"counts"`
}

// TweetResponse wraps a single draft.
type TweetResponse struct {
	Item Tweet `json:"item"`
}

// PruneResponse reports how many terminal drafts were deleted.
type PruneResponse struct {
	Removed int `json:"removed"`
}

// SessionView is the session without its token.
type SessionView struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// ItemOutcome is one draft's result within a run.
type ItemOutcome struct {
	ID         string `json:"id"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	Detail     string `json:"detail,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
}

// RunReport summarizes a finished publish run.
type RunReport struct {
	RunID          string        `json:"runId"`
	StartedAt      string        `json:"startedAt,omitempty"`
	FinishedAt     string        `json:"finishedAt,omitempty"`
	Published      int           `json:"published"`
	Failed         int           `json:"failed"`
	Skipped        int           `json:"skipped"`
	Cancelled      bool          `json:"cancelled,omitempty"`
	SessionExpired bool          `json:"sessionExpired,omitempty"`
	Error          string        `json:"error,omitempty"`
	Items          []ItemOutcome `json:"items"`
}

// PublishResponse is returned by publishTweet. Report is nil for async runs.
type PublishResponse struct {
	RunID  string     `json:"runId"`
	Async  bool       `json:"async"`
	Report *RunReport `json:"report,omitempty"`
}

// CancelResponse reports whether a run was active to cancel.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// RunStatus describes the scheduler.
type RunStatus struct {
	Running    bool       `json:"running"`
	RunID      string     `json:"runId,omitempty"`
	LastReport *RunReport `json:"lastReport,omitempty"`
}

// StatusResponse aggregates runtime information for API consumers.
type StatusResponse struct {
	Session SessionView    `json:"session"`
	Counts  map[string]int `json:"counts"`
	Run     RunStatus      `json:"run"`
}

// DaemonStatus adds process details to StatusResponse.
type DaemonStatus struct {
	StatusResponse
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	DatabasePath string `json:"databasePath"`
	LockFilePath string `json:"lockFilePath"`
	LogPath      string `json:"logPath,omitempty"`
}

// Request payloads accepted by Dispatch.
type (
	LoginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	CreateRequest struct {
		Text string `json:"text"`
	}
	IDRequest struct {
		ID string `json:"id"`
	}
	ReorderRequest struct {
		Order []string `json:"order"`
	}
	PruneRequest struct {
		States []string `json:"states"`
	}
	PublishRequest struct {
		Async bool `json:"async"`
	}
)

// Envelope is the decoded form of a Result on the client side.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// Decode unmarshals the envelope's data into out, or returns its error.
func (e Envelope) Decode(out any) error {
	if !e.Success {
		if e.Error == nil {
			return &ErrorBody{Kind: "internal", Code: "internal", Message: "command failed without detail"}
		}
		return e.Error
	}
	if out == nil || len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}
