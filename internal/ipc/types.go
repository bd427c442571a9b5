package ipc

import (
	"encoding/json"

	"tweetqueue/internal/api"
)

// serviceName is the JSON-RPC receiver name registered by the server.
const serviceName = "TweetQueue"

// CommandRequest runs one named command from the api command surface.
type CommandRequest struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CommandResponse is the command Result with its data left encoded.
type CommandResponse = api.Envelope

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse combines process, session, queue, and run status.
type StatusResponse = api.DaemonStatus

// StopRequest asks the daemon process to shut down.
type StopRequest struct{}

// StopResponse acknowledges a stop request.
type StopResponse struct {
	Stopping bool `json:"stopping"`
}

// LogTailRequest fetches daemon log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64    `json:"offset"`
	Limit      int      `json:"limit"`
	Follow     bool     `json:"follow"`
	WaitMillis int      `json:"wait_millis"`
	Match      []string `json:"match,omitempty"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports whether the test notification was sent.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
