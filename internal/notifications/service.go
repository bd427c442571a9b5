package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tweetqueue/internal/config"
)

const userAgent = "tweetqueue/0.1.0"

// Event names a notification kind.
type Event string

const (
	EventRunCompleted   Event = "run_completed"
	EventSessionExpired Event = "session_expired"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event details. Known keys per event:
//
//	run_completed:   published, failed, skipped (int), duration (time.Duration), cancelled (bool)
//	session_expired: reason (string)
//	error:           context (string), error (error)
type Payload map[string]any

// Service publishes notification events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// A nil config yields the no-op service.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventRunCompleted:   cfg.Notifications.RunCompleted,
			EventSessionExpired: cfg.Notifications.SessionExpired,
			EventError:          cfg.Notifications.Errors,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunCompleted:
		published := intValue(payload, "published")
		failed := intValue(payload, "failed")
		skipped := intValue(payload, "skipped")
		duration := durationValue(payload, "duration").Round(time.Second)
		if duration < 0 {
			duration = 0
		}
		title := "tweetqueue - Publish Complete"
		priority := ""
		switch {
		case boolValue(payload, "cancelled"):
			title = "tweetqueue - Publish Cancelled"
		case failed > 0 || skipped > 0:
			title = "tweetqueue - Publish Complete (with errors)"
			priority = "high"
		}
		body := fmt.Sprintf("%d published, %d failed", published, failed)
		if skipped > 0 {
			body += fmt.Sprintf(", %d skipped", skipped)
		}
		body += fmt.Sprintf(" in %s", duration)
		return message{title: title, body: body, tags: []string{"tweetqueue", "publish", "completed"}, priority: priority}, true
	case EventSessionExpired:
		reason := strings.TrimSpace(stringValue(payload, "reason"))
		if reason == "" {
			reason = "platform rejected the session token"
		}
		return message{
			title:    "tweetqueue - Session Expired",
			body:     fmt.Sprintf("Session expired: %s\nRun 'tweetqueue login' to resume publishing.", reason),
			tags:     []string{"tweetqueue", "session", "expired"},
			priority: "high",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("Error")
		if label := strings.TrimSpace(stringValue(payload, "context")); label != "" {
			builder.WriteString(" during ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if err, ok := payload["error"].(error); ok && err != nil {
			builder.WriteString(strings.TrimSpace(err.Error()))
		} else {
			builder.WriteString("unknown")
		}
		return message{title: "tweetqueue - Error", body: builder.String(), tags: []string{"tweetqueue", "error"}, priority: "high"}, true
	case EventTest:
		return message{title: "tweetqueue - Test", body: "Notification system test", tags: []string{"tweetqueue", "test"}, priority: "low"}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func intValue(p Payload, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func boolValue(p Payload, key string) bool {
	v, _ := p[key].(bool)
	return v
}

func stringValue(p Payload, key string) string {
	v, _ := p[key].(string)
	return v
}

func durationValue(p Payload, key string) time.Duration {
	v, _ := p[key].(time.Duration)
	return v
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
