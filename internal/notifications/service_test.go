package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tweetqueue/internal/config"
	"tweetqueue/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var requests []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventRunCompleted, notifications.Payload{"published": 1}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "run completed",
			event:         notifications.EventRunCompleted,
			payload:       notifications.Payload{"published": 3, "failed": 0, "duration": 4200 * time.Millisecond},
			expectTitle:   "tweetqueue - Publish Complete",
			expectMessage: "3 published, 0 failed in 4s",
			expectTags:    "tweetqueue,publish,completed",
		},
		{
			name:           "run completed with failures",
			event:          notifications.EventRunCompleted,
			payload:        notifications.Payload{"published": 1, "failed": 1, "skipped": 2, "duration": time.Minute},
			expectTitle:    "tweetqueue - Publish Complete (with errors)",
			expectMessage:  "1 published, 1 failed, 2 skipped in 1m0s",
			expectTags:     "tweetqueue,publish,completed",
			expectPriority: "high",
		},
		{
			name:           "session expired",
			event:          notifications.EventSessionExpired,
			payload:        notifications.Payload{"reason": "token revoked"},
			expectTitle:    "tweetqueue - Session Expired",
			expectMessage:  "Session expired: token revoked\nRun 'tweetqueue login' to resume publishing.",
			expectTags:     "tweetqueue,session,expired",
			expectPriority: "high",
		},
		{
			name:           "error",
			event:          notifications.EventError,
			payload:        notifications.Payload{"context": "publish run", "error": errors.New("disk full")},
			expectTitle:    "tweetqueue - Error",
			expectMessage:  "Error during publish run: disk full",
			expectTags:     "tweetqueue,error",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "tweetqueue - Test",
			expectMessage:  "Notification system test",
			expectTags:     "tweetqueue,test",
			expectPriority: "low",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests := newCaptureServer(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)

			if err := svc.Publish(context.Background(), tt.event, tt.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if len(*requests) != 1 {
				t.Fatalf("expected 1 request, got %d", len(*requests))
			}
			got := (*requests)[0]
			if got.title != tt.expectTitle || got.body != tt.expectMessage || got.tags != tt.expectTags || got.priority != tt.expectPriority {
				t.Fatalf("unexpected request: %+v", got)
			}
		})
	}
}

func TestNtfyServiceRespectsEventToggles(t *testing.T) {
	server, requests := newCaptureServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RunCompleted = false
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.EventRunCompleted, notifications.Payload{"published": 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(*requests) != 0 {
		t.Fatalf("disabled event should not be sent, got %d requests", len(*requests))
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusInternalServerError)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
