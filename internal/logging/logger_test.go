package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tweetqueue/internal/config"
	"tweetqueue/internal/logging"
	"tweetqueue/internal/services"
)

func tempLogPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.log")
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesRunFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "debug"
	logPath := filepath.Join(t.TempDir(), "logs", "run.log")

	logger, err := logging.NewFromConfig(&cfg, logPath)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug message")

	if !strings.Contains(readLog(t, logPath), "debug message") {
		t.Fatal("expected debug line in run log file")
	}
}

func TestConsoleLoggerSourceDependsOnLevel(t *testing.T) {
	tests := []struct {
		level      string
		wantSource bool
	}{
		{"info", false},
		{"debug", true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			path := tempLogPath(t)
			logger, err := logging.New(logging.Options{
				Format:           "console",
				Level:            tt.level,
				OutputPaths:      []string{path},
				ErrorOutputPaths: []string{path},
			})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			logger.Info("hello")
			got := strings.Contains(readLog(t, path), ".go:")
			if got != tt.wantSource {
				t.Fatalf("source present=%v, want %v", got, tt.wantSource)
			}
		})
	}
}

func TestConsoleLoggerLiftsComponentAndItem(t *testing.T) {
	path := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithItemID(context.Background(), "0123456789abcdef")
	scoped := logging.WithContext(ctx, logging.NewComponentLogger(logger, "publish"))
	scoped.Info("draft published", logging.Int("attempts", 2), logging.String("detail", "two words"))

	line := readLog(t, path)
	if !strings.Contains(line, "INFO  publish [01234567]: draft published") {
		t.Fatalf("unexpected console prefix: %q", line)
	}
	if !strings.Contains(line, "attempts=2") || !strings.Contains(line, `detail="two words"`) {
		t.Fatalf("missing attributes: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be lifted out of attrs: %q", line)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	path := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(services.WithRequestID(context.Background(), "req-1"), "run-9")
	logging.WithContext(ctx, logger).Warn("run slow")

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, path))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "run slow" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry[logging.FieldRunID] != "run-9" || entry[logging.FieldCorrelationID] != "req-1" {
		t.Fatalf("context fields missing: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	path := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "notify failed", "notification_failed", logging.Error(errors.New("boom")))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, path))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected %s in %v", key, entry)
		}
	}
	if entry[logging.FieldEventType] != "notification_failed" {
		t.Fatalf("unexpected event type: %v", entry[logging.FieldEventType])
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "tweetqueued-old.log")
	fresh := filepath.Join(dir, "tweetqueued-new.log")
	keep := filepath.Join(dir, "tweetqueued-current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, keep, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, keep, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 7, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "tweetqueued-*.log",
		Exclude: []string{keep},
	})
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, err=%v", err)
	}
	for _, path := range []string{fresh, keep, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}
