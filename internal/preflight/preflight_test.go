package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"tweetqueue/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckPlatform(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "ok", status: http.StatusOK, want: true},
		{name: "unauthorized still reachable", status: http.StatusUnauthorized, want: true},
		{name: "server error", status: http.StatusBadGateway, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agents := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				agents <- r.Header.Get("User-Agent")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			result := CheckPlatform(context.Background(), srv.URL+"/", "tweetqueue/test")
			if result.Passed != tt.want {
				t.Fatalf("Passed = %v, detail %s", result.Passed, result.Detail)
			}
			if agent := <-agents; agent != "tweetqueue/test" {
				t.Fatalf("unexpected user agent %q", agent)
			}
		})
	}
}

func TestCheckPlatform_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if result := CheckPlatform(context.Background(), url, ""); result.Passed {
		t.Fatal("expected failure for closed server")
	}
	if result := CheckPlatform(context.Background(), " ", ""); result.Passed || result.Detail != "missing base_url" {
		t.Fatalf("unexpected result for missing url: %+v", result)
	}
}

func TestCheckRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	if result := CheckRedis(context.Background(), addr, ""); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	mr.Close()
	if result := CheckRedis(context.Background(), addr, ""); result.Passed {
		t.Fatal("expected failure after redis closed")
	}
}

func TestCheckNtfy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckNtfy(context.Background(), srv.URL+"/drafts"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckNtfy(context.Background(), "not a url"); result.Passed {
		t.Fatal("expected failure for invalid topic url")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil for nil config, got %v", results)
	}
}

func TestRunAll_SandboxConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "missing")
	cfg.Platform.Mode = "sandbox"

	results := RunAll(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected directory checks only, got %d results", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Log directory" {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func TestRunAll_IncludesEnabledServices(t *testing.T) {
	mr := miniredis.RunT(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Platform.BaseURL = srv.URL
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RedisAddr = mr.Addr()
	cfg.Notifications.NtfyTopic = srv.URL + "/topic"

	results := RunAll(context.Background(), &cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}
