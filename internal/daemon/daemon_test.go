package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"tweetqueue/internal/api"
	"tweetqueue/internal/config"
	"tweetqueue/internal/daemon"
	"tweetqueue/internal/logging"
	"tweetqueue/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	stack := testsupport.NewStack(t, cfg)
	d, err := daemon.New(cfg, daemon.Deps{
		Store:     stack.Store,
		Queue:     stack.Queue,
		Sessions:  stack.Sessions,
		Scheduler: stack.Scheduler,
	}, logging.NewNop(), "")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)
	ctx := context.Background()

	if res := d.Dispatch(ctx, api.CommandSession, nil); res.Success || res.Error.Kind != "invalid_state" {
		t.Fatalf("expected dispatch to fail before start, got %+v", res)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running || status.LockFilePath != cfg.LockPath() || status.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("unexpected status %+v", status)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	sameDir := newDaemonSharingLock(t, cfg)
	if err := sameDir.Start(ctx); err == nil {
		t.Fatal("expected lock contention with a daemon on the same state directory")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
}

// newDaemonSharingLock builds a second daemon over cfg's state directory.
func newDaemonSharingLock(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	clone := testsupport.NewConfig(t)
	clone.Paths.StateDir = cfg.Paths.StateDir
	return newDaemon(t, clone)
}

func TestHTTPAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	base := "http://" + d.APIAddress()
	if d.APIAddress() == "" {
		t.Fatal("api server not listening")
	}

	call := func(method, path, token string, body any) (*http.Response, api.Envelope) {
		t.Helper()
		var reader *bytes.Reader
		if body != nil {
			raw, _ := json.Marshal(body)
			reader = bytes.NewReader(raw)
		} else {
			reader = bytes.NewReader(nil)
		}
		req, err := http.NewRequest(method, base+path, reader)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		defer resp.Body.Close()
		var env api.Envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return resp, env
	}

	if resp, _ := call(http.MethodGet, "/api/status", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp, _ := call(http.MethodGet, "/api/status", "wrong", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", resp.StatusCode)
	}

	resp, env := call(http.MethodGet, "/api/queue", "secret", nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "unauthenticated" {
		t.Fatalf("expected queue to require login, got %d %+v", resp.StatusCode, env.Error)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	resp, env = call(http.MethodPost, "/api/commands/login", "secret", api.LoginRequest{Username: testsupport.Username, Password: "bad"})
	if resp.StatusCode != http.StatusUnauthorized || env.Error.Code != "invalid_credentials" {
		t.Fatalf("unexpected bad login response %d %+v", resp.StatusCode, env.Error)
	}
	resp, _ = call(http.MethodPost, "/api/commands/login", "secret", api.LoginRequest{Username: testsupport.Username, Password: testsupport.Password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	resp, env = call(http.MethodPost, "/api/commands/createTweet", "secret", api.CreateRequest{Text: "hello from http"})
	var created api.TweetResponse
	if resp.StatusCode != http.StatusOK || env.Decode(&created) != nil || created.Item.Text != "hello from http" {
		t.Fatalf("create failed: %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = call(http.MethodPost, "/api/commands/removeTweet", "secret", api.IDRequest{ID: "missing"})
	if resp.StatusCode != http.StatusNotFound || env.Error.Kind != "not_found" {
		t.Fatalf("expected 404, got %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = call(http.MethodPost, "/api/commands/publishTweet", "secret", api.PublishRequest{})
	var published api.PublishResponse
	if resp.StatusCode != http.StatusOK || env.Decode(&published) != nil || published.Report == nil || published.Report.Published != 1 {
		t.Fatalf("publish failed: %d %+v", resp.StatusCode, env.Error)
	}

	resp, _ = call(http.MethodGet, "/api/commands/listTweets", "secret", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET command, got %d", resp.StatusCode)
	}

	statusResp, err := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	statusResp.Header.Set("Authorization", "Bearer secret")
	raw, err := http.DefaultClient.Do(statusResp)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer raw.Body.Close()
	var status api.DaemonStatus
	if err := json.NewDecoder(raw.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.Session.Status != "authenticated" || status.Counts["published"] != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Run.LastReport == nil || status.Run.LastReport.Published != 1 {
		t.Fatalf("expected last report in status, got %+v", status.Run)
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	d := newDaemon(t, testsupport.NewConfig(t))
	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent || message != "ntfy topic not configured" {
		t.Fatalf("unexpected result %v %q %v", sent, message, err)
	}
}
