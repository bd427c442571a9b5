package ipc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tweetqueue/internal/api"
	"tweetqueue/internal/daemon"
	"tweetqueue/internal/ipc"
	"tweetqueue/internal/logging"
	"tweetqueue/internal/testsupport"
)

type harness struct {
	client  *ipc.Client
	logPath string
	stopped chan struct{}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	stack := testsupport.NewStack(t, cfg)
	logPath := filepath.Join(cfg.Paths.LogDir, "tweetqueued.log")
	d, err := daemon.New(cfg, daemon.Deps{
		Store:     stack.Store,
		Queue:     stack.Queue,
		Sessions:  stack.Sessions,
		Scheduler: stack.Scheduler,
	}, logging.NewNop(), logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	h := &harness{logPath: logPath, stopped: make(chan struct{})}
	socket := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socket, d, func() { close(h.stopped) }, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	h.client = client
	return h
}

func TestIPCQueueCommands(t *testing.T) {
	h := newHarness(t)
	c := h.client

	_, err := c.CreateTweet("before login")
	var body *api.ErrorBody
	if !errors.As(err, &body) || body.Code != "unauthenticated" {
		t.Fatalf("expected unauthenticated error body, got %v", err)
	}

	if _, err := c.Login(testsupport.Username, "wrong"); !errors.As(err, &body) || body.Code != "invalid_credentials" {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	view, err := c.Login(testsupport.Username, testsupport.Password)
	if err != nil || view.Status != "authenticated" || view.UserID != testsupport.Username {
		t.Fatalf("login: %+v %v", view, err)
	}

	var ids []string
	for _, text := range []string{"first", "second", "third"} {
		tweet, err := c.CreateTweet(text)
		if err != nil {
			t.Fatalf("create %q: %v", text, err)
		}
		ids = append(ids, tweet.ID)
	}

	list, err := c.ReorderTweets([]string{ids[2], ids[0], ids[1]})
	if err != nil || list.Items[0].ID != ids[2] {
		t.Fatalf("reorder: %+v %v", list, err)
	}
	list, err = c.ReverseTweets()
	if err != nil || list.Items[0].ID != ids[1] || list.Items[2].ID != ids[2] {
		t.Fatalf("reverse: %+v %v", list, err)
	}
	list, err = c.RemoveTweet(ids[0])
	if err != nil || len(list.Items) != 2 {
		t.Fatalf("remove: %+v %v", list, err)
	}

	published, err := c.PublishTweets(false)
	if err != nil || published.Report == nil || published.Report.Published != 2 {
		t.Fatalf("publish: %+v %v", published, err)
	}
	run, err := c.PublishStatus()
	if err != nil || run.Running || run.LastReport == nil || run.LastReport.RunID != published.RunID {
		t.Fatalf("publish status: %+v %v", run, err)
	}
	cancelled, err := c.CancelPublish()
	if err != nil || cancelled.Cancelled {
		t.Fatalf("cancel without run: %+v %v", cancelled, err)
	}

	retried, err := c.RetryTweet(ids[1])
	if err != nil || retried.State != "queued" || retried.Text != "second" {
		t.Fatalf("retry: %+v %v", retried, err)
	}
	removed, err := c.PruneTweets(nil)
	if err != nil || removed != 2 {
		t.Fatalf("prune: %d %v", removed, err)
	}
	list, err = c.ListTweets()
	if err != nil || len(list.Items) != 1 || list.Counts["queued"] != 1 {
		t.Fatalf("list: %+v %v", list, err)
	}

	if _, err := c.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if view, err := c.Session(); err != nil || view.Status != "unauthenticated" {
		t.Fatalf("session after logout: %+v %v", view, err)
	}
}

func TestIPCUnknownCommand(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.Command("explode", nil)
	if err != nil {
		t.Fatalf("transport error: %v", err)
	}
	if resp.Success || resp.Error == nil || resp.Error.Kind != "not_found" {
		t.Fatalf("unexpected envelope %+v", resp)
	}
}

func TestIPCStatusAndStop(t *testing.T) {
	h := newHarness(t)

	status, err := h.client.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() || status.LogPath != h.logPath {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Session.Status != "unauthenticated" {
		t.Fatalf("unexpected session %+v", status.Session)
	}

	notify, err := h.client.TestNotification()
	if err != nil || notify.Sent {
		t.Fatalf("test notification: %+v %v", notify, err)
	}

	resp, err := h.client.Stop()
	if err != nil || !resp.Stopping {
		t.Fatalf("stop: %+v %v", resp, err)
	}
	select {
	case <-h.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback not invoked")
	}
}

func TestIPCLogTail(t *testing.T) {
	h := newHarness(t)
	content := "INFO draft created item_id=a\nINFO draft created item_id=b\nINFO published item_id=b\n"
	if err := os.WriteFile(h.logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	resp, err := h.client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 10, Match: []string{"item_id=b"}})
	if err != nil {
		t.Fatalf("log tail: %v", err)
	}
	if len(resp.Lines) != 2 || resp.Offset != int64(len(content)) {
		t.Fatalf("unexpected tail %+v", resp)
	}

	resp, err = h.client.LogTail(ipc.LogTailRequest{Offset: resp.Offset, Follow: true, WaitMillis: 50})
	if err != nil || len(resp.Lines) != 0 {
		t.Fatalf("expected empty follow result, got %+v %v", resp, err)
	}
}
