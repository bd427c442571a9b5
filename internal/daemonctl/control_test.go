package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"tweetqueue/internal/daemonctl"
	"tweetqueue/internal/session"
	"tweetqueue/internal/testsupport"
)

func TestReadPID(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	if pid, err := daemonctl.ReadPID(cfg.PIDPath()); err != nil || pid != 0 {
		t.Fatalf("missing pid file: %d %v", pid, err)
	}

	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{name: "valid", content: "4242\n", want: 4242},
		{name: "garbage", content: "abc", wantErr: true},
		{name: "negative", content: "-3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(cfg.PIDPath(), []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write pid: %v", err)
			}
			pid, err := daemonctl.ReadPID(cfg.PIDPath())
			if (err != nil) != tt.wantErr || pid != tt.want {
				t.Fatalf("ReadPID = %d, %v", pid, err)
			}
		})
	}
}

func TestForceKillProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	child := exec.Command("sleep", "30")
	if err := child.Start(); err != nil {
		t.Skipf("cannot start helper process: %v", err)
	}
	exited := make(chan struct{})
	go func() {
		_ = child.Wait()
		close(exited)
	}()

	pid := child.Process.Pid
	if err := os.WriteFile(cfg.PIDPath(), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if err := os.WriteFile(cfg.LockPath(), nil, 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	killed, err := daemonctl.ForceKillProcess(cfg, 0, time.Second)
	if err != nil || killed != pid {
		t.Fatalf("ForceKillProcess = %d, %v", killed, err)
	}
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("helper process still running")
	}
	for _, path := range []string{cfg.PIDPath(), cfg.LockPath()} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s removed, got %v", path, err)
		}
	}
}

func TestForceKillRefusesSelf(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonctl.ForceKillProcess(cfg, os.Getpid(), time.Millisecond); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonctl.StopAndTerminate(cfg, time.Millisecond); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	alive, pid, err := daemonctl.ProcessInfo(cfg.SocketPath())
	if alive || pid != 0 || err != nil {
		t.Fatalf("ProcessInfo = %v %d %v", alive, pid, err)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	status, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("snapshot without database: %v", err)
	}
	if status.Running || status.Session.Status != string(session.StatusUnauthenticated) || status.Counts["queued"] != 0 {
		t.Fatalf("unexpected empty snapshot %+v", status)
	}

	st := testsupport.MustOpenStore(t, cfg)
	q := testsupport.NewQueue(t, st)
	testsupport.AddDrafts(t, q, "one", "two")

	status, err = daemonctl.BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if status.Running || status.Counts["queued"] != 2 || status.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("unexpected offline snapshot %+v", status)
	}
}
