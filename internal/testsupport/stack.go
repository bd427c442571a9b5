package testsupport

import (
	"testing"
	"time"

	"tweetqueue/internal/config"
	"tweetqueue/internal/identity"
	"tweetqueue/internal/logging"
	"tweetqueue/internal/platform"
	"tweetqueue/internal/publish"
	"tweetqueue/internal/queue"
	"tweetqueue/internal/session"
	"tweetqueue/internal/store"
)

// Stack is a fully wired set of daemon components backed by a temp SQLite file.
type Stack struct {
	Config    *config.Config
	Store     *store.Store
	Queue     *queue.Store
	Sessions  *session.Manager
	Client    platform.Client
	Scheduler *publish.Scheduler
}

// NewStack wires the components the daemon runs with, using cfg.
func NewStack(t testing.TB, cfg *config.Config) *Stack {
	t.Helper()

	st := MustOpenStore(t, cfg)
	q := queue.New(st, queue.Options{MaxTextLength: cfg.Platform.MaxTextLength})
	provider, err := identity.New(cfg)
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}
	sessions := session.NewManager(provider, st, session.Options{
		LoginTimeout: cfg.Identity.LoginTimeoutDuration(),
		Logger:       logging.NewNop(),
	})
	client, closeClient, err := platform.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("platform.New: %v", err)
	}
	t.Cleanup(func() { _ = closeClient() })

	policy := publish.PolicyFromConfig(cfg)
	policy.AttemptTimeout = 2 * time.Second
	sched := publish.NewScheduler(q, sessions, client, publish.Options{
		Policy: policy,
		Logger: logging.NewNop(),
	})
	return &Stack{
		Config:    cfg,
		Store:     st,
		Queue:     q,
		Sessions:  sessions,
		Client:    client,
		Scheduler: sched,
	}
}
