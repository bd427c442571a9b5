package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"tweetqueue/internal/api"
	"tweetqueue/internal/config"
	"tweetqueue/internal/logging"
	"tweetqueue/internal/notifications"
	"tweetqueue/internal/publish"
	"tweetqueue/internal/queue"
	"tweetqueue/internal/services"
	"tweetqueue/internal/session"
	"tweetqueue/internal/store"
)

// Deps are the components a daemon coordinates.
type Deps struct {
	Store     *store.Store
	Queue     *queue.Store
	Sessions  *session.Manager
	Scheduler *publish.Scheduler
	Notifier  notifications.Service
}

// Daemon coordinates the publish services and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	queue     *queue.Store
	sessions  *session.Manager
	scheduler *publish.Scheduler
	notifier  notifications.Service
	logPath   string

	lockPath string
	lock     *flock.Flock

	mu      sync.RWMutex
	service *api.Service
	api     *apiServer
	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Deps, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Queue == nil || deps.Sessions == nil || deps.Scheduler == nil {
		return nil, errors.New("daemon requires config, store, queue, sessions, and scheduler")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     deps.Store,
		queue:     deps.Queue,
		sessions:  deps.Sessions,
		scheduler: deps.Scheduler,
		notifier:  deps.Notifier,
		logPath:   logPath,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, builds the command surface, and starts the
// HTTP API. Publish runs inherit ctx.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tweetqueue daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	service := api.NewService(runCtx, d.queue, d.sessions, d.scheduler, d.logger)
	srv, err := newAPIServer(d.cfg, d, service, d.logger)
	if err == nil {
		err = srv.start(runCtx)
	}
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.mu.Lock()
	d.service = service
	d.api = srv
	d.cancel = cancel
	d.mu.Unlock()

	d.running.Store(true)
	d.logger.Info("tweetqueue daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop cancels any active publish run, waits for it to record its outcome,
// and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	cancel := d.cancel
	srv := d.api
	d.cancel = nil
	d.api = nil
	d.service = nil
	d.mu.Unlock()

	if d.scheduler.CancelRun() {
		d.logger.Info("cancelling active publish run", logging.String(logging.FieldEventType, "run_cancel_on_stop"))
	}
	if cancel != nil {
		cancel()
	}
	d.scheduler.Wait()
	srv.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report another instance"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("tweetqueue daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Dispatch runs a named command against the live command surface.
func (d *Daemon) Dispatch(ctx context.Context, name string, payload json.RawMessage) api.Result {
	d.mu.RLock()
	service := d.service
	d.mu.RUnlock()
	if service == nil {
		return api.Fail(services.Wrap(services.ErrInvalidState, "daemon", "dispatch", "daemon is not running", nil))
	}
	return service.Dispatch(ctx, name, payload)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon's per-run log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// APIAddress returns the HTTP API listen address, or "" when disabled.
func (d *Daemon) APIAddress() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() api.DaemonStatus {
	d.mu.RLock()
	service := d.service
	d.mu.RUnlock()

	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
	if service != nil {
		status.StatusResponse = service.Status()
	} else {
		status.Session = api.FromSession(d.sessions.Current())
		status.Counts = api.FromSummary(d.queue.Summary())
	}
	return status
}
