package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tweetqueue/internal/config"
	"tweetqueue/internal/daemon"
	"tweetqueue/internal/identity"
	"tweetqueue/internal/ipc"
	"tweetqueue/internal/logging"
	"tweetqueue/internal/notifications"
	"tweetqueue/internal/platform"
	"tweetqueue/internal/preflight"
	"tweetqueue/internal/publish"
	"tweetqueue/internal/queue"
	"tweetqueue/internal/session"
	"tweetqueue/internal/store"
	"tweetqueue/internal/telemetry"
)

const (
	logPrefix      = "tweetqueued"
	retentionSweep = 24 * time.Hour
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the tweetqueue daemon and blocks until it receives SIGINT or
// SIGTERM, or a client asks it to stop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("%s-%s.log", logPrefix, runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	shutdownTracing, err := telemetry.Setup(signalCtx, cfg.Telemetry)
	if err != nil {
		logging.WarnWithContext(logger, "tracing disabled", "telemetry_setup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "publish runs are not traced"),
			logging.String(logging.FieldErrorHint, "check telemetry.otlp_endpoint"))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	d, closePlatform, err := build(signalCtx, cfg, logger, logPath)
	if err != nil {
		logger.Error("daemon setup failed", logging.Error(err), logging.String(logging.FieldEventType, "daemon_setup_failed"))
		return err
	}
	defer closePlatform()
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	// The pid file and log pointer belong to the instance holding the lock.
	if err := writePIDFile(cfg.PIDPath()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(cfg.PIDPath())
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s.log link: %v\n", logPrefix, err)
	}
	cleanupLogs(logger, cfg, logPath)
	reportPreflight(signalCtx, logger, cfg)

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, stop, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}

	group, groupCtx := errgroup.WithContext(signalCtx)
	group.Go(func() error {
		ipcServer.Serve()
		<-groupCtx.Done()
		ipcServer.Close()
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		d.Stop()
		return nil
	})
	group.Go(func() error {
		ticker := time.NewTicker(retentionSweep)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				cleanupLogs(logger, cfg, logPath)
			}
		}
	})

	logger.Info("tweetqueue daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("socket", cfg.SocketPath()),
		logging.String("api", d.APIAddress()),
		logging.String("log_path", logPath),
	)
	err = group.Wait()
	logger.Info("tweetqueue daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return err
}

// build restores persisted state and wires the daemon's components.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, logPath string) (*daemon.Daemon, func() error, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open state database: %w", err)
	}
	fail := func(err error) (*daemon.Daemon, func() error, error) {
		_ = st.Close()
		return nil, nil, err
	}

	sess, items, err := st.Load(ctx)
	if err != nil {
		return fail(fmt.Errorf("load state: %w", err))
	}
	q := queue.New(st, queue.Options{MaxTextLength: cfg.Platform.MaxTextLength})
	if err := q.Restore(items); err != nil {
		return fail(err)
	}
	reconciled, err := q.ReconcileInterrupted(ctx)
	if err != nil {
		return fail(fmt.Errorf("reconcile interrupted drafts: %w", err))
	}
	for _, id := range reconciled {
		logging.WarnWithContext(logger, "draft interrupted mid-publish", "draft_reconciled",
			logging.String(logging.FieldItemID, id),
			logging.String(logging.FieldImpact, "the draft may or may not have reached the platform"),
			logging.String(logging.FieldErrorHint, "check the platform, then retry or prune the draft"))
	}

	provider, err := identity.New(cfg)
	if err != nil {
		return fail(err)
	}
	sessions := session.NewManager(provider, st, session.Options{
		LoginTimeout: cfg.Identity.LoginTimeoutDuration(),
		Logger:       logger,
	})
	if err := sessions.Restore(ctx, sess); err != nil {
		return fail(err)
	}

	client, closeClient, err := platform.New(cfg, logger)
	if err != nil {
		return fail(err)
	}
	notifier := notifications.NewService(cfg)
	scheduler := publish.NewScheduler(q, sessions, client, publish.Options{
		Policy:   publish.PolicyFromConfig(cfg),
		Notifier: notifier,
		Logger:   logger,
	})

	d, err := daemon.New(cfg, daemon.Deps{
		Store:     st,
		Queue:     q,
		Sessions:  sessions,
		Scheduler: scheduler,
		Notifier:  notifier,
	}, logger, logPath)
	if err != nil {
		_ = closeClient()
		return fail(err)
	}
	logger.Info("state restored",
		logging.String(logging.FieldEventType, "state_restored"),
		logging.String("session_status", string(sessions.Current().Status)),
		logging.Int("drafts", len(items)),
		logging.Int("reconciled", len(reconciled)),
	)
	return d, closeClient, nil
}

func reportPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, check := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldImpact, "publish runs that need this dependency will fail"),
			logging.String(logging.FieldErrorHint, "run `tweetqueue status` for details"))
	}
}

func cleanupLogs(logger *slog.Logger, cfg *config.Config, current string) {
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: logPrefix + "-*.log", Exclude: []string{current}},
	)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logPrefix+".log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
