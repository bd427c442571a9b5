package publish

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tweetqueue/internal/logging"
	"tweetqueue/internal/notifications"
	"tweetqueue/internal/platform"
	"tweetqueue/internal/queue"
	"tweetqueue/internal/services"
	"tweetqueue/internal/session"
	"tweetqueue/internal/telemetry"
)

// Queue is the slice of queue.Store a run needs.
type Queue interface {
	BeginRun() []string
	EndRun()
	MarkPublishing(ctx context.Context, id string) (queue.Item, error)
	MarkPublished(ctx context.Context, id, externalID string, attempts int) (queue.Item, error)
	MarkFailed(ctx context.Context, id string, reason queue.FailureReason, detail string, attempts int) (queue.Item, error)
}

// Sessions is the slice of session.Manager a run needs.
type Sessions interface {
	RequireAuthenticated() (session.Session, error)
	Invalidate(ctx context.Context, reason string) error
}

// Options tunes a Scheduler. Zero values fall back to real clocks, a no-op
// notifier, and the global tracer provider.
type Options struct {
	Policy         Policy
	Notifier       notifications.Service
	TracerProvider trace.TracerProvider
	Logger         *slog.Logger
	Now            func() time.Time
	After          func(time.Duration) <-chan time.Time
	NewRunID       func() string
}

// Scheduler runs publish passes over the queue, one at a time.
type Scheduler struct {
	queue    Queue
	sessions Sessions
	client   platform.Client
	notifier notifications.Service
	policy   Policy
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
	newRunID func() string

	mu        sync.Mutex
	running   bool
	runID     string
	cancelCh  chan struct{}
	cancelled bool
	last      *Report

	wg sync.WaitGroup
}

// NewScheduler wires a scheduler.
func NewScheduler(q Queue, sessions Sessions, client platform.Client, opts Options) *Scheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.After == nil {
		opts.After = time.After
	}
	if opts.NewRunID == nil {
		opts.NewRunID = func() string { return uuid.NewString() }
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewService(nil)
	}
	return &Scheduler{
		queue:    q,
		sessions: sessions,
		client:   client,
		notifier: opts.Notifier,
		policy:   opts.Policy,
		tracer:   telemetry.Tracer(opts.TracerProvider),
		logger:   logging.NewComponentLogger(opts.Logger, "publish"),
		now:      opts.Now,
		after:    opts.After,
		newRunID: opts.NewRunID,
	}
}

// Run publishes every Queued draft and blocks until the run ends. The
// returned error is non-nil only when the run could not start or a state
// write failed; per-draft failures are reported in the Report.
func (s *Scheduler) Run(ctx context.Context) (Report, error) {
	runID, cancelCh, err := s.begin()
	if err != nil {
		return Report{}, err
	}
	return s.execute(ctx, runID, cancelCh)
}

// Start launches a run in the background and returns its id. ctx must
// outlive the caller's request; the daemon passes its root context.
func (s *Scheduler) Start(ctx context.Context) (string, error) {
	runID, cancelCh, err := s.begin()
	if err != nil {
		return "", err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.execute(ctx, runID, cancelCh); err != nil {
			logging.ErrorWithContext(s.logger, "background publish run aborted", "run_aborted",
				logging.String(logging.FieldRunID, runID),
				logging.Error(err),
			)
		}
	}()
	return runID, nil
}

// CancelRun asks the active run to stop at its next retry boundary. It
// reports whether a run was active.
func (s *Scheduler) CancelRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	if !s.cancelled {
		s.cancelled = true
		close(s.cancelCh)
		s.logger.Info("publish run cancellation requested",
			logging.String(logging.FieldRunID, s.runID),
			logging.String(logging.FieldEventType, "run_cancel_requested"),
		)
	}
	return true
}

// Running returns the active run id.
func (s *Scheduler) Running() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID, s.running
}

// LastReport returns the report of the most recently finished run.
func (s *Scheduler) LastReport() (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Report{}, false
	}
	return *s.last, true
}

// Wait blocks until background runs started with Start have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) begin() (string, chan struct{}, error) {
	if _, err := s.sessions.RequireAuthenticated(); err != nil {
		return "", nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return "", nil, services.Wrap(services.ErrRunInProgress, "publish", "start",
			"run "+s.runID+" is still active", nil)
	}
	s.running = true
	s.cancelled = false
	s.runID = s.newRunID()
	s.cancelCh = make(chan struct{})
	return s.runID, s.cancelCh, nil
}

func (s *Scheduler) execute(ctx context.Context, runID string, cancelCh <-chan struct{}) (report Report, err error) {
	ctx = services.WithRunID(ctx, runID)
	ctx, span := s.tracer.Start(ctx, "publish.run", trace.WithAttributes(attribute.String("run.id", runID)))
	logger := logging.WithContext(ctx, s.logger)

	ids := s.queue.BeginRun()
	report = Report{RunID: runID, StartedAt: s.now().UTC()}
	defer func() {
		s.queue.EndRun()
		report.FinishedAt = s.now().UTC()
		if err != nil {
			report.Error = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, "run aborted")
		}
		published, failed, skipped := report.Counts()
		span.SetAttributes(
			attribute.Int("run.published", published),
			attribute.Int("run.failed", failed),
			attribute.Int("run.skipped", skipped),
			attribute.Bool("run.cancelled", report.Cancelled),
		)
		span.End()
		s.finish(ctx, logger, report, err)
	}()

	logger.Info("publish run started",
		logging.Int("drafts", len(ids)),
		logging.String(logging.FieldEventType, "run_started"),
	)

	for i, id := range ids {
		if isCancelled(ctx, cancelCh) {
			report.Cancelled = true
			report.skipRemaining(ids[i:], OutcomeSkippedDueToCancel)
			break
		}
		sess, authErr := s.sessions.RequireAuthenticated()
		if authErr != nil {
			logging.WarnWithContext(logger, "session no longer valid; skipping remaining drafts", "run_session_lost",
				logging.Int("remaining", len(ids)-i),
				logging.Error(authErr),
				logging.String(logging.FieldErrorHint, "run 'tweetqueue login' and publish again"),
				logging.String(logging.FieldImpact, "remaining drafts stay queued"),
			)
			report.SessionExpired = true
			report.skipRemaining(ids[i:], OutcomeSkippedDueToAuth)
			break
		}

		result, itemErr := s.publishItem(ctx, cancelCh, id, sess.Token)
		if result.ID != "" {
			report.Results = append(report.Results, result)
		}
		if itemErr != nil {
			return report, itemErr
		}

		switch result.Reason {
		case queue.FailureUnauthorized:
			report.SessionExpired = true
			report.skipRemaining(ids[i+1:], OutcomeSkippedDueToAuth)
			return report, nil
		case queue.FailureCancelled:
			report.Cancelled = true
			report.skipRemaining(ids[i+1:], OutcomeSkippedDueToCancel)
			return report, nil
		}
	}
	return report, nil
}

func (s *Scheduler) publishItem(ctx context.Context, cancelCh <-chan struct{}, id, token string) (ItemResult, error) {
	ctx = services.WithItemID(ctx, id)
	ctx, span := s.tracer.Start(ctx, "publish.item", trace.WithAttributes(attribute.String("item.id", id)))
	defer span.End()
	logger := logging.WithContext(ctx, s.logger)

	// State writes must land even after the run context is cancelled.
	writeCtx := context.WithoutCancel(ctx)

	item, err := s.queue.MarkPublishing(writeCtx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mark publishing")
		return ItemResult{}, err
	}

	attempts := 0
	for {
		attempts++
		externalID, err := s.attempt(ctx, token, item.Text)
		if err == nil {
			if saved, err := s.queue.MarkPublished(writeCtx, id, externalID, attempts); err != nil {
				return s.unsaved(span, logger, saved, err)
			}
			span.SetAttributes(
				attribute.String("item.outcome", string(OutcomePublished)),
				attribute.Int("item.attempts", attempts),
			)
			logger.Info("draft published",
				logging.String("external_id", externalID),
				logging.Int("attempts", attempts),
				logging.String(logging.FieldEventType, "draft_published"),
			)
			return ItemResult{ID: id, Outcome: OutcomePublished, ExternalID: externalID, Attempts: attempts}, nil
		}

		var perr *platform.Error
		if !errors.As(err, &perr) {
			reason := queue.FailureUnknown
			if ctx.Err() != nil || isCancelled(ctx, cancelCh) {
				reason = queue.FailureCancelled
			}
			return s.fail(writeCtx, span, logger, id, reason, err.Error(), attempts)
		}

		if perr.Kind == platform.KindUnauthorized {
			result, ferr := s.fail(writeCtx, span, logger, id, queue.FailureUnauthorized, perr.Error(), attempts)
			if err := s.sessions.Invalidate(writeCtx, "platform rejected the session token"); err != nil {
				logging.WarnWithContext(logger, "failed to persist expired session", "session_save_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "session expired in memory only"),
				)
			}
			return result, ferr
		}

		if !perr.Transient() || attempts > s.policy.MaxRetries {
			return s.fail(writeCtx, span, logger, id, reasonFor(perr.Kind), perr.Error(), attempts)
		}

		delay := s.policy.Delay(attempts)
		if perr.RetryAfter > delay {
			delay = perr.RetryAfter
		}
		logging.WarnWithContext(logger, "publish attempt failed; retrying", "publish_retry",
			logging.Int("attempt", attempts),
			logging.String("kind", string(perr.Kind)),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldImpact, "draft stays publishing until the retry"),
		)
		if !s.wait(ctx, cancelCh, delay) {
			return s.fail(writeCtx, span, logger, id, queue.FailureCancelled, "run cancelled before retry", attempts)
		}
	}
}

func (s *Scheduler) attempt(ctx context.Context, token, text string) (string, error) {
	if s.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.policy.AttemptTimeout)
		defer cancel()
	}
	return s.client.Publish(ctx, token, text)
}

func (s *Scheduler) fail(ctx context.Context, span trace.Span, logger *slog.Logger, id string, reason queue.FailureReason, detail string, attempts int) (ItemResult, error) {
	if saved, err := s.queue.MarkFailed(ctx, id, reason, detail, attempts); err != nil {
		return s.unsaved(span, logger, saved, err)
	}
	span.SetAttributes(
		attribute.String("item.outcome", string(OutcomeFailed)),
		attribute.String("item.reason", string(reason)),
		attribute.Int("item.attempts", attempts),
	)
	span.SetStatus(codes.Error, string(reason))
	logging.WarnWithContext(logger, "draft failed", "draft_failed",
		logging.String("reason", string(reason)),
		logging.String("detail", detail),
		logging.Int("attempts", attempts),
		logging.String(logging.FieldErrorHint, "inspect the draft and use 'tweetqueue retry' to queue it again"),
		logging.String(logging.FieldImpact, "draft was not published"),
	)
	return ItemResult{ID: id, Outcome: OutcomeFailed, Reason: reason, Detail: detail, Attempts: attempts}, nil
}

// unsaved reports a draft whose terminal write failed. The store has already
// released it as Failed(unknown); the error still aborts the run.
func (s *Scheduler) unsaved(span trace.Span, logger *slog.Logger, item queue.Item, err error) (ItemResult, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "save result")
	if item.ID == "" {
		return ItemResult{}, err
	}
	logging.ErrorWithContext(logger, "draft result not saved", "draft_save_failed",
		logging.String("external_id", item.ExternalID),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the state directory, then verify the post on the platform"),
		logging.String(logging.FieldImpact, "draft marked failed in memory; run aborted"),
	)
	return ItemResult{
		ID:         item.ID,
		Outcome:    OutcomeFailed,
		Reason:     item.FailureReason,
		Detail:     item.FailureDetail,
		ExternalID: item.ExternalID,
		Attempts:   item.Attempts,
	}, err
}

// wait sleeps for d unless the run is cancelled first.
func (s *Scheduler) wait(ctx context.Context, cancelCh <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return !isCancelled(ctx, cancelCh)
	}
	select {
	case <-ctx.Done():
		return false
	case <-cancelCh:
		return false
	case <-s.after(d):
		return true
	}
}

func (s *Scheduler) finish(ctx context.Context, logger *slog.Logger, report Report, runErr error) {
	s.mu.Lock()
	s.running = false
	s.runID = ""
	s.last = &report
	s.mu.Unlock()

	published, failed, skipped := report.Counts()
	logger.Info("publish run finished",
		logging.Int("published", published),
		logging.Int("failed", failed),
		logging.Int("skipped", skipped),
		logging.Bool("cancelled", report.Cancelled),
		logging.Duration("duration", report.Duration()),
		logging.String(logging.FieldEventType, "run_finished"),
	)

	notifyCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		s.notify(notifyCtx, logger, notifications.EventError, notifications.Payload{
			"context": "publish run",
			"error":   runErr,
		})
	}
	if report.SessionExpired {
		s.notify(notifyCtx, logger, notifications.EventSessionExpired, notifications.Payload{
			"reason": "session ended during publish run " + report.RunID,
		})
	}
	if len(report.Results) > 0 {
		s.notify(notifyCtx, logger, notifications.EventRunCompleted, notifications.Payload{
			"published": published,
			"failed":    failed,
			"skipped":   skipped,
			"duration":  report.Duration(),
			"cancelled": report.Cancelled,
		})
	}
}

func (s *Scheduler) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := s.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "notification not delivered"),
		)
	}
}

func reasonFor(kind platform.Kind) queue.FailureReason {
	switch kind {
	case platform.KindTimeout:
		return queue.FailureTimeout
	case platform.KindRateLimited:
		return queue.FailureRateLimited
	case platform.KindRejected:
		return queue.FailureRejected
	case platform.KindUnauthorized:
		return queue.FailureUnauthorized
	}
	return queue.FailureUnknown
}

func isCancelled(ctx context.Context, cancelCh <-chan struct{}) bool {
	select {
	case <-cancelCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
