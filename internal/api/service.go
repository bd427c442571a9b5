package api

import (
	"context"
	"log/slog"

	"tweetqueue/internal/logging"
	"tweetqueue/internal/publish"
	"tweetqueue/internal/queue"
	"tweetqueue/internal/services"
	"tweetqueue/internal/session"
)

// Service is the command surface over one queue, session, and scheduler.
type Service struct {
	queue     *queue.Store
	sessions  *session.Manager
	scheduler *publish.Scheduler
	// runCtx parents publish runs so they outlive the request that started them.
	runCtx context.Context
	logger *slog.Logger
}

// NewService wires the command surface. runCtx should be the daemon's root
// context; cancelling it cancels any active run.
func NewService(runCtx context.Context, q *queue.Store, sessions *session.Manager, scheduler *publish.Scheduler, logger *slog.Logger) *Service {
	if runCtx == nil {
		runCtx = context.Background()
	}
	return &Service{
		queue:     q,
		sessions:  sessions,
		scheduler: scheduler,
		runCtx:    runCtx,
		logger:    logging.NewComponentLogger(logger, "api"),
	}
}

// Login authenticates and returns the new session.
func (s *Service) Login(ctx context.Context, req LoginRequest) Result {
	sess, err := s.sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		return s.fail(ctx, "login", err)
	}
	return Ok(FromSession(sess))
}

// Logout clears the session.
func (s *Service) Logout(ctx context.Context) Result {
	if err := s.sessions.Logout(ctx); err != nil {
		return s.fail(ctx, "logout", err)
	}
	return Ok(FromSession(s.sessions.Current()))
}

// Session reports the current session.
func (s *Service) Session(context.Context) Result {
	return Ok(FromSession(s.sessions.Current()))
}

// CreateTweet appends a Queued draft.
func (s *Service) CreateTweet(ctx context.Context, req CreateRequest) Result {
	if err := s.requireSession(); err != nil {
		return s.fail(ctx, "createTweet", err)
	}
	item, err := s.queue.Create(ctx, req.Text)
	if err != nil {
		return s.fail(ctx, "createTweet", err)
	}
	return Ok(TweetResponse{Item: FromQueueItem(item)})
}

// ListTweets returns the display-ordered queue.
func (s *Service) ListTweets(ctx context.Context) Result {
	if err := s.requireSession(); err != nil {
		return s.fail(ctx, "listTweets", err)
	}
	return Ok(s.queueList())
}

// RemoveTweet deletes a Queued draft.
func (s *Service) RemoveTweet(ctx context.Context, req IDRequest) Result {
	if err := s.requireSession(); err != nil {
		return s.fail(ctx, "removeTweet", err)
	}
	if err := s.queue.Remove(ctx, req.ID); err != nil {
		return s.fail(ctx, "removeTweet", err)
	}
	return Ok(s.queueList())
}

// ReorderTweets applies a full permutation of the Queued ids.
func (s *Service) ReorderTweets(ctx context.Context, req ReorderRequest) Result {
	if err := s.requireSession(); err != nil {
		return s.fail(ctx, "reorderTweets", err)
	}
	if err := s.queue.Reorder(ctx, req.Order); err != nil {
		return s.fail(ctx, "reorderTweets", err)
	}
	return Ok(s.queueList())
}

// ReverseTweets flips the Queued order.
func (s *Service) ReverseTweets(ctx context.Context) Result {
	if err := s.requireSession(); err != nil {
		return s.fail(ctx, "reverseTweets", err)
	}
	if err := s.queue.Reverse(ctx); err != nil {
		return s.fail(ctx, "reverseTweets", err)
	}
	return Ok(s.queueList())
}

// RetryTweet queues a new draft with a Failed draft's text.
func (s *Service) RetryTweet(ctx context.Context, req IDRequest) Result {
	if err := s.requireSession(); err != nil {
		return s.fail(ctx, "retryTweet", err)
	}
	item, err := s.queue.Retry(ctx, req.ID)
	if err != nil {
		return s.fail(ctx, "retryTweet", err)
	}
	return Ok(TweetResponse{Item: FromQueueItem(item)})
}

// PruneTweets deletes terminal drafts in the given states, or both when empty.
func (s *Service) PruneTweets(ctx context.Context, req PruneRequest) Result {
	if err := s.requireSession(); err != nil {
		return s.fail(ctx, "pruneTweets", err)
	}
	states := make([]queue.State, 0, len(req.States))
	for _, raw := range req.States {
		state, ok := queue.ParseState(raw)
		if !ok {
			return s.fail(ctx, "pruneTweets", services.Wrap(services.ErrValidation, "api", "pruneTweets", "unknown state "+raw, nil))
		}
		states = append(states, state)
	}
	removed, err := s.queue.Prune(ctx, states...)
	if err != nil {
		return s.fail(ctx, "pruneTweets", err)
	}
	return Ok(PruneResponse{Removed: removed})
}

// PublishTweets runs the scheduler. Async runs return immediately with the
// run id; otherwise the call blocks and returns the report.
func (s *Service) PublishTweets(ctx context.Context, req PublishRequest) Result {
	if req.Async {
		runID, err := s.scheduler.Start(s.runCtx)
		if err != nil {
			return s.fail(ctx, "publishTweet", err)
		}
		return Ok(PublishResponse{RunID: runID, Async: true})
	}
	report, err := s.scheduler.Run(s.runCtx)
	if err != nil && report.RunID == "" {
		return s.fail(ctx, "publishTweet", err)
	}
	converted := FromReport(report)
	if err != nil {
		return Result{Data: PublishResponse{RunID: report.RunID, Report: &converted}, Error: FromError(err)}
	}
	return Ok(PublishResponse{RunID: report.RunID, Report: &converted})
}

// CancelPublish stops the active run at its next retry boundary.
func (s *Service) CancelPublish(context.Context) Result {
	return Ok(CancelResponse{Cancelled: s.scheduler.CancelRun()})
}

// PublishStatus reports the active run and the last finished one.
func (s *Service) PublishStatus(context.Context) Result {
	return Ok(s.runStatus())
}

// Status aggregates session, queue counts, and run state.
func (s *Service) Status() StatusResponse {
	return StatusResponse{
		Session: FromSession(s.sessions.Current()),
		Counts:  FromSummary(s.queue.Summary()),
		Run:     s.runStatus(),
	}
}

func (s *Service) runStatus() RunStatus {
	runID, running := s.scheduler.Running()
	status := RunStatus{Running: running, RunID: runID}
	if report, ok := s.scheduler.LastReport(); ok {
		converted := FromReport(report)
		status.LastReport = &converted
	}
	return status
}

func (s *Service) queueList() QueueListResponse {
	return QueueListResponse{
		Items:  FromQueueItems(s.queue.Snapshot()),
		Counts: FromSummary(s.queue.Summary()),
	}
}

func (s *Service) requireSession() error {
	_, err := s.sessions.RequireAuthenticated()
	return err
}

func (s *Service) fail(ctx context.Context, command string, err error) Result {
	result := Fail(err)
	logger := logging.WithContext(ctx, s.logger)
	attrs := []logging.Attr{
		logging.String("command", command),
		logging.String("kind", result.Error.Kind),
		logging.String("code", result.Error.Code),
		logging.Error(err),
	}
	if result.Error.Kind == string(services.KindInternal) || result.Error.Kind == string(services.KindPersistence) {
		logging.ErrorWithContext(logger, "command failed", "command_failed", attrs...)
	} else {
		logger.Debug("command rejected", logging.Args(attrs...)...)
	}
	return result
}
