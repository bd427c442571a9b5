package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tweetqueue/internal/logging"
	"tweetqueue/internal/services"
)

// IdentityProvider verifies credentials.
type IdentityProvider interface {
	Authenticate(ctx context.Context, username, password string) (Credentials, error)
}

// Persister durably stores the session. A nil session clears it.
type Persister interface {
	SaveSession(ctx context.Context, sess *Session) error
}

// Options tunes a Manager.
type Options struct {
	LoginTimeout time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

// Manager owns the single session.
type Manager struct {
	mu      sync.RWMutex
	current Session

	// loginMu serializes logins so two concurrent attempts cannot race on
	// the persisted state; readers never wait on it.
	loginMu sync.Mutex

	provider IdentityProvider
	persist  Persister
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewManager constructs an Unauthenticated manager.
func NewManager(provider IdentityProvider, persist Persister, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		current:  Session{Status: StatusUnauthenticated},
		provider: provider,
		persist:  persist,
		timeout:  opts.LoginTimeout,
		now:      opts.Now,
		logger:   logging.NewComponentLogger(opts.Logger, "session"),
	}
}

// Restore installs a persisted session. An Authenticated session whose token
// has already expired comes back as Expired and that state is saved; the
// token stays dropped in memory even if the save fails.
func (m *Manager) Restore(ctx context.Context, sess *Session) error {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	if sess == nil {
		m.mu.Lock()
		m.current = Session{Status: StatusUnauthenticated}
		m.mu.Unlock()
		return nil
	}
	restored := *sess
	changed := false
	if restored.Status == StatusAuthenticated {
		if restored.ExpiresAt.IsZero() {
			restored.ExpiresAt = TokenExpiry(restored.Token)
		}
		if restored.Token == "" || m.expired(restored) {
			restored = expire(restored, "token expired while the daemon was stopped")
			restored.UpdatedAt = m.now().UTC()
			changed = true
		}
	}
	m.mu.Lock()
	m.current = restored
	m.mu.Unlock()

	if !changed {
		return nil
	}
	if err := m.save(ctx, &restored); err != nil {
		return services.Wrap(services.ErrPersistence, "session", "restore", "save expired session", err)
	}
	return nil
}

// Login authenticates and persists the new session. A failed login leaves
// the current session as it was.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, services.Wrap(services.ErrValidation, "session", "login", "username and password are required", nil)
	}
	if m.provider == nil {
		return Session{}, services.Wrap(services.ErrConfiguration, "session", "login", "no identity provider configured", nil)
	}

	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	loginCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		loginCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	creds, err := m.provider.Authenticate(loginCtx, username, password)
	if err != nil {
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			err = NewAuthError(ReasonNetwork, "identity provider unreachable", err)
		}
		logging.WarnWithContext(m.logger, "login failed", "login_failed",
			logging.String("username", username),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check credentials and identity provider reachability"),
			logging.String(logging.FieldImpact, "session remains unchanged"),
		)
		return Session{}, err
	}

	expiresAt := creds.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = TokenExpiry(creds.Token)
	}
	next := Session{
		UserID:    creds.UserID,
		Token:     creds.Token,
		Status:    StatusAuthenticated,
		ExpiresAt: expiresAt,
		UpdatedAt: m.now().UTC(),
	}
	if next.UserID == "" {
		next.UserID = username
	}
	if err := m.save(ctx, &next); err != nil {
		return Session{}, services.Wrap(services.ErrPersistence, "session", "login", "save session", err)
	}

	m.mu.Lock()
	m.current = next
	m.mu.Unlock()

	m.logger.Info("login succeeded",
		logging.String("user_id", next.UserID),
		logging.String(logging.FieldEventType, "login_succeeded"),
	)
	return next, nil
}

// Current returns the session state. It never blocks on a login in flight.
// A token whose expiry has passed is reported as Expired.
func (m *Manager) Current() Session {
	m.mu.RLock()
	sess := m.current
	m.mu.RUnlock()
	if sess.Status == StatusAuthenticated && m.expired(sess) {
		return expire(sess, "token expired")
	}
	return sess
}

// RequireAuthenticated returns the live session or an AuthError.
func (m *Manager) RequireAuthenticated() (Session, error) {
	sess := m.Current()
	switch {
	case sess.Authenticated():
		return sess, nil
	case sess.Status == StatusExpired:
		return Session{}, NewAuthError(ReasonSessionExpired, "session expired; log in again", nil)
	default:
		return Session{}, NewAuthError(ReasonUnauthenticated, "not logged in", nil)
	}
}

// Invalidate expires the session after the platform rejected its token. The
// token is dropped in memory even if persisting fails so it is never reused.
func (m *Manager) Invalidate(ctx context.Context, reason string) error {
	// Held across the save so a concurrent Logout cannot be overwritten on
	// disk by the Expired row.
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	m.mu.Lock()
	if m.current.Status != StatusAuthenticated {
		m.mu.Unlock()
		return nil
	}
	next := expire(m.current, reason)
	next.UpdatedAt = m.now().UTC()
	m.current = next
	m.mu.Unlock()

	logging.WarnWithContext(m.logger, "session invalidated", "session_expired",
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "run 'tweetqueue login' to start a new session"),
		logging.String(logging.FieldImpact, "queue operations are blocked until login"),
	)
	if err := m.save(ctx, &next); err != nil {
		return services.Wrap(services.ErrPersistence, "session", "invalidate", "save session", err)
	}
	return nil
}

// Logout clears the persisted credential and returns to Unauthenticated.
func (m *Manager) Logout(ctx context.Context) error {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	if err := m.save(ctx, nil); err != nil {
		return services.Wrap(services.ErrPersistence, "session", "logout", "clear session", err)
	}
	m.mu.Lock()
	m.current = Session{Status: StatusUnauthenticated, UpdatedAt: m.now().UTC()}
	m.mu.Unlock()
	m.logger.Info("logged out", logging.String(logging.FieldEventType, "logout"))
	return nil
}

func (m *Manager) save(ctx context.Context, sess *Session) error {
	if m.persist == nil {
		return nil
	}
	return m.persist.SaveSession(ctx, sess)
}

func (m *Manager) expired(sess Session) bool {
	return !sess.ExpiresAt.IsZero() && !m.now().Before(sess.ExpiresAt)
}

func expire(sess Session, reason string) Session {
	sess.Status = StatusExpired
	sess.Token = ""
	sess.Reason = reason
	return sess
}
