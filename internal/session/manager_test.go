package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tweetqueue/internal/services"
	"tweetqueue/internal/session"
)

type stubProvider struct {
	creds session.Credentials
	err   error
	calls int
}

func (p *stubProvider) Authenticate(_ context.Context, username, password string) (session.Credentials, error) {
	p.calls++
	if p.err != nil {
		return session.Credentials{}, p.err
	}
	if password != "secret" {
		return session.Credentials{}, session.NewAuthError(session.ReasonInvalidCredentials, "bad password", nil)
	}
	creds := p.creds
	if creds.UserID == "" {
		creds.UserID = username
	}
	return creds, nil
}

type memoryPersister struct {
	mu    sync.Mutex
	saved []*session.Session
	fail  error
}

func (p *memoryPersister) SaveSession(_ context.Context, sess *session.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	if sess == nil {
		p.saved = append(p.saved, nil)
		return nil
	}
	cp := *sess
	p.saved = append(p.saved, &cp)
	return nil
}

func (p *memoryPersister) last() *session.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saved) == 0 {
		return nil
	}
	return p.saved[len(p.saved)-1]
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newManager(provider session.IdentityProvider, persister session.Persister) *session.Manager {
	return session.NewManager(provider, persister, session.Options{
		LoginTimeout: time.Second,
		Now:          func() time.Time { return fixedNow },
	})
}

func TestLoginSuccessPersistsSession(t *testing.T) {
	provider := &stubProvider{creds: session.Credentials{Token: "tok-1", ExpiresAt: fixedNow.Add(time.Hour)}}
	persister := &memoryPersister{}
	manager := newManager(provider, persister)

	sess, err := manager.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Status != session.StatusAuthenticated || sess.UserID != "alice" || sess.Token != "tok-1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	saved := persister.last()
	if saved == nil || saved.Token != "tok-1" {
		t.Fatalf("session not persisted: %+v", saved)
	}
	if !manager.Current().Authenticated() {
		t.Fatal("current session should be authenticated")
	}
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name       string
		provider   *stubProvider
		username   string
		password   string
		wantReason session.Reason
		wantMarker error
	}{
		{"wrong password", &stubProvider{}, "alice", "nope", session.ReasonInvalidCredentials, services.ErrAuth},
		{"provider unreachable", &stubProvider{err: errors.New("dial tcp: connection refused")}, "alice", "secret", session.ReasonNetwork, services.ErrAuth},
		{"missing password", &stubProvider{}, "alice", "", "", services.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			persister := &memoryPersister{}
			manager := newManager(tt.provider, persister)
			_, err := manager.Login(context.Background(), tt.username, tt.password)
			if !errors.Is(err, tt.wantMarker) {
				t.Fatalf("expected %v, got %v", tt.wantMarker, err)
			}
			if tt.wantReason != "" {
				if reason, ok := session.ReasonOf(err); !ok || reason != tt.wantReason {
					t.Fatalf("reason = %q, want %q", reason, tt.wantReason)
				}
			}
			if manager.Current().Status != session.StatusUnauthenticated {
				t.Fatalf("session should stay unauthenticated, got %s", manager.Current().Status)
			}
			if persister.last() != nil {
				t.Fatal("failed login must not persist")
			}
			if _, err := manager.RequireAuthenticated(); !errors.Is(err, services.ErrAuth) {
				t.Fatalf("queue operations must be refused, got %v", err)
			}
		})
	}
}

func TestNetworkFailureSuggestsRetry(t *testing.T) {
	manager := newManager(&stubProvider{err: errors.New("timeout")}, nil)
	_, err := manager.Login(context.Background(), "alice", "secret")
	if services.ActionFor(err) != services.ActionRetryLater {
		t.Fatalf("expected retry_later, got %s", services.ActionFor(err))
	}
	manager = newManager(&stubProvider{}, nil)
	_, err = manager.Login(context.Background(), "alice", "wrong")
	if services.ActionFor(err) != services.ActionReauthenticate {
		t.Fatalf("expected reauthenticate, got %s", services.ActionFor(err))
	}
}

func TestLoginPersistenceFailureKeepsPreviousSession(t *testing.T) {
	persister := &memoryPersister{fail: errors.New("disk full")}
	manager := newManager(&stubProvider{creds: session.Credentials{Token: "t"}}, persister)
	if _, err := manager.Login(context.Background(), "alice", "secret"); !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if manager.Current().Status != session.StatusUnauthenticated {
		t.Fatal("session must not be acknowledged before it is saved")
	}
}

func TestInvalidateExpiresSession(t *testing.T) {
	persister := &memoryPersister{}
	manager := newManager(&stubProvider{creds: session.Credentials{Token: "t"}}, persister)
	if _, err := manager.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := manager.Invalidate(context.Background(), "platform rejected token"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	current := manager.Current()
	if current.Status != session.StatusExpired || current.Token != "" || current.Reason != "platform rejected token" {
		t.Fatalf("unexpected session after invalidate: %+v", current)
	}
	if saved := persister.last(); saved == nil || saved.Status != session.StatusExpired {
		t.Fatalf("expired session not persisted: %+v", saved)
	}
	_, err := manager.RequireAuthenticated()
	if reason, _ := session.ReasonOf(err); reason != session.ReasonSessionExpired {
		t.Fatalf("expected session_expired, got %v", err)
	}

	saves := len(persister.saved)
	if err := manager.Invalidate(context.Background(), "again"); err != nil {
		t.Fatalf("second Invalidate: %v", err)
	}
	if len(persister.saved) != saves {
		t.Fatal("invalidating a non-authenticated session should be a no-op")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	persister := &memoryPersister{}
	manager := newManager(&stubProvider{creds: session.Credentials{Token: "t"}}, persister)
	if _, err := manager.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := manager.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if manager.Current().Status != session.StatusUnauthenticated {
		t.Fatalf("expected unauthenticated after logout")
	}
	if len(persister.saved) != 2 || persister.last() != nil {
		t.Fatalf("logout should persist a cleared session: %+v", persister.saved)
	}
}

func TestCurrentReportsExpiredToken(t *testing.T) {
	now := fixedNow
	manager := session.NewManager(&stubProvider{creds: session.Credentials{Token: "t", ExpiresAt: fixedNow.Add(time.Minute)}}, nil, session.Options{
		Now: func() time.Time { return now },
	})
	if _, err := manager.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	now = fixedNow.Add(2 * time.Minute)
	if got := manager.Current().Status; got != session.StatusExpired {
		t.Fatalf("expected expired status after token expiry, got %s", got)
	}
}

func TestRestore(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(fixedNow.Add(-time.Hour)),
	})
	expiredToken, err := expired.SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	tests := []struct {
		name      string
		in        *session.Session
		want      session.Status
		wantSaved bool
	}{
		{"nothing persisted", nil, session.StatusUnauthenticated, false},
		{"live opaque token", &session.Session{UserID: "alice", Token: "opaque", Status: session.StatusAuthenticated}, session.StatusAuthenticated, false},
		{"expired jwt", &session.Session{UserID: "alice", Token: expiredToken, Status: session.StatusAuthenticated}, session.StatusExpired, true},
		{"persisted expired", &session.Session{UserID: "alice", Status: session.StatusExpired}, session.StatusExpired, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			persister := &memoryPersister{}
			manager := newManager(&stubProvider{}, persister)
			if err := manager.Restore(context.Background(), tt.in); err != nil {
				t.Fatalf("Restore: %v", err)
			}
			if got := manager.Current().Status; got != tt.want {
				t.Fatalf("status = %s, want %s", got, tt.want)
			}
			if saved := len(persister.saved) > 0; saved != tt.wantSaved {
				t.Fatalf("saved = %v, want %v", saved, tt.wantSaved)
			}
			if tt.wantSaved {
				last := persister.last()
				if last == nil || last.Status != session.StatusExpired || last.Token != "" {
					t.Fatalf("expected expired session without token on disk, got %+v", last)
				}
			}
		})
	}
}

func TestRestoreSaveFailureStillDropsToken(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(fixedNow.Add(-time.Minute)),
	})
	token, err := expired.SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	manager := newManager(&stubProvider{}, &memoryPersister{fail: errors.New("disk full")})
	err = manager.Restore(context.Background(), &session.Session{UserID: "alice", Token: token, Status: session.StatusAuthenticated})
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if cur := manager.Current(); cur.Status != session.StatusExpired || cur.Token != "" {
		t.Fatalf("unexpected session %+v", cur)
	}
}

// gatedPersister holds the first save until release is closed.
type gatedPersister struct {
	memoryPersister
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *gatedPersister) SaveSession(ctx context.Context, sess *session.Session) error {
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.entered)
		<-p.release
	}
	return p.memoryPersister.SaveSession(ctx, sess)
}

func TestLogoutDuringInvalidateWinsOnDisk(t *testing.T) {
	persister := &memoryPersister{}
	manager := newManager(&stubProvider{creds: session.Credentials{Token: "tok-1"}}, persister)
	if _, err := manager.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	gated := &gatedPersister{entered: make(chan struct{}), release: make(chan struct{})}
	manager = newManager(&stubProvider{}, gated)
	if err := manager.Restore(context.Background(), persister.last()); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	invalidated := make(chan error, 1)
	go func() { invalidated <- manager.Invalidate(context.Background(), "token rejected") }()
	<-gated.entered

	loggedOut := make(chan error, 1)
	go func() { loggedOut <- manager.Logout(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	close(gated.release)

	if err := <-invalidated; err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := <-loggedOut; err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if got := manager.Current().Status; got != session.StatusUnauthenticated {
		t.Fatalf("memory status = %s, want unauthenticated", got)
	}
	if last := gated.last(); last != nil {
		t.Fatalf("disk should hold the cleared session, got %+v", last)
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := fixedNow.Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	signed, err := token.SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if got := session.TokenExpiry(signed); !got.Equal(exp) {
		t.Fatalf("TokenExpiry = %v, want %v", got, exp)
	}
	if got := session.TokenExpiry("not-a-jwt"); !got.IsZero() {
		t.Fatalf("opaque token should have no expiry, got %v", got)
	}
}
