package testsupport

import (
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"tweetqueue/internal/config"
)

// Test credentials accepted by configs from NewConfig.
const (
	Username    = "alice"
	Password    = "correct horse"
	TokenSecret = "test-token-secret"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It uses the local identity provider with the sandbox platform so no
// network is needed, and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Identity.Provider = "local"
	cfgVal.Identity.Username = Username
	cfgVal.Identity.PasswordHash = hashPassword(t, Password)
	cfgVal.Identity.TokenSecret = TokenSecret
	cfgVal.Platform.Mode = "sandbox"
	cfgVal.Publish.InitialBackoffMS = 1
	cfgVal.Publish.MaxBackoffMS = 5

	builder := &configBuilder{cfg: &cfgVal}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithPlatformURL switches the config to the HTTP platform at url.
func WithPlatformURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Platform.Mode = "http"
		b.cfg.Platform.BaseURL = url
	}
}

// WithRateLimit enables the Redis throttle against addr.
func WithRateLimit(addr string, limit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.RateLimit.Enabled = true
		b.cfg.RateLimit.RedisAddr = addr
		b.cfg.RateLimit.Limit = limit
	}
}

// WithAPIToken requires bearer auth on the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithMaxRetries overrides the publish retry budget.
func WithMaxRetries(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publish.MaxRetries = n
	}
}

func hashPassword(t testing.TB, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}
