package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Identity selects how login credentials are verified.
type Identity struct {
	// Provider is "platform" (credentials checked by the platform's token
	// endpoint) or "local" (bcrypt hash below, tokens minted locally).
	Provider     string `toml:"provider"`
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"`
	TokenSecret  string `toml:"token_secret"`
	TokenTTL     int    `toml:"token_ttl"`
	LoginTimeout int    `toml:"login_timeout"`
}

// Platform describes the publishing endpoint.
type Platform struct {
	// Mode is "http" for a real endpoint or "sandbox" for the in-process
	// platform that accepts locally minted tokens.
	Mode           string `toml:"mode"`
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxTextLength  int    `toml:"max_text_length"`
	UserAgent      string `toml:"user_agent"`
}

// Publish holds the retry policy for publish runs.
type Publish struct {
	MaxRetries        int     `toml:"max_retries"`
	InitialBackoffMS  int     `toml:"initial_backoff_ms"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
	MaxBackoffMS      int     `toml:"max_backoff_ms"`
}

// RateLimit configures the Redis-backed publish throttle.
type RateLimit struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	Prefix        string `toml:"prefix"`
	Limit         int    `toml:"limit"`
	WindowSeconds int    `toml:"window_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunCompleted   bool   `toml:"run_completed"`
	SessionExpired bool   `toml:"session_expired"`
	Errors         bool   `toml:"errors"`
}

// Telemetry configures opt-in OpenTelemetry tracing.
type Telemetry struct {
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for tweetqueue.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Identity: login verification and session token policy
//   - Platform: publishing endpoint and draft length bound
//   - Publish: retry policy for publish runs
//   - RateLimit: Redis-backed publish throttle
//   - Notifications: ntfy push notification settings
//   - Telemetry: OTLP tracing export
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Identity      Identity      `toml:"identity"`
	Platform      Platform      `toml:"platform"`
	Publish       Publish       `toml:"publish"`
	RateLimit     RateLimit     `toml:"rate_limit"`
	Notifications Notifications `toml:"notifications"`
	Telemetry     Telemetry     `toml:"telemetry"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tweetqueue.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite state database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "tweetqueue.db")
}

// LockPath returns the daemon instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "tweetqueued.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "tweetqueued.pid")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "tweetqueue.sock")
}

// TokenTTLDuration returns the lifetime of locally minted session tokens.
func (i Identity) TokenTTLDuration() time.Duration {
	return time.Duration(i.TokenTTL) * time.Second
}

// LoginTimeoutDuration bounds a single identity provider round trip.
func (i Identity) LoginTimeoutDuration() time.Duration {
	return time.Duration(i.LoginTimeout) * time.Second
}

// RequestTimeoutDuration bounds a single publish attempt.
func (p Platform) RequestTimeoutDuration() time.Duration {
	return time.Duration(p.RequestTimeout) * time.Second
}

// InitialBackoff returns the delay before the first retry.
func (p Publish) InitialBackoff() time.Duration {
	return time.Duration(p.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff caps the computed retry delay.
func (p Publish) MaxBackoff() time.Duration {
	return time.Duration(p.MaxBackoffMS) * time.Millisecond
}

// Window returns the rate limit window length.
func (r RateLimit) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
