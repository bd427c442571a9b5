package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIdentity(); err != nil {
		return err
	}
	if err := c.validatePlatform(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if !strings.Contains(c.Paths.APIBind, ":") {
		return fmt.Errorf("paths.api_bind must be host:port, got %q", c.Paths.APIBind)
	}
	return nil
}

func (c *Config) validateIdentity() error {
	switch c.Identity.Provider {
	case "platform":
	case "local":
		if c.Identity.Username == "" {
			return errors.New("identity.username must be set when identity.provider is local")
		}
		if !strings.HasPrefix(c.Identity.PasswordHash, "$2") {
			return errors.New("identity.password_hash must be a bcrypt hash (generate one with 'tweetqueue config hash-password')")
		}
		if c.Identity.TokenSecret == "" {
			return errors.New("identity.token_secret must be set when identity.provider is local (or set TWEETQUEUE_TOKEN_SECRET)")
		}
	default:
		return fmt.Errorf("identity.provider must be platform or local, got %q", c.Identity.Provider)
	}
	if c.Identity.TokenTTL <= 0 {
		return errors.New("identity.token_ttl must be positive")
	}
	if c.Identity.LoginTimeout <= 0 {
		return errors.New("identity.login_timeout must be positive")
	}
	return nil
}

func (c *Config) validatePlatform() error {
	switch c.Platform.Mode {
	case "http":
		if c.Platform.BaseURL == "" {
			return errors.New("platform.base_url must be set when platform.mode is http (or set TWEETQUEUE_PLATFORM_URL)")
		}
		parsed, err := url.Parse(c.Platform.BaseURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("platform.base_url must be an http(s) URL, got %q", c.Platform.BaseURL)
		}
	case "sandbox":
		if c.Identity.Provider != "local" {
			return errors.New("platform.mode sandbox requires identity.provider local")
		}
	default:
		return fmt.Errorf("platform.mode must be http or sandbox, got %q", c.Platform.Mode)
	}
	if c.Platform.RequestTimeout <= 0 {
		return errors.New("platform.request_timeout must be positive")
	}
	if c.Platform.MaxTextLength <= 0 {
		return errors.New("platform.max_text_length must be positive")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if c.Publish.MaxRetries < 0 || c.Publish.MaxRetries > 10 {
		return errors.New("publish.max_retries must be between 0 and 10")
	}
	if c.Publish.InitialBackoffMS <= 0 {
		return errors.New("publish.initial_backoff_ms must be positive")
	}
	if c.Publish.BackoffMultiplier < 1 {
		return errors.New("publish.backoff_multiplier must be at least 1")
	}
	if c.Publish.MaxBackoffMS < c.Publish.InitialBackoffMS {
		return errors.New("publish.max_backoff_ms must be at least publish.initial_backoff_ms")
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	if !c.RateLimit.Enabled {
		return nil
	}
	if c.RateLimit.RedisAddr == "" {
		return errors.New("rate_limit.redis_addr must be set when rate_limit.enabled is true")
	}
	if c.RateLimit.Limit <= 0 {
		return errors.New("rate_limit.limit must be positive")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return errors.New("rate_limit.window_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}
