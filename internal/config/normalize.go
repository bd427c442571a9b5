package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.applyEnvFallbacks(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIdentity()
	c.normalizePlatform()
	c.normalizeRateLimit()
	c.normalizeNotifications()
	c.normalizeTelemetry()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeIdentity() {
	c.Identity.Provider = strings.ToLower(strings.TrimSpace(c.Identity.Provider))
	if c.Identity.Provider == "" {
		c.Identity.Provider = defaultIdentityProvider
	}
	c.Identity.Username = strings.TrimSpace(c.Identity.Username)
	c.Identity.PasswordHash = strings.TrimSpace(c.Identity.PasswordHash)
	c.Identity.TokenSecret = strings.TrimSpace(c.Identity.TokenSecret)
}

func (c *Config) normalizePlatform() {
	c.Platform.Mode = strings.ToLower(strings.TrimSpace(c.Platform.Mode))
	if c.Platform.Mode == "" {
		c.Platform.Mode = defaultPlatformMode
	}
	c.Platform.BaseURL = strings.TrimRight(strings.TrimSpace(c.Platform.BaseURL), "/")
	c.Platform.UserAgent = strings.TrimSpace(c.Platform.UserAgent)
	if c.Platform.UserAgent == "" {
		c.Platform.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeRateLimit() {
	c.RateLimit.RedisAddr = strings.TrimSpace(c.RateLimit.RedisAddr)
	c.RateLimit.Prefix = strings.TrimSpace(c.RateLimit.Prefix)
	if c.RateLimit.Prefix == "" {
		c.RateLimit.Prefix = defaultRateLimitPrefix
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeTelemetry() {
	c.Telemetry.OTLPEndpoint = strings.TrimSpace(c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = strings.TrimSpace(c.Telemetry.ServiceName)
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = defaultServiceName
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
