package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envSecrets lists the values that may be supplied through the environment
// instead of the config file.
type envSecrets struct {
	APIToken      string `env:"TWEETQUEUE_API_TOKEN"`
	TokenSecret   string `env:"TWEETQUEUE_TOKEN_SECRET"`
	PlatformURL   string `env:"TWEETQUEUE_PLATFORM_URL"`
	RedisPassword string `env:"TWEETQUEUE_REDIS_PASSWORD"`
	NtfyTopic     string `env:"TWEETQUEUE_NTFY_TOPIC"`
	OTLPEndpoint  string `env:"TWEETQUEUE_OTEL_ENDPOINT"`
}

func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// applyEnvFallbacks fills empty secrets from the environment. Values present
// in the file always win.
func (c *Config) applyEnvFallbacks() error {
	var secrets envSecrets
	if err := parseEnv(&secrets); err != nil {
		return err
	}
	fill := func(dst *string, value string) {
		if *dst == "" {
			*dst = value
		}
	}
	fill(&c.Paths.APIToken, secrets.APIToken)
	fill(&c.Identity.TokenSecret, secrets.TokenSecret)
	fill(&c.Platform.BaseURL, secrets.PlatformURL)
	fill(&c.RateLimit.RedisPassword, secrets.RedisPassword)
	fill(&c.Notifications.NtfyTopic, secrets.NtfyTopic)
	fill(&c.Telemetry.OTLPEndpoint, secrets.OTLPEndpoint)
	return nil
}
