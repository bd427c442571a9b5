package platform

import (
	"context"
	"fmt"
	"log/slog"

	"tweetqueue/internal/config"
	"tweetqueue/internal/logging"
	"tweetqueue/internal/ratelimit"
)

// Client publishes one post and returns the platform's post id.
type Client interface {
	Publish(ctx context.Context, token, text string) (string, error)
}

// New builds the client selected by platform.mode, wrapped with the rate
// limiter when rate_limit.enabled is set. The returned close function
// releases the limiter's Redis connection.
func New(cfg *config.Config, logger *slog.Logger) (Client, func() error, error) {
	var client Client
	switch cfg.Platform.Mode {
	case "sandbox":
		client = NewSandbox([]byte(cfg.Identity.TokenSecret))
	case "http":
		client = NewHTTPClient(cfg.Platform.BaseURL, cfg.Platform.UserAgent)
	default:
		return nil, nil, fmt.Errorf("platform: unknown mode %q", cfg.Platform.Mode)
	}

	closer := func() error { return nil }
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(
			cfg.RateLimit.RedisAddr,
			cfg.RateLimit.RedisPassword,
			cfg.RateLimit.Prefix,
			cfg.RateLimit.Limit,
			cfg.RateLimit.Window(),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("platform: rate limiter: %w", err)
		}
		client = NewThrottled(client, limiter, "publish", logger)
		closer = limiter.Close
	}

	logging.NewComponentLogger(logger, "platform").Info("platform client ready",
		logging.String("mode", cfg.Platform.Mode),
		logging.Bool("rate_limited", cfg.RateLimit.Enabled),
		logging.String(logging.FieldEventType, "platform_ready"),
	)
	return client, closer, nil
}
