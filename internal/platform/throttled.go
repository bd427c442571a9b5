package platform

import (
	"context"
	"log/slog"
	"time"

	"tweetqueue/internal/logging"
)

// Limiter grants or refuses one call for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Throttled refuses calls locally once the limiter's quota is spent, so the
// platform never sees a request that would be rate limited anyway.
type Throttled struct {
	inner   Client
	limiter Limiter
	key     string
	logger  *slog.Logger
}

// NewThrottled wraps inner with limiter.
func NewThrottled(inner Client, limiter Limiter, key string, logger *slog.Logger) *Throttled {
	return &Throttled{
		inner:   inner,
		limiter: limiter,
		key:     key,
		logger:  logging.NewComponentLogger(logger, "platform"),
	}
}

// Publish implements Client.
func (t *Throttled) Publish(ctx context.Context, token, text string) (string, error) {
	allowed, retryAfter, err := t.limiter.Allow(ctx, t.key)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, t.logger), "rate limiter unavailable; refusing publish", "rate_limiter_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check rate_limit.redis_addr and that Redis is running"),
			logging.String(logging.FieldImpact, "publish attempt treated as rate limited"),
		)
		return "", &Error{Kind: KindRateLimited, Reason: "rate limiter unavailable", Err: err}
	}
	if !allowed {
		return "", &Error{Kind: KindRateLimited, RetryAfter: retryAfter, Reason: "local publish quota spent"}
	}
	return t.inner.Publish(ctx, token, text)
}
