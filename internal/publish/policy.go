package publish

import (
	"math"
	"time"

	"tweetqueue/internal/config"
)

// Policy bounds retries of transient platform failures. A draft gets at
// most 1+MaxRetries attempts.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	Multiplier     float64
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration
}

// PolicyFromConfig reads the [publish] and [platform] sections.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		MaxRetries:     cfg.Publish.MaxRetries,
		InitialBackoff: cfg.Publish.InitialBackoff(),
		Multiplier:     cfg.Publish.BackoffMultiplier,
		MaxBackoff:     cfg.Publish.MaxBackoff(),
		AttemptTimeout: cfg.Platform.RequestTimeoutDuration(),
	}
}

// Delay returns the wait before retry number n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(p.InitialBackoff) * math.Pow(mult, float64(n-1))
	if p.MaxBackoff > 0 && delay > float64(p.MaxBackoff) {
		return p.MaxBackoff
	}
	return time.Duration(delay)
}
