// Package platform publishes drafts to the external social platform.
//
// Every client reports failures as *Error with one of four kinds
// (unauthorized, rate limited, rejected, timeout) so the scheduler can
// decide between retrying, failing the draft, and invalidating the session.
// HTTPClient talks to a real endpoint, Sandbox keeps posts in memory for
// local use, and Throttled wraps either with the Redis rate limiter.
package platform
