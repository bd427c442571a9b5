// Package notifications sends ntfy push messages about publish runs.
//
// NewService returns a no-op implementation when notifications.ntfy_topic is
// empty, so callers never need to check whether notifications are enabled.
// Each event kind can also be switched off individually in the config.
package notifications
