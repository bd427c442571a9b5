// Package config loads, normalizes, and validates tweetqueue configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// TWEETQUEUE_TOKEN_SECRET. The Config type centralizes every knob the daemon
// and CLI need, so the state directory, identity provider, platform endpoint,
// and retry policy are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
