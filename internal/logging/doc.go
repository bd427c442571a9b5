// Package logging assembles the slog loggers used by the tweetqueue daemon and CLI.
//
// It owns the console and JSON handlers, routes output to stdout and per-run
// log files, and exposes context helpers so publish code tags every line with
// the draft and run it concerns. NewNop is available for tests and wiring that
// must not fail.
package logging
