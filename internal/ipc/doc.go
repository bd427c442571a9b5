// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// Every queue and session command travels through a single Command method that
// forwards to the daemon's command surface, so the CLI and the HTTP API share
// one set of handlers and one error envelope. Process-level calls (Status,
// Stop, LogTail, TestNotification) have their own methods.
package ipc
