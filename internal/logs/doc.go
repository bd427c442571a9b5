// Package logs reads the tweetqueued log file for `tweetqueue logs`.
//
// Tail supports negative offsets for "last N lines", resumable offsets for
// follow mode, and substring matching so a caller can narrow output to a single
// draft id or publish run id. Callers bound follow waits with a context.
package logs
