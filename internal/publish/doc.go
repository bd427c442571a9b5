// Package publish drives "publish all" runs over the queue.
//
// A run snapshots the Queued drafts at its start and publishes them one at a
// time in position order. Transient platform failures (timeouts, rate
// limits) are retried with exponential backoff; a rejected draft fails and
// the run moves on; an unauthorized response invalidates the session and
// skips everything left. Only one run may be active at a time, and a
// cancellation takes effect at the next retry boundary.
package publish
