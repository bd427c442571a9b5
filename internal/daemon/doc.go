// Package daemon coordinates the long-running tweetqueue process.
//
// It wires the SQLite store, the in-memory queue and session, and the publish
// scheduler into a single lifecycle with flock-based locking to prevent two
// processes from owning the same state directory. The daemon owns the root
// context that publish runs inherit, so stopping it cancels any active run,
// and it serves the HTTP API next to the IPC socket.
//
// Keep orchestration logic here: queue rules live in internal/queue and the
// publish algorithm in internal/publish.
package daemon
