// Package queue owns the authoritative ordered collection of drafts.
//
// The Store keeps every draft in memory, enforces the mutation rules
// (create, remove, reorder, reverse) and the publish lifecycle transitions
// used by the scheduler, and persists the full queue through a Persister
// before any change becomes visible. A failed save leaves the in-memory
// queue untouched.
//
// Positions are re-derived from the queued order on every commit, so the
// Queued items always carry a gapless 0..n-1 rank. Published and Failed
// drafts are terminal; they stay visible for audit until pruned.
package queue
