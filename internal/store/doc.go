// Package store persists the queue and session in SQLite.
//
// It is the daemon's persistence adapter: Load returns whatever was saved
// last, and every save runs in a single transaction so a crash leaves either
// the previous or the new state on disk, never a mix. The database lives at
// paths.state_dir/tweetqueue.db.
//
// Schema changes bump schemaVersion in schema.go; an existing database with a
// different version is refused rather than migrated.
package store
