package testsupport

import (
	"context"
	"testing"

	"tweetqueue/internal/config"
	"tweetqueue/internal/queue"
	"tweetqueue/internal/store"
)

// MustOpenStore opens the SQLite store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewQueue builds an in-memory queue that persists through persist, which may be nil.
func NewQueue(t testing.TB, persist queue.Persister) *queue.Store {
	t.Helper()
	return queue.New(persist, queue.Options{MaxTextLength: 280})
}

// AddDrafts appends one Queued draft per text and returns their ids in order.
func AddDrafts(t testing.TB, q *queue.Store, texts ...string) []string {
	t.Helper()

	ids := make([]string, 0, len(texts))
	for _, text := range texts {
		item, err := q.Create(context.Background(), text)
		if err != nil {
			t.Fatalf("queue.Create(%q): %v", text, err)
		}
		ids = append(ids, item.ID)
	}
	return ids
}
