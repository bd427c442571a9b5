package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tweetqueue/internal/services"
)

// Persister durably stores the full queue. SaveQueue must be atomic: after
// a crash either the previous or the new queue is visible, never a mix.
type Persister interface {
	SaveQueue(ctx context.Context, items []Item) error
}

// Options tunes a Store.
type Options struct {
	MaxTextLength int
	Now           func() time.Time
	NewID         func() string
}

// Store is the in-memory owner of the queue.
type Store struct {
	mu      sync.RWMutex
	current state
	locked  map[string]struct{}

	persist Persister
	maxLen  int
	now     func() time.Time
	newID   func() string
}

type state struct {
	items  map[string]Item
	queued []string
	seq    int64
}

func (st state) clone() state {
	items := make(map[string]Item, len(st.items))
	for id, item := range st.items {
		items[id] = item
	}
	return state{
		items:  items,
		queued: append([]string(nil), st.queued...),
		seq:    st.seq,
	}
}

// New constructs an empty Store. A nil persister keeps the queue in memory only.
func New(persist Persister, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Store{
		current: state{items: make(map[string]Item)},
		locked:  make(map[string]struct{}),
		persist: persist,
		maxLen:  opts.MaxTextLength,
		now:     opts.Now,
		newID:   opts.NewID,
	}
}

// Restore replaces the in-memory queue with persisted items. Queued items are
// re-ranked by their stored position (ties broken by creation order) so the
// positions are contiguous again. Nothing is written.
func (s *Store) Restore(items []Item) error {
	next := state{items: make(map[string]Item, len(items))}
	var queued []Item
	for _, item := range items {
		if item.ID == "" {
			return services.Wrap(services.ErrPersistence, "queue", "restore", "draft without id", nil)
		}
		if _, dup := next.items[item.ID]; dup {
			return services.Wrap(services.ErrPersistence, "queue", "restore", fmt.Sprintf("duplicate draft id %s", item.ID), nil)
		}
		if _, ok := ParseState(string(item.State)); !ok {
			return services.Wrap(services.ErrPersistence, "queue", "restore", fmt.Sprintf("draft %s has unknown state %q", item.ID, item.State), nil)
		}
		if item.State != StateQueued {
			item.Position = -1
		} else {
			queued = append(queued, item)
		}
		next.items[item.ID] = item
		if item.Seq > next.seq {
			next.seq = item.Seq
		}
	}
	sort.SliceStable(queued, func(i, j int) bool {
		if queued[i].Position != queued[j].Position {
			return queued[i].Position < queued[j].Position
		}
		return queued[i].Seq < queued[j].Seq
	})
	for _, item := range queued {
		next.queued = append(next.queued, item.ID)
	}
	next.rank()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
	s.locked = make(map[string]struct{})
	return nil
}

// rank re-derives Position for every Queued item from the queued order.
func (st *state) rank() {
	for pos, id := range st.queued {
		item := st.items[id]
		item.Position = pos
		st.items[id] = item
	}
}

// commit persists next and swaps it in. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, operation string, next state) error {
	next.rank()
	if s.persist != nil {
		if err := s.persist.SaveQueue(ctx, next.ordered()); err != nil {
			return services.Wrap(services.ErrPersistence, "queue", operation, "save queue", err)
		}
	}
	s.current = next
	return nil
}

// ordered lists items for display: the Publishing item, then Queued by
// position, then terminal items in creation order.
func (st state) ordered() []Item {
	out := make([]Item, 0, len(st.items))
	var terminal []Item
	for _, item := range st.items {
		switch item.State {
		case StatePublishing:
			out = append(out, item)
		case StatePublished, StateFailed:
			terminal = append(terminal, item)
		}
	}
	for _, id := range st.queued {
		out = append(out, st.items[id])
	}
	sort.Slice(terminal, func(i, j int) bool { return terminal[i].Seq < terminal[j].Seq })
	return append(out, terminal...)
}

// Snapshot returns a copy of the queue in display order.
func (s *Store) Snapshot() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.ordered()
}

// Get returns one draft by id.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.current.items[id]
	return item, ok
}

// QueuedIDs returns the ids of Queued drafts in position order.
func (s *Store) QueuedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.current.queued...)
}

// Summary counts drafts per state.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum Summary
	for _, item := range s.current.items {
		switch item.State {
		case StateQueued:
			sum.Queued++
		case StatePublishing:
			sum.Publishing++
		case StatePublished:
			sum.Published++
		case StateFailed:
			sum.Failed++
		}
	}
	return sum
}
