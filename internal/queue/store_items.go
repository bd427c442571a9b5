package queue

import (
	"context"
	"fmt"
	"time"

	"tweetqueue/internal/services"
)

// Create appends a new Queued draft at the tail. It is allowed during a
// publish run; the new draft is only picked up by later runs.
func (s *Store) Create(ctx context.Context, text string) (Item, error) {
	normalized, err := NormalizeText(text, s.maxLen)
	if err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.current.clone()
	id := next.add(s.newID(), normalized, s.now().UTC())
	if err := s.commit(ctx, "create", next); err != nil {
		return Item{}, err
	}
	return s.current.items[id], nil
}

func (st *state) add(id, text string, now time.Time) string {
	st.seq++
	st.items[id] = Item{
		ID:        id,
		Seq:       st.seq,
		Text:      text,
		State:     StateQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	st.queued = append(st.queued, id)
	return id
}

// Remove deletes a Queued draft and closes the gap it leaves.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.current.items[id]
	if !ok {
		return services.Wrap(services.ErrNotFound, "queue", "remove", fmt.Sprintf("draft %s not found", id), nil)
	}
	if item.State != StateQueued {
		return services.Wrap(services.ErrInvalidState, "queue", "remove",
			fmt.Sprintf("draft %s is %s; only queued drafts can be removed", id, item.State), nil)
	}
	if _, locked := s.locked[id]; locked {
		return services.Wrap(services.ErrQueueLocked, "queue", "remove",
			fmt.Sprintf("draft %s belongs to the running publish", id), nil)
	}

	next := s.current.clone()
	delete(next.items, id)
	next.queued = without(next.queued, id)
	return s.commit(ctx, "remove", next)
}

// Reorder assigns positions 0..n-1 following order, which must be a
// permutation of exactly the current Queued ids.
func (s *Store) Reorder(ctx context.Context, order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.current.checkPermutation(order); err != nil {
		return err
	}
	if s.queuedLocked() {
		return services.Wrap(services.ErrQueueLocked, "queue", "reorder", "a publish run holds the queue order", nil)
	}
	if equalOrder(s.current.queued, order) {
		return nil
	}

	next := s.current.clone()
	next.queued = append([]string(nil), order...)
	now := s.now().UTC()
	for _, id := range next.queued {
		item := next.items[id]
		item.UpdatedAt = now
		next.items[id] = item
	}
	return s.commit(ctx, "reorder", next)
}

// Reverse flips the order of the Queued drafts. Terminal drafts are untouched.
func (s *Store) Reverse(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queuedLocked() {
		return services.Wrap(services.ErrQueueLocked, "queue", "reverse", "a publish run holds the queue order", nil)
	}
	if len(s.current.queued) < 2 {
		return nil
	}
	order := make([]string, 0, len(s.current.queued))
	for i := len(s.current.queued) - 1; i >= 0; i-- {
		order = append(order, s.current.queued[i])
	}
	next := s.current.clone()
	next.queued = order
	return s.commit(ctx, "reverse", next)
}

// Retry queues a fresh draft carrying the text of a Failed one. The failed
// draft itself stays terminal.
func (s *Store) Retry(ctx context.Context, id string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.current.items[id]
	if !ok {
		return Item{}, services.Wrap(services.ErrNotFound, "queue", "retry", fmt.Sprintf("draft %s not found", id), nil)
	}
	if item.State != StateFailed {
		return Item{}, services.Wrap(services.ErrInvalidState, "queue", "retry",
			fmt.Sprintf("draft %s is %s; only failed drafts can be retried", id, item.State), nil)
	}

	next := s.current.clone()
	newID := next.add(s.newID(), item.Text, s.now().UTC())
	if err := s.commit(ctx, "retry", next); err != nil {
		return Item{}, err
	}
	return s.current.items[newID], nil
}

// Prune deletes terminal drafts in the given states (both when none are
// given) and returns how many were removed.
func (s *Store) Prune(ctx context.Context, states ...State) (int, error) {
	if len(states) == 0 {
		states = []State{StatePublished, StateFailed}
	}
	wanted := make(map[State]struct{}, len(states))
	for _, st := range states {
		if !st.IsTerminal() {
			return 0, services.Wrap(services.ErrValidation, "queue", "prune",
				fmt.Sprintf("state %q is not terminal", st), nil)
		}
		wanted[st] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.current.clone()
	removed := 0
	for id, item := range next.items {
		if _, ok := wanted[item.State]; ok {
			delete(next.items, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.commit(ctx, "prune", next); err != nil {
		return 0, err
	}
	return removed, nil
}

func (st state) checkPermutation(order []string) error {
	invalid := func(msg string) error {
		return services.Wrap(services.ErrValidation, "queue", "reorder", msg, nil)
	}
	if len(order) != len(st.queued) {
		return invalid(fmt.Sprintf("order lists %d ids but %d drafts are queued", len(order), len(st.queued)))
	}
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, dup := seen[id]; dup {
			return invalid(fmt.Sprintf("duplicate id %s", id))
		}
		seen[id] = struct{}{}
		item, ok := st.items[id]
		if !ok {
			return invalid(fmt.Sprintf("unknown id %s", id))
		}
		if item.State != StateQueued {
			return invalid(fmt.Sprintf("draft %s is %s, not queued", id, item.State))
		}
	}
	return nil
}

// queuedLocked reports whether any Queued draft belongs to the running publish.
func (s *Store) queuedLocked() bool {
	for _, id := range s.current.queued {
		if _, ok := s.locked[id]; ok {
			return true
		}
	}
	return false
}

func without(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func equalOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
