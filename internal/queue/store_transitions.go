package queue

import (
	"context"
	"fmt"

	"tweetqueue/internal/services"
)

// BeginRun snapshots the Queued ids in position order and pins them to a
// publish run in one step. While pinned they cannot be removed and the
// queued order cannot change. Drafts created afterwards are not pinned.
func (s *Store) BeginRun() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]string(nil), s.current.queued...)
	s.locked = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.locked[id] = struct{}{}
	}
	return ids
}

// EndRun releases every pin taken by BeginRun.
func (s *Store) EndRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = make(map[string]struct{})
}

// MarkPublishing moves a Queued draft into Publishing. At most one draft may
// be Publishing at a time.
func (s *Store) MarkPublishing(ctx context.Context, id string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.current.require(id, "mark_publishing", StateQueued)
	if err != nil {
		return Item{}, err
	}
	for otherID, other := range s.current.items {
		if other.State == StatePublishing {
			return Item{}, services.Wrap(services.ErrInvalidState, "queue", "mark_publishing",
				fmt.Sprintf("draft %s is already publishing", otherID), nil)
		}
	}

	next := s.current.clone()
	item.State = StatePublishing
	item.Position = -1
	item.UpdatedAt = s.now().UTC()
	next.items[id] = item
	next.queued = without(next.queued, id)
	if err := s.commit(ctx, "mark_publishing", next); err != nil {
		return Item{}, err
	}
	return item, nil
}

// MarkPublished records a successful publish.
func (s *Store) MarkPublished(ctx context.Context, id, externalID string, attempts int) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.current.require(id, "mark_published", StatePublishing)
	if err != nil {
		return Item{}, err
	}
	now := s.now().UTC()
	item.State = StatePublished
	item.ExternalID = externalID
	item.Attempts = attempts
	item.UpdatedAt = now
	item.PublishedAt = now

	next := s.current.clone()
	next.items[id] = item
	if err := s.commit(ctx, "mark_published", next); err != nil {
		detail := UnsavedDetail
		if externalID != "" {
			detail = fmt.Sprintf("published as %s but %s", externalID, UnsavedDetail)
		}
		return s.releaseUnsaved(ctx, id, externalID, detail, attempts), err
	}
	return item, nil
}

// MarkFailed records a terminal failure for the Publishing draft.
func (s *Store) MarkFailed(ctx context.Context, id string, reason FailureReason, detail string, attempts int) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.current.require(id, "mark_failed", StatePublishing)
	if err != nil {
		return Item{}, err
	}
	if reason == "" {
		reason = FailureUnknown
	}
	item.State = StateFailed
	item.FailureReason = reason
	item.FailureDetail = detail
	item.Attempts = attempts
	item.UpdatedAt = s.now().UTC()

	next := s.current.clone()
	next.items[id] = item
	if err := s.commit(ctx, "mark_failed", next); err != nil {
		return s.releaseUnsaved(ctx, id, "", string(reason)+": "+detail+"; "+UnsavedDetail, attempts), err
	}
	return item, nil
}

// releaseUnsaved runs after a terminal write fails. A draft left Publishing
// would stop every later run, so it becomes Failed(unknown) in memory, the
// state ReconcileInterrupted gives it after a restart. The save is tried once
// more; on failure disk still holds Publishing until the next reconcile.
func (s *Store) releaseUnsaved(ctx context.Context, id, externalID, detail string, attempts int) Item {
	item := s.current.items[id]
	item.State = StateFailed
	item.FailureReason = FailureUnknown
	item.FailureDetail = detail
	item.ExternalID = externalID
	item.Attempts = attempts
	item.UpdatedAt = s.now().UTC()

	next := s.current.clone()
	next.items[id] = item
	next.rank()
	if s.persist != nil {
		_ = s.persist.SaveQueue(ctx, next.ordered())
	}
	s.current = next
	return item
}

// ReconcileInterrupted fails every draft left Publishing by a previous
// process. Its external state is unknown, so it needs a manual re-publish.
func (s *Store) ReconcileInterrupted(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.clone()
	var reconciled []string
	now := s.now().UTC()
	for id, item := range next.items {
		if item.State != StatePublishing {
			continue
		}
		item.State = StateFailed
		item.FailureReason = FailureUnknown
		item.FailureDetail = InterruptedDetail
		item.UpdatedAt = now
		next.items[id] = item
		reconciled = append(reconciled, id)
	}
	if len(reconciled) == 0 {
		return nil, nil
	}
	if err := s.commit(ctx, "reconcile", next); err != nil {
		return nil, err
	}
	return reconciled, nil
}

func (st state) require(id, operation string, want State) (Item, error) {
	item, ok := st.items[id]
	if !ok {
		return Item{}, services.Wrap(services.ErrNotFound, "queue", operation, fmt.Sprintf("draft %s not found", id), nil)
	}
	if item.State != want {
		return Item{}, services.Wrap(services.ErrInvalidState, "queue", operation,
			fmt.Sprintf("draft %s is %s, expected %s", id, item.State, want), nil)
	}
	return item, nil
}
