// Package memory is an in-process outbox used when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"smartgn/pkg/platform/outbox"
	"smartgn/pkg/platform/sentinel"

	"github.com/google/uuid"
)

type Store struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*outbox.Entry
}

func New() *Store {
	return &Store{entries: make(map[uuid.UUID]*outbox.Entry)}
}

func (s *Store) Append(_ context.Context, entry *outbox.Entry) error {
	if entry == nil {
		return fmt.Errorf("outbox entry is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *Store) FetchUnprocessed(_ context.Context, limit int) ([]*outbox.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]*outbox.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.IsPending() {
			cp := *e
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) MarkProcessed(_ context.Context, id uuid.UUID, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || !e.IsPending() {
		return fmt.Errorf("outbox entry %s: %w", id, sentinel.ErrNotFound)
	}
	e.ProcessedAt = &processedAt
	return nil
}

func (s *Store) CountPending(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.entries {
		if e.IsPending() {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.entries {
		if e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// Entries returns a snapshot of every entry, oldest first.
func (s *Store) Entries() []*outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*outbox.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
