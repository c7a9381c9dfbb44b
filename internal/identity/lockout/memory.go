package lockout

import (
	"context"
	"time"

	"smartgn/pkg/platform/sync"
	"smartgn/pkg/requestcontext"
)

type entry struct {
	failures    int
	windowEnds  time.Time
	lockedUntil time.Time
}

// MemoryStore keeps lockout state in process.
type MemoryStore struct {
	entries *sync.ShardedMap[entry]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: sync.NewShardedMap[entry]()}
}

func (s *MemoryStore) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	now := requestcontext.Now(ctx)
	e := s.entries.Update(key, func(cur entry, exists bool) (entry, bool) {
		if !exists || !now.Before(cur.windowEnds) {
			cur.failures = 0
			cur.windowEnds = now.Add(window)
		}
		cur.failures++
		return cur, true
	})
	return e.failures, nil
}

func (s *MemoryStore) LockedUntil(_ context.Context, key string) (time.Time, error) {
	e, _ := s.entries.Get(key)
	return e.lockedUntil, nil
}

func (s *MemoryStore) Lock(_ context.Context, key string, until time.Time) error {
	s.entries.Update(key, func(cur entry, _ bool) (entry, bool) {
		cur.lockedUntil = until
		return cur, true
	})
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}
