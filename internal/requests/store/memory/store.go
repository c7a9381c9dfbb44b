// Package memory is the in-process request store used when no database is
// configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"smartgn/internal/requests/models"
	id "smartgn/pkg/domain"
	"smartgn/pkg/platform/outbox"
	"smartgn/pkg/platform/sentinel"
	platformsync "smartgn/pkg/platform/sync"
)

// Store keeps requests in a map. Execute serializes callers per request id
// through a sharded mutex; the map itself has its own lock so reads never
// wait on a running Execute.
type Store struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.Request
	rowLocks *platformsync.ShardedMutex
	outbox   outbox.Store
}

// New creates a store that appends lifecycle events to events.
func New(events outbox.Store) *Store {
	return &Store{
		requests: make(map[id.RequestID]*models.Request),
		rowLocks: platformsync.NewShardedMutex(),
		outbox:   events,
	}
}

func (s *Store) Create(ctx context.Context, r *models.Request, event *outbox.Entry) error {
	key := r.ID.String()
	s.rowLocks.Lock(key)
	defer s.rowLocks.Unlock(key)

	if err := s.appendEvent(ctx, event); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = r.Clone()
	return nil
}

func (s *Store) FindByID(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *Store) ListAll(_ context.Context) ([]*models.Request, error) {
	return s.collect(func(*models.Request) bool { return true }), nil
}

func (s *Store) ListByUser(_ context.Context, userID id.UserID) ([]*models.Request, error) {
	return s.collect(func(r *models.Request) bool { return r.UserID == userID }), nil
}

// Execute runs validate and mutate on a copy of the request while holding
// its row lock, then stores the copy together with the returned event.
func (s *Store) Execute(
	ctx context.Context,
	requestID id.RequestID,
	validate func(*models.Request) error,
	mutate func(*models.Request) (*outbox.Entry, error),
) (*models.Request, error) {
	key := requestID.String()
	s.rowLocks.Lock(key)
	defer s.rowLocks.Unlock(key)

	r, err := s.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	event, err := mutate(r)
	if err != nil {
		return nil, err
	}
	if err := s.appendEvent(ctx, event); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.requests[requestID] = r.Clone()
	s.mu.Unlock()
	return r, nil
}

func (s *Store) CountByOfficer(_ context.Context, officerID id.OfficerID, filter models.CountFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.requests {
		if r.OfficerID == officerID && filter.Matches(r) {
			n++
		}
	}
	return n, nil
}

func (s *Store) RecentByOfficer(_ context.Context, officerID id.OfficerID, limit int) ([]*models.Request, error) {
	out := s.collect(func(r *models.Request) bool { return r.OfficerID == officerID })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) appendEvent(ctx context.Context, event *outbox.Entry) error {
	if event == nil || s.outbox == nil {
		return nil
	}
	return s.outbox.Append(ctx, event)
}

// collect returns copies of matching requests, newest first.
func (s *Store) collect(match func(*models.Request) bool) []*models.Request {
	s.mu.RLock()
	out := make([]*models.Request, 0, len(s.requests))
	for _, r := range s.requests {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
