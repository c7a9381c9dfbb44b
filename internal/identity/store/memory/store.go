// Package memory is an in-process principal store for tests and
// deployments without DATABASE_URL.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"smartgn/internal/identity/models"
	"smartgn/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// Store keeps one principal collection in memory. Email is unique per store.
type Store[P models.Principal] struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]P
	byEmail map[string]uuid.UUID
}

// New creates an empty store.
func New[P models.Principal]() *Store[P] {
	return &Store[P]{
		byID:    make(map[uuid.UUID]P),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Save inserts p, or replaces the principal with the same id.
func (s *Store[P]) Save(_ context.Context, p P) error {
	acc := p.Base()
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byEmail[acc.Email]; ok && owner != acc.ID {
		return fmt.Errorf("email %s: %w", acc.Email, sentinel.ErrConflict)
	}
	if prev, ok := s.byID[acc.ID]; ok {
		delete(s.byEmail, prev.Base().Email)
	}
	s.byID[acc.ID] = p
	s.byEmail[acc.Email] = acc.ID
	return nil
}

func (s *Store[P]) FindByID(_ context.Context, id uuid.UUID) (P, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		var zero P
		return zero, fmt.Errorf("principal %s: %w", id, sentinel.ErrNotFound)
	}
	return p, nil
}

func (s *Store[P]) FindByEmail(_ context.Context, email string) (P, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		var zero P
		return zero, fmt.Errorf("principal with email %s: %w", email, sentinel.ErrNotFound)
	}
	return s.byID[id], nil
}

// ListAll returns every principal, newest first.
func (s *Store[P]) ListAll(_ context.Context) ([]P, error) {
	s.mu.RLock()
	out := make([]P, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b P) int {
		return b.Base().CreatedAt.Compare(a.Base().CreatedAt)
	})
	return out, nil
}
