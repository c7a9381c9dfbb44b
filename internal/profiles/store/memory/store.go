// Package memory keeps citizen profiles in process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"smartgn/internal/profiles/models"
	id "smartgn/pkg/domain"
	"smartgn/pkg/platform/sentinel"
)

type Store struct {
	mu       sync.RWMutex
	profiles map[id.UserID]models.Profile
}

func New() *Store {
	return &Store{profiles: make(map[id.UserID]models.Profile)}
}

// Upsert creates or replaces the profile keyed by p.UserID.
func (s *Store) Upsert(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = clone(*p)
	return nil
}

func (s *Store) FindByUserID(_ context.Context, userID id.UserID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, sentinel.ErrNotFound)
	}
	cp := clone(p)
	return &cp, nil
}

// FindByNIC returns the most recently updated profile carrying nic.
func (s *Store) FindByNIC(_ context.Context, nic string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.Profile
	for _, p := range s.profiles {
		if p.NIC != nic {
			continue
		}
		if found == nil || p.UpdatedAt.After(found.UpdatedAt) {
			cp := clone(p)
			found = &cp
		}
	}
	if found == nil {
		return nil, fmt.Errorf("profile with nic: %w", sentinel.ErrNotFound)
	}
	return found, nil
}

func clone(p models.Profile) models.Profile {
	if p.Birthday != nil {
		b := *p.Birthday
		p.Birthday = &b
	}
	return p
}
