// Package memory keeps the service-type catalog in process.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"smartgn/internal/servicetypes/models"
	id "smartgn/pkg/domain"
	"smartgn/pkg/platform/sentinel"
)

type Store struct {
	mu     sync.RWMutex
	byID   map[id.ServiceTypeID]*models.ServiceType
	byName map[string]id.ServiceTypeID
}

func New() *Store {
	return &Store{
		byID:   make(map[id.ServiceTypeID]*models.ServiceType),
		byName: make(map[string]id.ServiceTypeID),
	}
}

// Save inserts st. A second type with the same name is a conflict.
func (s *Store) Save(_ context.Context, st *models.ServiceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byName[st.Name]; ok && owner != st.ID {
		return fmt.Errorf("service type %q: %w", st.Name, sentinel.ErrConflict)
	}
	cp := *st
	s.byID[st.ID] = &cp
	s.byName[st.Name] = st.ID
	return nil
}

func (s *Store) FindByID(_ context.Context, typeID id.ServiceTypeID) (*models.ServiceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byID[typeID]
	if !ok {
		return nil, fmt.Errorf("service type %s: %w", typeID, sentinel.ErrNotFound)
	}
	cp := *st
	return &cp, nil
}

func (s *Store) FindByName(_ context.Context, name string) (*models.ServiceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	typeID, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("service type %q: %w", name, sentinel.ErrNotFound)
	}
	cp := *s.byID[typeID]
	return &cp, nil
}

// List returns service types ordered by name.
func (s *Store) List(_ context.Context, includeInactive bool) ([]*models.ServiceType, error) {
	s.mu.RLock()
	out := make([]*models.ServiceType, 0, len(s.byID))
	for _, st := range s.byID {
		if !includeInactive && !st.IsActive {
			continue
		}
		cp := *st
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *models.ServiceType) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}
