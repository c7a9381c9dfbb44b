// Package service manages the service-type catalog.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"smartgn/internal/platform/metrics"
	"smartgn/internal/servicetypes/models"
	id "smartgn/pkg/domain"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/sentinel"
	"smartgn/pkg/requestcontext"
)

// Store persists service types.
// Error contract: Find methods return sentinel.ErrNotFound, Save returns
// sentinel.ErrConflict for a duplicate name.
type Store interface {
	Save(ctx context.Context, st *models.ServiceType) error
	FindByID(ctx context.Context, typeID id.ServiceTypeID) (*models.ServiceType, error)
	FindByName(ctx context.Context, name string) (*models.ServiceType, error)
	List(ctx context.Context, includeInactive bool) ([]*models.ServiceType, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Create adds a service type. isActive defaults to true.
func (s *Service) Create(ctx context.Context, name, description string, isActive *bool) (*models.ServiceType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}

	_, err := s.store.FindByName(ctx, name)
	switch {
	case err == nil:
		return nil, duplicateName(name)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check service type name")
	}

	active := true
	if isActive != nil {
		active = *isActive
	}
	st := &models.ServiceType{
		ID:          id.NewServiceTypeID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    active,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Save(ctx, st); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, duplicateName(name)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save service type")
	}

	s.metrics.IncServiceTypeCreated()
	s.logger.InfoContext(ctx, "service_type_created",
		"event", "service_type_created",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"service_type_id", st.ID.String(),
		"name", st.Name,
	)
	return st, nil
}

// List returns the catalog ordered by name. Inactive types are included
// only on request.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]*models.ServiceType, error) {
	all, err := s.store.List(ctx, includeInactive)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list service types")
	}
	return all, nil
}

func (s *Service) Get(ctx context.Context, typeID id.ServiceTypeID) (*models.ServiceType, error) {
	st, err := s.store.FindByID(ctx, typeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("service type with ID %q not found", typeID))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service type")
	}
	return st, nil
}

func duplicateName(name string) error {
	return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("service type with name %q already exists", name))
}
