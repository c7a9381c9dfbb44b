// Package service manages citizen profiles and the staff-side citizen lookup.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	identity "smartgn/internal/identity/models"
	"smartgn/internal/platform/metrics"
	"smartgn/internal/platform/privacy"
	"smartgn/internal/platform/tracer"
	"smartgn/internal/profiles/models"
	id "smartgn/pkg/domain"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/sentinel"
	"smartgn/pkg/requestcontext"
	"smartgn/pkg/validation"

	"github.com/google/uuid"
)

// Store persists profiles.
// Error contract: Find methods return sentinel.ErrNotFound; Upsert returns
// sentinel.ErrInvalidInput when the citizen row does not exist.
type Store interface {
	Upsert(ctx context.Context, p *models.Profile) error
	FindByUserID(ctx context.Context, userID id.UserID) (*models.Profile, error)
	FindByNIC(ctx context.Context, nic string) (*models.Profile, error)
}

// CitizenDirectory is the citizen collection.
type CitizenDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context) ([]*identity.Citizen, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

type Service struct {
	store    Store
	citizens CitizenDirectory
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
}

func New(store Store, citizens CitizenDirectory, opts ...Option) *Service {
	s := &Service{store: store, citizens: citizens}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	return s
}

var (
	errNoProfile    = dErrors.New(dErrors.CodeNotFound, "profile not found")
	errUnknownUser  = dErrors.New(dErrors.CodeInvalidInput, "user does not exist")
	errMalformedNIC = dErrors.New(dErrors.CodeInvalidInput, "nic must be a valid NIC number")
)

func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	p, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errNoProfile
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

// Upsert creates or replaces the citizen's profile.
func (s *Service) Upsert(ctx context.Context, userID id.UserID, in models.Input) (_ *models.Profile, err error) {
	ctx, span := s.tracer.Start(ctx, "profiles.upsert", tracer.String(tracer.AttrUserID, userID.String()))
	defer func() { span.End(err) }()

	in.Normalize()
	if in.NIC != "" && !validation.IsNIC(in.NIC) {
		return nil, errMalformedNIC
	}
	birthday, err := id.ParseOptionalDate(in.Birthday)
	if err != nil {
		return nil, err
	}

	exists, err := s.citizens.Exists(ctx, uuid.UUID(userID))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve citizen")
	}
	if !exists {
		return nil, errUnknownUser
	}

	p := &models.Profile{
		UserID:    userID,
		FullName:  in.FullName,
		Address:   in.Address,
		NIC:       in.NIC,
		Email:     in.Email,
		Telephone: in.Telephone,
		District:  in.District,
		Division:  in.Division,
		Birthday:  birthday,
		UpdatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Upsert(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrInvalidInput) {
			return nil, errUnknownUser
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save profile")
	}

	s.metrics.IncProfileUpserted()
	s.logger.InfoContext(ctx, "profile_upserted",
		"event", "profile_upserted",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
		"nic_fp", privacy.FingerprintNIC(p.NIC),
	)
	return p, nil
}

// List returns every registered citizen without credentials.
func (s *Service) List(ctx context.Context) ([]*identity.Citizen, error) {
	all, err := s.citizens.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list citizens")
	}
	return all, nil
}

// SearchByNIC finds the profile that carries nic.
func (s *Service) SearchByNIC(ctx context.Context, nic string) (_ *models.Profile, err error) {
	nic = strings.ToUpper(strings.TrimSpace(nic))
	ctx, span := s.tracer.Start(ctx, "profiles.search_by_nic", tracer.String(tracer.AttrNIC, privacy.FingerprintNIC(nic)))
	defer func() { span.End(err) }()

	if !validation.IsNIC(nic) {
		return nil, errMalformedNIC
	}
	p, err := s.store.FindByNIC(ctx, nic)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no citizen with that NIC")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search profiles")
	}
	return p, nil
}
