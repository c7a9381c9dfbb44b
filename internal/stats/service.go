package stats

import (
	"context"
	"log/slog"
	"time"

	identity "smartgn/internal/identity/models"
	"smartgn/internal/platform/tracer"
	"smartgn/internal/requests/models"
	id "smartgn/pkg/domain"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/requestcontext"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	recentLimit    = 5
	unknownCitizen = "Unknown"
)

// Store is the read side of the request store.
type Store interface {
	ListAll(ctx context.Context) ([]*models.Request, error)
	CountByOfficer(ctx context.Context, officerID id.OfficerID, filter models.CountFilter) (int, error)
	RecentByOfficer(ctx context.Context, officerID id.OfficerID, limit int) ([]*models.Request, error)
}

// CitizenDirectory resolves the citizen that owns a request.
type CitizenDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*identity.Citizen, error)
}

// Counts are the dashboard headline numbers.
// CompletedRequests is everything that has left PENDING.
type Counts struct {
	TotalRequests     int `json:"totalRequests"`
	PendingRequests   int `json:"pendingRequests"`
	VerifiedToday     int `json:"verifiedToday"`
	CompletedRequests int `json:"completedRequests"`
}

// RecentRequest is one row of the dashboard's recent list.
type RecentRequest struct {
	ID          id.RequestID  `json:"id"`
	UserName    string        `json:"userName"`
	RequestType string        `json:"requestType"`
	Date        time.Time     `json:"date"`
	Status      models.Status `json:"status"`
}

// Dashboard is an officer's overview of their assigned requests.
type Dashboard struct {
	Stats          Counts          `json:"stats"`
	RecentRequests []RecentRequest `json:"recentRequests"`
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// Service computes statistics and dashboards.
type Service struct {
	store    Store
	citizens CitizenDirectory
	logger   *slog.Logger
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

// Statistics summarizes every request.
func (s *Service) Statistics(ctx context.Context) (_ Summary, err error) {
	ctx, span := s.tracer.Start(ctx, "stats.statistics")
	defer func() { span.End(err) }()

	all, err := s.store.ListAll(ctx)
	if err != nil {
		return Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load requests")
	}
	return Summarize(all), nil
}

// Dashboard returns the officer's counts and five most recent requests.
// VerifiedToday counts requests whose verification date falls on the
// current UTC day.
func (s *Service) Dashboard(ctx context.Context, officerID id.OfficerID) (_ *Dashboard, err error) {
	ctx, span := s.tracer.Start(ctx, "stats.dashboard",
		tracer.String(tracer.AttrOfficerID, officerID.String()),
	)
	defer func() { span.End(err) }()

	dayStart, dayEnd := id.DayBounds(requestcontext.Now(ctx))
	var counts Counts

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountByOfficer(gctx, officerID, models.CountFilter{})
		counts.TotalRequests = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountByOfficer(gctx, officerID, models.CountFilter{Status: models.StatusPending})
		counts.PendingRequests = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountByOfficer(gctx, officerID, models.CountFilter{
			Status:       models.StatusVerified,
			VerifiedFrom: &dayStart,
			VerifiedTo:   &dayEnd,
		})
		counts.VerifiedToday = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count requests")
	}
	counts.CompletedRequests = counts.TotalRequests - counts.PendingRequests

	recent, err := s.store.RecentByOfficer(ctx, officerID, recentLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load recent requests")
	}

	rows := make([]RecentRequest, 0, len(recent))
	for _, r := range recent {
		rows = append(rows, RecentRequest{
			ID:          r.ID,
			UserName:    s.displayName(ctx, r.UserID),
			RequestType: r.RequestType,
			Date:        r.RequestDate,
			Status:      r.Status,
		})
	}
	return &Dashboard{Stats: counts, RecentRequests: rows}, nil
}

// displayName is the owning citizen's email. Lookup failures degrade to
// "Unknown" rather than failing the dashboard.
func (s *Service) displayName(ctx context.Context, userID id.UserID) string {
	c, err := s.citizens.Get(ctx, uuid.UUID(userID))
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.logger.WarnContext(ctx, "failed to resolve citizen for dashboard",
				"error", err,
				"user_id", userID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return unknownCitizen
	}
	return c.Email
}
