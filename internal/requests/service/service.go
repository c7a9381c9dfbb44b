// Package service implements the request lifecycle engine.
//
// Every mutation is read-validate-write through Store.Execute, which holds
// the request exclusively for the duration of the callbacks and persists the
// returned outbox entry atomically with the state change.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"smartgn/internal/files"
	"smartgn/internal/platform/metrics"
	"smartgn/internal/platform/tracer"
	"smartgn/internal/requests/models"
	id "smartgn/pkg/domain"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/outbox"
	"smartgn/pkg/platform/sentinel"
	"smartgn/pkg/requestcontext"

	"github.com/google/uuid"
)

const (
	certificateDir     = "certificates"
	documentDir        = "documents"
	defaultCertDesc    = "Certificate document"
	defaultDocDesc     = "Supporting document"
	maxRequestTypeSize = 200
)

// Store persists requests.
// Error contract: FindByID and Execute return sentinel.ErrNotFound for an
// unknown id; Create returns sentinel.ErrInvalidInput for an unknown officer
// and sentinel.ErrNotFound for an unknown citizen. Errors returned by validate pass through unchanged.
type Store interface {
	Create(ctx context.Context, r *models.Request, event *outbox.Entry) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	ListAll(ctx context.Context) ([]*models.Request, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Request, error)
	Execute(ctx context.Context, requestID id.RequestID, validate func(*models.Request) error, mutate func(*models.Request) (*outbox.Entry, error)) (*models.Request, error)
	CountByOfficer(ctx context.Context, officerID id.OfficerID, filter models.CountFilter) (int, error)
	RecentByOfficer(ctx context.Context, officerID id.OfficerID, limit int) ([]*models.Request, error)
}

// OfficerDirectory resolves officer ids.
type OfficerDirectory interface {
	Exists(ctx context.Context, officerID uuid.UUID) (bool, error)
}

// FileStore keeps uploaded certificate and document bytes.
type FileStore interface {
	Store(ctx context.Context, subdir, name string, content []byte) (files.Ref, error)
	Remove(ctx context.Context, ref files.Ref) error
}

// Option configures a Service.
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

// Service owns the request state machine.
type Service struct {
	store    Store
	officers OfficerDirectory
	files    FileStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
}

// New creates the lifecycle engine.
func New(store Store, officers OfficerDirectory, fileStore FileStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		officers: officers,
		files:    fileStore,
	}
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

// Create opens a PENDING request assigned to an existing officer.
func (s *Service) Create(ctx context.Context, cmd models.CreateCommand) (_ *models.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "requests.create",
		tracer.String(tracer.AttrOfficerID, cmd.OfficerID.String()),
	)
	defer func() { span.End(err) }()

	cmd.RequestType = strings.TrimSpace(cmd.RequestType)
	switch {
	case cmd.UserID.IsNil():
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	case cmd.OfficerID.IsNil():
		return nil, dErrors.New(dErrors.CodeInvalidInput, "gn_id is required")
	case cmd.RequestType == "":
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request_type is required")
	case len(cmd.RequestType) > maxRequestTypeSize:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request_type is too long")
	}

	exists, err := s.officers.Exists(ctx, uuid.UUID(cmd.OfficerID))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve officer")
	}
	if !exists {
		return nil, dErrors.New(dErrors.CodeNotFound, "officer not found")
	}

	now := requestcontext.Now(ctx)
	requestDate := now
	if cmd.RequestDate != nil && !cmd.RequestDate.IsZero() {
		requestDate = *cmd.RequestDate
	}
	r := &models.Request{
		ID:          id.NewRequestID(),
		UserID:      cmd.UserID,
		OfficerID:   cmd.OfficerID,
		RequestType: cmd.RequestType,
		Description: strings.TrimSpace(cmd.Description),
		Status:      models.StatusPending,
		RequestDate: requestDate,
		CreatedAt:   now,
	}
	event, err := models.NewOutboxEntry(models.EventCreated, r, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode request event")
	}

	if err := s.store.Create(ctx, r, event); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidInput):
			return nil, dErrors.New(dErrors.CodeNotFound, "officer not found")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save request")
	}

	s.recordTransition(ctx, "request_created", r)
	return r, nil
}

// Verify moves a PENDING request to VERIFIED. The verification date
// defaults to the request time.
func (s *Service) Verify(ctx context.Context, requestID id.RequestID, verificationDate *time.Time) (_ *models.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "requests.verify", tracer.String(tracer.AttrRequestID, requestID.String()))
	defer func() { span.End(err) }()

	now := requestcontext.Now(ctx)
	at := now
	if verificationDate != nil && !verificationDate.IsZero() {
		at = *verificationDate
	}

	r, err := s.transition(ctx, requestID, "verify", requireTransition(models.StatusVerified),
		func(r *models.Request) (*outbox.Entry, error) {
			r.Status = models.StatusVerified
			r.VerificationDate = &at
			return models.NewOutboxEntry(models.EventVerified, r, now)
		})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, "request_verified", r)
	return r, nil
}

// Decline moves a PENDING request to DECLINED.
func (s *Service) Decline(ctx context.Context, requestID id.RequestID) (_ *models.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "requests.decline", tracer.String(tracer.AttrRequestID, requestID.String()))
	defer func() { span.End(err) }()

	now := requestcontext.Now(ctx)
	r, err := s.transition(ctx, requestID, "decline", requireTransition(models.StatusDeclined),
		func(r *models.Request) (*outbox.Entry, error) {
			r.Status = models.StatusDeclined
			return models.NewOutboxEntry(models.EventDeclined, r, now)
		})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, "request_declined", r)
	return r, nil
}

// Complete moves a VERIFIED request to COMPLETED, optionally replacing the
// certificate reference.
func (s *Service) Complete(ctx context.Context, requestID id.RequestID, certificateRef *string) (_ *models.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "requests.complete", tracer.String(tracer.AttrRequestID, requestID.String()))
	defer func() { span.End(err) }()

	now := requestcontext.Now(ctx)
	r, err := s.transition(ctx, requestID, "complete", requireTransition(models.StatusCompleted),
		func(r *models.Request) (*outbox.Entry, error) {
			r.Status = models.StatusCompleted
			if certificateRef != nil && strings.TrimSpace(*certificateRef) != "" {
				ref := strings.TrimSpace(*certificateRef)
				r.CertificateURL = &ref
			}
			return models.NewOutboxEntry(models.EventCompleted, r, now)
		})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, "request_completed", r)
	return r, nil
}

// AttachCertificate stores the certificate file and forces the request to
// COMPLETED. The media type is checked before anything else. A stored file
// whose transition then fails is removed again.
func (s *Service) AttachCertificate(ctx context.Context, requestID id.RequestID, upload models.FileUpload, description string) (_ *models.Receipt, err error) {
	ctx, span := s.tracer.Start(ctx, "requests.attach_certificate",
		tracer.String(tracer.AttrRequestID, requestID.String()),
		tracer.String(tracer.AttrContentType, upload.ContentType),
		tracer.Int64(tracer.AttrFileSize, int64(len(upload.Content))),
	)
	defer func() { span.End(err) }()

	if !models.IsAllowedCertificateType(upload.ContentType) {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("invalid file type: %s. Allowed types: JPEG, PNG, PDF", upload.ContentType))
	}
	if len(upload.Content) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no file uploaded")
	}

	current, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := requireCertificateSource(current); err != nil {
		s.rejected(ctx, "attach_certificate", current, err)
		return nil, err
	}

	now := requestcontext.Now(ctx)
	name := fmt.Sprintf("certificate-%s-%d.%s", requestID, now.UnixMilli(), upload.Extension())
	ref, err := s.files.Store(ctx, certificateDir, name, upload.Content)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store certificate")
	}

	r, err := s.transition(ctx, requestID, "attach_certificate", requireCertificateSource,
		func(r *models.Request) (*outbox.Entry, error) {
			url := ref.URL
			r.CertificateURL = &url
			r.Status = models.StatusCompleted
			return models.NewOutboxEntry(models.EventCertificateAttached, r, now)
		})
	if err != nil {
		if rmErr := s.files.Remove(context.WithoutCancel(ctx), ref); rmErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned certificate",
				"error", rmErr,
				"file", ref.URL,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, err
	}

	s.metrics.AddCertificateBytes(len(upload.Content))
	s.recordTransition(ctx, "certificate_attached", r, "file", ref.URL, "checksum", ref.Checksum)

	if description = strings.TrimSpace(description); description == "" {
		description = defaultCertDesc
	}
	return &models.Receipt{
		RequestID:        r.ID,
		FileName:         ref.Name,
		FilePath:         ref.URL,
		Size:             ref.Size,
		Checksum:         ref.Checksum,
		Description:      description,
		OriginalFileName: upload.Filename,
		Status:           r.Status,
		UploadedAt:       now,
	}, nil
}

// AttachDocument stores a supporting document for an existing request. The
// request status is left unchanged.
func (s *Service) AttachDocument(ctx context.Context, requestID id.RequestID, upload models.FileUpload, description string) (_ *models.Receipt, err error) {
	ctx, span := s.tracer.Start(ctx, "requests.attach_document",
		tracer.String(tracer.AttrRequestID, requestID.String()),
		tracer.Int64(tracer.AttrFileSize, int64(len(upload.Content))),
	)
	defer func() { span.End(err) }()

	if len(upload.Content) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no file uploaded")
	}
	if _, err := s.Get(ctx, requestID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	name := fmt.Sprintf("document-%s-%d.%s", requestID, now.UnixMilli(), upload.Extension())
	ref, err := s.files.Store(ctx, documentDir, name, upload.Content)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document")
	}

	if description = strings.TrimSpace(description); description == "" {
		description = defaultDocDesc
	}
	s.metrics.IncDocumentAttached()
	s.logAudit(ctx, "document_attached",
		"service_request_id", requestID.String(),
		"file", ref.URL,
		"checksum", ref.Checksum,
	)
	return &models.Receipt{
		RequestID:        requestID,
		FileName:         ref.Name,
		FilePath:         ref.URL,
		Size:             ref.Size,
		Checksum:         ref.Checksum,
		Description:      description,
		OriginalFileName: upload.Filename,
		UploadedAt:       now,
	}, nil
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	r, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		return nil, translate(err, "failed to load request")
	}
	return r, nil
}

// GetForUser returns a request only if userID owns it. Other citizens'
// requests are reported as not found.
func (s *Service) GetForUser(ctx context.Context, requestID id.RequestID, userID id.UserID) (*models.Request, error) {
	r, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, errRequestNotFound
	}
	return r, nil
}

// ListAll returns every request, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*models.Request, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
	}
	return all, nil
}

// ListByUser returns a citizen's requests, newest first.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Request, error) {
	mine, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
	}
	return mine, nil
}

var errRequestNotFound = dErrors.New(dErrors.CodeNotFound, "request not found")

func (s *Service) transition(
	ctx context.Context,
	requestID id.RequestID,
	op string,
	validate func(*models.Request) error,
	mutate func(*models.Request) (*outbox.Entry, error),
) (*models.Request, error) {
	var rejectedFrom *models.Request
	r, err := s.store.Execute(ctx, requestID,
		func(r *models.Request) error {
			if err := validate(r); err != nil {
				rejectedFrom = r.Clone()
				return err
			}
			return nil
		},
		mutate,
	)
	if err != nil {
		if rejectedFrom != nil {
			s.rejected(ctx, op, rejectedFrom, err)
		}
		return nil, translate(err, "failed to update request")
	}
	return r, nil
}

func requireTransition(next models.Status) func(*models.Request) error {
	return func(r *models.Request) error {
		if !r.Status.CanTransitionTo(next) {
			return dErrors.New(dErrors.CodeInvalidTransition,
				fmt.Sprintf("cannot move request from %s to %s", r.Status, next))
		}
		return nil
	}
}

func requireCertificateSource(r *models.Request) error {
	if !r.Status.AcceptsCertificate() {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot upload certificate for request with status: %s", r.Status))
	}
	return nil
}

// translate maps store errors to domain errors exactly once. Domain errors
// from validate callbacks pass through.
func translate(err error, msg string) error {
	var domainErr *dErrors.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return errRequestNotFound
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
