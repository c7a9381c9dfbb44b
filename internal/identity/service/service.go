// Package service implements the credential issuer shared by both principal collections.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"time"

	"smartgn/internal/authz"
	"smartgn/internal/identity/models"
	"smartgn/internal/identity/token"
	"smartgn/internal/platform/metrics"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/sentinel"
	"smartgn/pkg/requestcontext"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

// errInvalidCredentials is returned for unknown emails and wrong passwords alike.
var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")

// Store persists one principal collection.
// Error contract: Find methods return sentinel.ErrNotFound, Save returns
// sentinel.ErrConflict for a duplicate email.
type Store[P models.Principal] interface {
	Save(ctx context.Context, p P) error
	FindByID(ctx context.Context, id uuid.UUID) (P, error)
	FindByEmail(ctx context.Context, email string) (P, error)
	ListAll(ctx context.Context) ([]P, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, sub token.Subject) (token.Token, error)
}

// RevocationList stores revoked token ids until they expire.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// LoginGuard throttles repeated failed logins for one email.
type LoginGuard interface {
	Check(ctx context.Context, kind, email string) error
	Failure(ctx context.Context, kind, email string) error
	Success(ctx context.Context, kind, email string) error
}

// Option configures a CredentialIssuer.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	hashCost int
	guard    LoginGuard
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLoginGuard enables login lockout.
func WithLoginGuard(g LoginGuard) Option {
	return func(o *options) { o.guard = g }
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(o *options) { o.hashCost = cost }
}

// CredentialIssuer registers and authenticates the principals of one collection.
// The same implementation serves citizens and officers; only kind, role and
// the principal constructor differ.
type CredentialIssuer[P models.Principal] struct {
	store  Store[P]
	tokens TokenIssuer
	kind   models.Kind
	role   authz.Role
	build  func(models.Account, models.RegisterInput) P

	logger    *slog.Logger
	metrics   *metrics.Metrics
	guard     LoginGuard
	hashCost  int
	dummyHash []byte
}

// New creates an issuer that assigns role to every principal it registers.
func New[P models.Principal](
	store Store[P],
	tokens TokenIssuer,
	kind models.Kind,
	role authz.Role,
	build func(models.Account, models.RegisterInput) P,
	opts ...Option,
) *CredentialIssuer[P] {
	o := options{hashCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	// Unknown emails are compared against this hash so both failure paths cost one bcrypt.
	dummy := make([]byte, 16)
	_, _ = rand.Read(dummy)
	dummyHash, err := bcrypt.GenerateFromPassword(dummy, o.hashCost)
	if err != nil {
		panic("identity: generate dummy hash: " + err.Error())
	}

	return &CredentialIssuer[P]{
		store:     store,
		tokens:    tokens,
		kind:      kind,
		role:      role,
		build:     build,
		logger:    o.logger,
		metrics:   o.metrics,
		guard:     o.guard,
		hashCost:  o.hashCost,
		dummyHash: dummyHash,
	}
}

// NewCitizenIssuer wires the citizen collection with role USER.
func NewCitizenIssuer(store Store[*models.Citizen], tokens TokenIssuer, opts ...Option) *CredentialIssuer[*models.Citizen] {
	return New(store, tokens, models.KindUser, authz.RoleUser, models.NewCitizen, opts...)
}

// NewOfficerIssuer wires the officer collection with the given role, which is
// VILLAGE_OFFICER for self-registration and ADMIN for provisioning.
func NewOfficerIssuer(store Store[*models.Officer], tokens TokenIssuer, role authz.Role, opts ...Option) *CredentialIssuer[*models.Officer] {
	return New(store, tokens, models.KindVillageOfficer, role, models.NewOfficer, opts...)
}

// Kind returns the collection this issuer serves.
func (s *CredentialIssuer[P]) Kind() models.Kind {
	return s.kind
}

// Register creates a principal with a bcrypt-hashed password.
func (s *CredentialIssuer[P]) Register(ctx context.Context, in models.RegisterInput) (P, error) {
	var zero P
	in.Normalize()
	if in.Email == "" {
		return zero, dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if len(in.Password) < MinPasswordLength {
		return zero, dErrors.New(dErrors.CodeInvalidInput, "password must be at least 6 characters")
	}
	if len(in.Password) > MaxPasswordLength {
		return zero, dErrors.New(dErrors.CodeInvalidInput, "password must be at most 72 bytes")
	}

	_, err := s.store.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return zero, dErrors.New(dErrors.CodeConflict, "email already registered")
	case !errors.Is(err, sentinel.ErrNotFound):
		return zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	p := s.build(models.Account{
		ID:           uuid.New(),
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         s.role,
		CreatedAt:    requestcontext.Now(ctx),
	}, in)

	if err := s.store.Save(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return zero, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save principal")
	}

	s.metrics.IncPrincipalRegistered(s.kind.String())
	s.logAudit(ctx, "principal_registered",
		"principal_id", p.Base().ID.String(),
		"kind", s.kind.String(),
		"role", string(s.role),
	)
	return p, nil
}

// Authenticate checks credentials and issues a session token.
func (s *CredentialIssuer[P]) Authenticate(ctx context.Context, email, password string) (P, token.Token, error) {
	var zero P
	email = models.NormalizeEmail(email)

	if s.guard != nil {
		if err := s.guard.Check(ctx, s.kind.String(), email); err != nil {
			s.authFailure(ctx, "locked_out", dErrors.HasCode(err, dErrors.CodeInternal), "error", err)
			return zero, token.Token{}, err
		}
	}

	p, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "lookup_failed", true, "error", err)
			return zero, token.Token{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up principal")
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.authFailure(ctx, "unknown_email", false)
		s.recordFailure(ctx, email)
		return zero, token.Token{}, errInvalidCredentials
	}

	acc := p.Base()
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		s.authFailure(ctx, "wrong_password", false, "principal_id", acc.ID.String())
		s.recordFailure(ctx, email)
		return zero, token.Token{}, errInvalidCredentials
	}

	tok, err := s.tokens.Issue(ctx, token.Subject{
		ID:    acc.ID,
		Email: acc.Email,
		Role:  acc.Role,
		Kind:  s.kind,
	})
	if err != nil {
		return zero, token.Token{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	if s.guard != nil {
		if err := s.guard.Success(ctx, s.kind.String(), email); err != nil {
			s.logger.WarnContext(ctx, "failed to clear login failures", "error", err)
		}
	}
	s.metrics.IncLogin(s.kind.String())
	s.logAudit(ctx, "principal_logged_in",
		"principal_id", acc.ID.String(),
		"kind", s.kind.String(),
		"device", requestcontext.DeviceLabel(ctx),
	)
	return p, tok, nil
}

// Get returns the principal with id.
func (s *CredentialIssuer[P]) Get(ctx context.Context, id uuid.UUID) (P, error) {
	var zero P
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return zero, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load principal")
	}
	return p, nil
}

// List returns every principal in the collection, newest first.
func (s *CredentialIssuer[P]) List(ctx context.Context) ([]P, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list principals")
	}
	return all, nil
}

// Exists reports whether id resolves in this collection to a principal
// holding the issuer's role. Admins share the officer collection but do not
// count as village officers.
func (s *CredentialIssuer[P]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	p, err := s.Get(ctx, id)
	switch {
	case err == nil:
		return p.Base().Role == s.role, nil
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		return false, nil
	default:
		return false, err
	}
}
