package service

import (
	"context"
	"log/slog"

	"smartgn/internal/platform/metrics"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/requestcontext"
)

// Sessions ends sessions of either collection by revoking their tokens.
type Sessions struct {
	revocations RevocationList
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewSessions creates a session service. Only the logger and metrics options apply.
func NewSessions(revocations RevocationList, opts ...Option) *Sessions {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Sessions{revocations: revocations, logger: o.logger, metrics: o.metrics}
}

// Revoke puts the caller's token on the revocation list for its remaining lifetime.
func (s *Sessions) Revoke(ctx context.Context, p requestcontext.Principal) error {
	if p.TokenID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "token has no id")
	}
	ttl := p.ExpiresAt.Sub(requestcontext.Now(ctx))
	if err := s.revocations.Revoke(ctx, p.TokenID, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}

	s.metrics.IncLogout()
	s.logger.InfoContext(ctx, "session_revoked",
		"event", "session_revoked",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"principal_id", p.Subject,
		"kind", p.Kind,
	)
	return nil
}

// IsRevoked lets the auth middleware consult the list through this service.
func (s *Sessions) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revocations.IsRevoked(ctx, jti)
}
