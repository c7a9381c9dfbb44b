package service

import (
	"context"

	"smartgn/pkg/requestcontext"
)

func (s *CredentialIssuer[P]) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

func (s *CredentialIssuer[P]) authFailure(ctx context.Context, reason string, isError bool, attributes ...any) {
	s.metrics.IncAuthFailure(reason)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", "auth_failed", "reason", reason, "kind", s.kind.String(), "log_type", "standard")
	if isError {
		s.logger.ErrorContext(ctx, "auth_failed", args...)
		return
	}
	s.logger.WarnContext(ctx, "auth_failed", args...)
}

// recordFailure counts a failed login toward lockout. Counting problems are
// logged and never change the credential error.
func (s *CredentialIssuer[P]) recordFailure(ctx context.Context, email string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Failure(ctx, s.kind.String(), email); err != nil {
		s.logger.WarnContext(ctx, "failed to record login failure",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
