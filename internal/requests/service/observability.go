package service

import (
	"context"

	"smartgn/internal/requests/models"
	"smartgn/pkg/requestcontext"
)

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if p, ok := requestcontext.PrincipalFrom(ctx); ok {
		attributes = append(attributes, "actor_id", p.Subject, "actor_role", p.Role)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

func (s *Service) recordTransition(ctx context.Context, event string, r *models.Request, attributes ...any) {
	s.metrics.IncRequestTransition(r.Status.String())
	attributes = append(attributes,
		"service_request_id", r.ID.String(),
		"status", r.Status.String(),
		"gn_id", r.OfficerID.String(),
	)
	s.logAudit(ctx, event, attributes...)
}

func (s *Service) rejected(ctx context.Context, op string, r *models.Request, err error) {
	s.logger.WarnContext(ctx, "request transition rejected",
		"op", op,
		"service_request_id", r.ID.String(),
		"status", r.Status.String(),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
