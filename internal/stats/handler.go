package stats

import (
	"context"
	"log/slog"
	"net/http"

	"smartgn/internal/authz"
	id "smartgn/pkg/domain"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/httputil"
	"smartgn/pkg/requestcontext"

	"github.com/go-chi/chi/v5"
)

// Reader is what the handler needs from Service.
type Reader interface {
	Statistics(ctx context.Context) (Summary, error)
	Dashboard(ctx context.Context, officerID id.OfficerID) (*Dashboard, error)
}

// Handler serves the statistics and dashboard routes.
type Handler struct {
	svc    Reader
	logger *slog.Logger
}

func NewHandler(svc Reader, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes behind their role gates.
func (h *Handler) Register(r chi.Router) {
	r.With(authz.RequireRoles(authz.Roles(authz.RoleVillageOfficer, authz.RoleAdmin), h.logger)).
		Get("/gn/requests/stats/statistics", h.HandleStatistics)
	r.With(authz.RequireRoles(authz.Roles(authz.RoleVillageOfficer), h.logger)).
		Get("/gn/dashboard", h.HandleDashboard)
}

func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Statistics(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "statistics failed",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sum)
}

// HandleDashboard returns the dashboard of the calling officer.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	officerID, err := id.ParseOfficerID(principal.Subject)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
		return
	}

	dash, err := h.svc.Dashboard(ctx, officerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dash)
}
