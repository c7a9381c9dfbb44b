// Package handler exposes citizen profiles and the staff citizen lookup.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"smartgn/internal/authz"
	identity "smartgn/internal/identity/models"
	"smartgn/internal/profiles/models"
	id "smartgn/pkg/domain"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/httputil"
	"smartgn/pkg/requestcontext"

	"github.com/go-chi/chi/v5"
)

type Service interface {
	Get(ctx context.Context, userID id.UserID) (*models.Profile, error)
	Upsert(ctx context.Context, userID id.UserID, in models.Input) (*models.Profile, error)
	List(ctx context.Context) ([]*identity.Citizen, error)
	SearchByNIC(ctx context.Context, nic string) (*models.Profile, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	self := authz.RequireRoles(authz.Roles(authz.RoleUser), h.logger)
	staff := authz.RequireRoles(authz.Roles(authz.RoleVillageOfficer, authz.RoleAdmin), h.logger)

	r.With(self).Get("/profile", h.HandleGet)
	r.With(self).Put("/profile", h.HandleUpsert)
	r.With(staff).Get("/gn/users", h.HandleListCitizens)
	r.With(staff).Get("/gn/users/search", h.HandleSearch)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.self(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.self(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.Input](w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.svc.Upsert(ctx, userID, *in)
	if err != nil {
		h.logger.WarnContext(ctx, "profile upsert failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleListCitizens(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if all == nil {
		all = []*identity.Citizen{}
	}
	httputil.WriteJSON(w, http.StatusOK, all)
}

// HandleSearch serves GET /gn/users/search?nic=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	nic := r.URL.Query().Get("nic")
	if nic == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "nic query parameter is required"))
		return
	}
	p, err := h.svc.SearchByNIC(r.Context(), nic)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) self(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	principal, err := httputil.RequirePrincipal(r.Context(), h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, false
	}
	userID, err := id.ParseUserID(principal.Subject)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
		return id.UserID{}, false
	}
	return userID, true
}
