// Package handler exposes the service-type catalog.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"smartgn/internal/authz"
	"smartgn/internal/servicetypes/models"
	id "smartgn/pkg/domain"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/httputil"
	"smartgn/pkg/requestcontext"
	"smartgn/pkg/validation"

	"github.com/go-chi/chi/v5"
)

type Service interface {
	Create(ctx context.Context, name, description string, isActive *bool) (*models.ServiceType, error)
	List(ctx context.Context, includeInactive bool) ([]*models.ServiceType, error)
	Get(ctx context.Context, typeID id.ServiceTypeID) (*models.ServiceType, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts /service-types. Reads are open to any authenticated
// principal, creation is admin only.
func (h *Handler) Register(r chi.Router) {
	r.With(authz.RequireRoles(authz.Roles(authz.RoleAdmin), h.logger)).Post("/service-types", h.HandleCreate)
	r.With(authz.RequireRoles(authz.Roles(), h.logger)).Get("/service-types", h.HandleList)
	r.With(authz.RequireRoles(authz.Roles(), h.logger)).Get("/service-types/{id}", h.HandleGet)
}

type createBody struct {
	models.CreateInput
}

func (b *createBody) Validate() error {
	return validation.Validate(&b.CreateInput)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[createBody](w, r, h.logger)
	if !ok {
		return
	}
	st, err := h.svc.Create(ctx, req.Name, req.Description, req.IsActive)
	if err != nil {
		h.logger.WarnContext(ctx, "create service type failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, st)
}

// HandleList serves GET /service-types?includeInactive=true.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if raw := r.URL.Query().Get("includeInactive"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "includeInactive must be a boolean"))
			return
		}
		includeInactive = v
	}

	all, err := h.svc.List(r.Context(), includeInactive)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, all)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	typeID, err := id.ParseServiceTypeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid service type id"))
		return
	}
	st, err := h.svc.Get(r.Context(), typeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}
