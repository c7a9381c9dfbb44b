// Package handler exposes registration, login and session endpoints for both
// principal collections.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"smartgn/internal/identity/models"
	"smartgn/internal/identity/token"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/httputil"
	"smartgn/pkg/platform/middleware/admin"
	"smartgn/pkg/requestcontext"
	"smartgn/pkg/validation"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Issuer is the credential issuer of one principal collection.
type Issuer[P models.Principal] interface {
	Register(ctx context.Context, in models.RegisterInput) (P, error)
	Authenticate(ctx context.Context, email, password string) (P, token.Token, error)
	Get(ctx context.Context, id uuid.UUID) (P, error)
}

// Sessions revokes the caller's token.
type Sessions interface {
	Revoke(ctx context.Context, p requestcontext.Principal) error
}

// Handler serves /auth and /admin/officers.
type Handler struct {
	citizens Issuer[*models.Citizen]
	officers Issuer[*models.Officer]
	admins   Issuer[*models.Officer]
	sessions Sessions
	logger   *slog.Logger
}

// New creates a handler. admins registers into the officer collection with
// the ADMIN role and backs POST /admin/officers.
func New(
	citizens Issuer[*models.Citizen],
	officers Issuer[*models.Officer],
	admins Issuer[*models.Officer],
	sessions Sessions,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		citizens: citizens,
		officers: officers,
		admins:   admins,
		sessions: sessions,
		logger:   logger,
	}
}

// Register mounts the public registration and login routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/user/register", registerHandler[*models.Citizen, CitizenRegisterRequest](h, h.citizens))
	r.Post("/auth/user/login", loginHandler(h, h.citizens))
	r.Post("/auth/village-officer/register", registerHandler[*models.Officer, OfficerRegisterRequest](h, h.officers))
	r.Post("/auth/village-officer/login", loginHandler(h, h.officers))
}

// RegisterAuthenticated mounts routes that require a valid session token.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/me", h.HandleMe)
}

// RegisterAdmin mounts provisioning routes. The caller applies the admin
// token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/officers", h.HandleCreateAdmin)
}

// LoginRequest is the login body for both collections.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = models.NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	return validation.Validate(r)
}

// CitizenRegisterRequest is the body of POST /auth/user/register.
type CitizenRegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=200"`
	NIC      string `json:"nic" validate:"omitempty,nic"`
}

func (r *CitizenRegisterRequest) Normalize() {
	r.Email = models.NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.NIC = strings.ToUpper(strings.TrimSpace(r.NIC))
}

func (r *CitizenRegisterRequest) Validate() error {
	return validation.Validate(r)
}

func (r *CitizenRegisterRequest) Input() models.RegisterInput {
	return models.RegisterInput{Email: r.Email, Password: r.Password, FullName: r.FullName, NIC: r.NIC}
}

// OfficerRegisterRequest is the body of POST /auth/village-officer/register.
// An officer must name the division they serve.
type OfficerRegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"notblank,max=200"`
	District string `json:"district" validate:"notblank,max=100"`
	Division string `json:"division" validate:"notblank,max=100"`
}

func (r *OfficerRegisterRequest) Normalize() {
	r.Email = models.NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.District = strings.TrimSpace(r.District)
	r.Division = strings.TrimSpace(r.Division)
}

func (r *OfficerRegisterRequest) Validate() error {
	return validation.Validate(r)
}

func (r *OfficerRegisterRequest) Input() models.RegisterInput {
	return models.RegisterInput{
		Email:    r.Email,
		Password: r.Password,
		FullName: r.FullName,
		District: r.District,
		Division: r.Division,
	}
}

// AdminRegisterRequest is the body of POST /admin/officers.
type AdminRegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=200"`
}

func (r *AdminRegisterRequest) Normalize() {
	r.Email = models.NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
}

func (r *AdminRegisterRequest) Validate() error {
	return validation.Validate(r)
}

func (r *AdminRegisterRequest) Input() models.RegisterInput {
	return models.RegisterInput{Email: r.Email, Password: r.Password, FullName: r.FullName}
}

// registerBody is a validated registration DTO.
type registerBody[T any] interface {
	*T
	Input() models.RegisterInput
}

// RegisterResponse is returned by the registration routes.
type RegisterResponse struct {
	Message string `json:"message"`
	User    any    `json:"user"`
}

// LoginResponse is returned by the login routes.
type LoginResponse struct {
	Message     string    `json:"message"`
	User        any       `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func registerHandler[P models.Principal, T any, B registerBody[T]](h *Handler, issuer Issuer[P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, ok := httputil.DecodeAndPrepare[T](w, r, h.logger)
		if !ok {
			return
		}

		p, err := issuer.Register(ctx, B(req).Input())
		if err != nil {
			h.logFailure(ctx, "registration failed", err)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{
			Message: "registered successfully",
			User:    p,
		})
	}
}

func loginHandler[P models.Principal](h *Handler, issuer Issuer[P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger)
		if !ok {
			return
		}

		p, tok, err := issuer.Authenticate(ctx, req.Email, req.Password)
		if err != nil {
			h.logFailure(ctx, "login failed", err)
			httputil.WriteError(w, err)
			return
		}

		h.logger.InfoContext(ctx, "login succeeded",
			"request_id", requestcontext.RequestID(ctx),
			"principal_id", p.Base().ID.String(),
			"device", requestcontext.DeviceLabel(ctx),
		)
		httputil.WriteJSON(w, http.StatusOK, LoginResponse{
			Message:     "login successful",
			User:        p,
			AccessToken: tok.Value,
			ExpiresAt:   tok.ExpiresAt,
		})
	}
}

// HandleLogout revokes the bearer token used for this request.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.sessions.Revoke(ctx, principal); err != nil {
		h.logFailure(ctx, "logout failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the caller's principal from the collection named by the token type.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := uuid.Parse(principal.Subject)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
		return
	}

	var p any
	switch models.Kind(principal.Kind) {
	case models.KindUser:
		p, err = h.citizens.Get(ctx, id)
	case models.KindVillageOfficer:
		p, err = h.officers.Get(ctx, id)
	default:
		err = dErrors.New(dErrors.CodeUnauthorized, "unknown principal type")
	}
	if err != nil {
		h.logFailure(ctx, "load current principal failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleCreateAdmin provisions an ADMIN principal in the officer collection.
func (h *Handler) HandleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AdminRegisterRequest](w, r, h.logger)
	if !ok {
		return
	}

	p, err := h.admins.Register(ctx, req.Input())
	if err != nil {
		h.logFailure(ctx, "admin provisioning failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin_provisioned",
		"event", "admin_provisioned",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"principal_id", p.ID.String(),
		"actor", admin.ActorFrom(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Message: "admin created",
		User:    p,
	})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	args := []any{"error", err, "request_id", requestcontext.RequestID(ctx)}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}
