// Package handler exposes the request lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"smartgn/internal/authz"
	"smartgn/internal/requests/models"
	id "smartgn/pkg/domain"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/httputil"
	"smartgn/pkg/requestcontext"
	s "smartgn/pkg/string"
	"smartgn/pkg/validation"

	"github.com/go-chi/chi/v5"
)

// multipartOverhead is the allowance for form boundaries and the
// description field on top of the file itself.
const multipartOverhead = 1 << 20

// Service is the lifecycle engine as seen by the transport.
type Service interface {
	Create(ctx context.Context, cmd models.CreateCommand) (*models.Request, error)
	Verify(ctx context.Context, requestID id.RequestID, verificationDate *time.Time) (*models.Request, error)
	Decline(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	Complete(ctx context.Context, requestID id.RequestID, certificateRef *string) (*models.Request, error)
	AttachCertificate(ctx context.Context, requestID id.RequestID, upload models.FileUpload, description string) (*models.Receipt, error)
	AttachDocument(ctx context.Context, requestID id.RequestID, upload models.FileUpload, description string) (*models.Receipt, error)
	Get(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	GetForUser(ctx context.Context, requestID id.RequestID, userID id.UserID) (*models.Request, error)
	ListAll(ctx context.Context) ([]*models.Request, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Request, error)
}

// Handler serves /gn/requests.
type Handler struct {
	svc            Service
	maxUploadBytes int64
	logger         *slog.Logger
}

// New creates a handler. maxUploadBytes bounds a single uploaded file.
func New(svc Service, maxUploadBytes int64, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Register mounts the request routes with their role gates. The caller
// applies the auth middleware.
func (h *Handler) Register(r chi.Router) {
	citizen := authz.RequireRoles(authz.Roles(authz.RoleUser), h.logger)
	officer := authz.RequireRoles(authz.Roles(authz.RoleVillageOfficer), h.logger)
	staff := authz.RequireRoles(authz.Roles(authz.RoleVillageOfficer, authz.RoleAdmin), h.logger)
	anyone := authz.RequireRoles(authz.Roles(authz.RoleUser, authz.RoleVillageOfficer, authz.RoleAdmin), h.logger)

	r.With(citizen).Post("/gn/requests", h.HandleCreate)
	r.With(citizen).Get("/gn/requests/mine", h.HandleListMine)
	r.With(staff).Get("/gn/requests", h.HandleListAll)
	r.With(anyone).Get("/gn/requests/{id}", h.HandleGet)
	r.With(officer).Put("/gn/requests/{id}/verify", h.HandleVerify)
	r.With(officer).Put("/gn/requests/{id}/decline", h.HandleDecline)
	r.With(officer).Put("/gn/requests/{id}/complete", h.HandleComplete)
	r.With(officer).Post("/gn/requests/{id}/certificate", h.HandleAttachCertificate)
	r.With(officer).Post("/gn/requests/{id}/documents", h.HandleAttachDocument)
}

// CreateRequest is the body of POST /gn/requests.
type CreateRequest struct {
	GnID        string `json:"gn_id" validate:"required,uuid"`
	RequestType string `json:"request_type" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
	RequestDate string `json:"request_date"`
}

func (r *CreateRequest) Normalize() {
	s.TrimStrings(&r.GnID, &r.RequestType, &r.Description, &r.RequestDate)
}

func (r *CreateRequest) Validate() error {
	return validation.Validate(r)
}

// VerifyRequest is the optional body of PUT /gn/requests/{id}/verify.
type VerifyRequest struct {
	VerificationDate string `json:"verification_date"`
}

// CompleteRequest is the optional body of PUT /gn/requests/{id}/complete.
type CompleteRequest struct {
	CertificateURL *string `json:"certificate_url"`
}

// HandleCreate opens a request for the calling citizen.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.citizenID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger)
	if !ok {
		return
	}

	officerID, err := id.ParseOfficerID(req.GnID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	requestDate, err := id.ParseOptionalDate(req.RequestDate)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.svc.Create(ctx, models.CreateCommand{
		UserID:      userID,
		OfficerID:   officerID,
		RequestType: req.RequestType,
		Description: req.Description,
		RequestDate: requestDate,
	})
	if err != nil {
		h.fail(w, r, "create request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// HandleListMine lists the calling citizen's requests.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.citizenID(w, r)
	if !ok {
		return
	}
	mine, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "list own requests failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nonNil(mine))
}

// HandleListAll lists every request.
func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, "list requests failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nonNil(all))
}

// HandleGet returns one request. Citizens only see their own.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var found *models.Request
	if authz.Role(principal.Role) == authz.RoleUser {
		userID, perr := id.ParseUserID(principal.Subject)
		if perr != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
			return
		}
		found, err = h.svc.GetForUser(ctx, requestID, userID)
	} else {
		found, err = h.svc.Get(ctx, requestID)
	}
	if err != nil {
		h.fail(w, r, "get request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, found)
}

// HandleVerify marks a pending request as verified.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	var req VerifyRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	at, err := id.ParseOptionalDate(req.VerificationDate)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	verified, err := h.svc.Verify(r.Context(), requestID, at)
	if err != nil {
		h.fail(w, r, "verify request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verified)
}

// HandleDecline declines a pending request.
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	declined, err := h.svc.Decline(r.Context(), requestID)
	if err != nil {
		h.fail(w, r, "decline request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, declined)
}

// HandleComplete completes a verified request.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	var req CompleteRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	completed, err := h.svc.Complete(r.Context(), requestID, req.CertificateURL)
	if err != nil {
		h.fail(w, r, "complete request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, completed)
}

// HandleAttachCertificate accepts a multipart certificate upload and
// completes the request.
func (h *Handler) HandleAttachCertificate(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	upload, description, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	receipt, err := h.svc.AttachCertificate(r.Context(), requestID, upload, description)
	if err != nil {
		h.fail(w, r, "attach certificate failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

// HandleAttachDocument accepts a multipart supporting document.
func (h *Handler) HandleAttachDocument(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	upload, description, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	receipt, err := h.svc.AttachDocument(r.Context(), requestID, upload, description)
	if err != nil {
		h.fail(w, r, "attach document failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) citizenID(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
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

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request id"))
		return id.RequestID{}, false
	}
	return requestID, true
}

// decodeOptional decodes a JSON body into dst. An empty body leaves dst untouched.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	h.logger.WarnContext(r.Context(), "failed to decode request body",
		"error", err,
		"request_id", requestcontext.RequestID(r.Context()),
	)
	httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
	return false
}

// readUpload reads the "file" and "description" multipart fields.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (models.FileUpload, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("file exceeds the %d byte limit", h.maxUploadBytes)))
			return models.FileUpload{}, "", false
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected a multipart form"))
		return models.FileUpload{}, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "no file uploaded"))
		return models.FileUpload{}, "", false
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("file exceeds the %d byte limit", h.maxUploadBytes)))
		return models.FileUpload{}, "", false
	}
	content, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, r, "read upload failed", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read upload"))
		return models.FileUpload{}, "", false
	}

	return models.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}, r.FormValue("description"), true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	args := []any{"error", err, "request_id", requestcontext.RequestID(ctx)}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, args...)
	} else {
		h.logger.WarnContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}

func nonNil(rs []*models.Request) []*models.Request {
	if rs == nil {
		return []*models.Request{}
	}
	return rs
}
