package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/requestcontext"
)

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding failure cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates a domain error into its HTTP status and error body.
// Anything that is not a domain error is reported as an internal error without detail.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, StatusFor(domainErr.Code), ErrorResponse{
			Error:            ErrorCodeFor(domainErr.Code),
			ErrorDescription: domainErr.Message,
		})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: ErrorCodeFor(dErrors.CodeInternal),
	})
}

// StatusFor translates domain error codes to HTTP status codes.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeInvalidTransition:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCodeFor translates domain error codes to the "error" field of the response body.
func ErrorCodeFor(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return "bad_request"
	case dErrors.CodeValidation:
		return "validation_error"
	case dErrors.CodeInvalidTransition:
		return "invalid_transition"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeUnauthorized:
		return "unauthorized"
	case dErrors.CodeForbidden:
		return "forbidden"
	case dErrors.CodeTimeout:
		return "timeout"
	case dErrors.CodeTooManyRequests:
		return "too_many_requests"
	default:
		return "internal_error"
	}
}

// RequirePrincipal returns the authenticated principal placed in the context
// by the auth middleware. A missing principal behind that middleware is a wiring bug.
func RequirePrincipal(ctx context.Context, logger *slog.Logger) (requestcontext.Principal, error) {
	p, ok := requestcontext.PrincipalFrom(ctx)
	if !ok || p.Subject == "" {
		if logger != nil {
			logger.ErrorContext(ctx, "principal missing from context despite auth middleware",
				"request_id", requestcontext.RequestID(ctx))
		}
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return p, nil
}
