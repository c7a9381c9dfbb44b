package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/requestcontext"
)

// DecodeJSON decodes a JSON request body into T.
// On failure it writes a 400 response and returns false.
//
//	req, ok := httputil.DecodeJSON[CreateRequestBody](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode request body",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return &req, true
}

// Validatable is implemented by request bodies that can check themselves.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request bodies that trim or case-fold their fields.
type Normalizable interface {
	Normalize()
}

// Prepare normalizes then validates req when it implements those interfaces.
func Prepare(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare decodes the JSON body then runs Prepare on it.
// Validation failures that are not domain errors are reported as validation errors.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger)
	if !ok {
		return nil, false
	}

	if err := Prepare(req); err != nil {
		logger.WarnContext(r.Context(), "invalid request",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			WriteError(w, err)
		} else {
			WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		}
		return nil, false
	}
	return req, true
}
