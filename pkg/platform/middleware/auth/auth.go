package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"smartgn/pkg/platform/httputil"
	"smartgn/pkg/requestcontext"

	"github.com/google/uuid"
)

// TokenValidator decodes and verifies a bearer token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RevocationChecker reports whether a token id has been revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims is the subset of token claims the middleware needs.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	Kind      string
	JTI       string
	ExpiresAt time.Time
}

func writeUnauthorized(w http.ResponseWriter, desc string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized", ErrorDescription: desc})
}

type revocationResult int

const (
	revocationOK revocationResult = iota
	revocationMissingJTI
	revocationRevoked
	revocationError
)

func checkRevocation(ctx context.Context, checker RevocationChecker, jti string, logger *slog.Logger) revocationResult {
	if checker == nil {
		return revocationOK
	}
	requestID := requestcontext.RequestID(ctx)
	if jti == "" {
		logger.WarnContext(ctx, "unauthorized access - missing token jti", "request_id", requestID)
		return revocationMissingJTI
	}

	revoked, err := checker.IsRevoked(ctx, jti)
	if err != nil {
		logger.ErrorContext(ctx, "failed to check token revocation",
			"error", err,
			"request_id", requestID,
		)
		return revocationError
	}
	if revoked {
		logger.WarnContext(ctx, "unauthorized access - token revoked",
			"jti", jti,
			"request_id", requestID,
		)
		return revocationRevoked
	}
	return revocationOK
}

// RequireAuth validates the bearer token, rejects revoked tokens, and stores the
// caller as a requestcontext.Principal for handlers and the role gate.
func RequireAuth(validator TokenValidator, revocationChecker RevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			switch checkRevocation(ctx, revocationChecker, claims.JTI, logger) {
			case revocationMissingJTI, revocationRevoked:
				writeUnauthorized(w, "Token has been revoked")
				return
			case revocationError:
				httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{
					Error:            "internal_error",
					ErrorDescription: "Failed to validate token",
				})
				return
			}

			if _, err := uuid.Parse(claims.Subject); err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed token subject",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, requestcontext.Principal{
				Subject:   claims.Subject,
				Email:     claims.Email,
				Role:      claims.Role,
				Kind:      claims.Kind,
				TokenID:   claims.JTI,
				ExpiresAt: claims.ExpiresAt,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
