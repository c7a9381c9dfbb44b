package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/httputil"
	"smartgn/pkg/requestcontext"
)

// HeaderToken carries the shared admin secret.
const HeaderToken = "X-Admin-Token"

// HeaderActor optionally names the operator for audit attribution.
const HeaderActor = "X-Admin-Actor"

type actorKey struct{}

// ActorFrom returns the operator name recorded for this request, if any.
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok {
		return actor
	}
	return ""
}

// RequireToken guards provisioning routes with a shared secret. An empty
// expected token rejects every request, so an unconfigured deployment never
// exposes the routes.
func RequireToken(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get(HeaderToken)
			if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			if actor := r.Header.Get(HeaderActor); actor != "" {
				ctx = context.WithValue(ctx, actorKey{}, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
