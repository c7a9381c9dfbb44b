// Package requesttime pins a single "now" per HTTP request so that every
// timestamp written while serving it (request dates, audit lines, token iat) agrees.
package requesttime

import (
	"net/http"
	"time"

	"smartgn/pkg/requestcontext"
)

// Middleware stores the request start time; read it back with requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock is Middleware with an injectable clock.
func WithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
