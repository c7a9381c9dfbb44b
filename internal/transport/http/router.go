// Package httptransport assembles the HTTP surface: the shared middleware
// chain plus the routes of every feature module.
package httptransport

import (
	"log/slog"
	"mime"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"

	identityhandler "smartgn/internal/identity/handler"
	"smartgn/internal/files"
	"smartgn/internal/platform/health"
	profileshandler "smartgn/internal/profiles/handler"
	requestshandler "smartgn/internal/requests/handler"
	servicetypeshandler "smartgn/internal/servicetypes/handler"
	"smartgn/internal/stats"
	"smartgn/pkg/platform/middleware/admin"
	"smartgn/pkg/platform/middleware/auth"
	"smartgn/pkg/platform/middleware/device"
	"smartgn/pkg/platform/middleware/metadata"
	"smartgn/pkg/platform/middleware/request"
	"smartgn/pkg/platform/middleware/requesttime"
)

// multipartOverhead is the slack allowed on top of the upload cap for part
// headers and form fields.
const multipartOverhead = 1 << 20

// Modules are the feature handlers mounted by NewRouter. Nil modules are skipped.
type Modules struct {
	Identity     *identityhandler.Handler
	Requests     *requestshandler.Handler
	Stats        *stats.Handler
	ServiceTypes *servicetypeshandler.Handler
	Profiles     *profileshandler.Handler
	Health       *health.Handler
	Uploads      http.Handler
	Metrics      http.Handler
}

// Options configure the middleware chain.
type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	MaxUploadBytes int64
	TrustedProxies []netip.Prefix
	AdminToken     string
	Tokens         auth.TokenValidator
	Revocations    auth.RevocationChecker
	Latency        *request.Metrics
}

// NewRouter wires all endpoints behind the shared middleware stack.
func NewRouter(m Modules, opts Options, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(opts.TrustedProxies...).Handler)
	r.Use(device.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(opts.Latency))

	if m.Health != nil {
		m.Health.Register(r)
	}
	if m.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", m.Metrics)
	}
	if m.Uploads != nil {
		r.Method(http.MethodGet, files.URLPrefix+"/*", m.Uploads)
	}

	r.Group(func(api chi.Router) {
		if opts.RequestTimeout > 0 {
			api.Use(request.Timeout(opts.RequestTimeout))
		}
		api.Use(request.ContentType("application/json", "multipart/form-data"))
		api.Use(limitBodies(opts.MaxBodyBytes, opts.MaxUploadBytes))

		if m.Identity != nil {
			m.Identity.Register(api)
			api.Group(func(provisioning chi.Router) {
				provisioning.Use(admin.RequireToken(opts.AdminToken, logger))
				m.Identity.RegisterAdmin(provisioning)
			})
		}

		api.Group(func(authed chi.Router) {
			authed.Use(auth.RequireAuth(opts.Tokens, opts.Revocations, logger))
			if m.Identity != nil {
				m.Identity.RegisterAuthenticated(authed)
			}
			if m.Requests != nil {
				m.Requests.Register(authed)
			}
			if m.Stats != nil {
				m.Stats.Register(authed)
			}
			if m.ServiceTypes != nil {
				m.ServiceTypes.Register(authed)
			}
			if m.Profiles != nil {
				m.Profiles.Register(authed)
			}
		})
	})

	return r
}

// limitBodies caps JSON bodies at jsonMax and multipart bodies at uploadMax
// plus part overhead. A non-positive cap disables that limit.
func limitBodies(jsonMax, uploadMax int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		jsonLimited := next
		if jsonMax > 0 {
			jsonLimited = request.BodyLimit(jsonMax)(next)
		}
		uploadLimited := next
		if uploadMax > 0 {
			uploadLimited = request.BodyLimit(uploadMax + multipartOverhead)(next)
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isMultipart(r) {
				uploadLimited.ServeHTTP(w, r)
				return
			}
			jsonLimited.ServeHTTP(w, r)
		})
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
