// Package health serves the liveness, readiness and status probes.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"smartgn/pkg/platform/httputil"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Version is set at build time via ldflags.
var Version = "dev"

// checkTimeout bounds every dependency check in a readiness probe.
const checkTimeout = 2 * time.Second

// CheckFunc reports nil when a dependency is healthy.
type CheckFunc func(ctx context.Context) error

type namedCheck struct {
	name  string
	check CheckFunc
}

// Handler provides health check endpoints.
type Handler struct {
	startTime   time.Time
	environment string

	mu     sync.RWMutex
	checks []namedCheck
}

// New creates a new health handler.
func New(environment string) *Handler {
	return &Handler{
		startTime:   time.Now(),
		environment: environment,
	}
}

// RegisterCheck adds a named check to the readiness probe. Registering the
// same name twice replaces the earlier check.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.checks {
		if h.checks[i].name == name {
			h.checks[i].check = check
			return
		}
	}
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

// Register mounts health check routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// LivenessResponse is the response for the liveness probe.
type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness always answers 200 while the process is serving.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// ReadinessResponse is the response for the readiness probe.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every registered check concurrently and answers 503
// when any of them fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make([]namedCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	results := make([]string, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			if err := c.check(ctx); err != nil {
				results[i] = "down: " + err.Error()
				return err
			}
			results[i] = "up"
			return nil
		})
	}
	failed := g.Wait() != nil

	response := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
	for i, c := range checks {
		response.Checks[c.name] = results[i]
	}
	if failed {
		response.Status = "not_ready"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// StatusResponse is the response for the general health status endpoint.
type StatusResponse struct {
	Status        string   `json:"status"`
	Version       string   `json:"version"`
	Environment   string   `json:"environment"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Timestamp     string   `json:"timestamp"`
	Dependencies  []string `json:"dependencies,omitempty"`
}

// HandleStatus returns version, uptime and the names of registered checks.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	deps := make([]string, 0, len(h.checks))
	for _, c := range h.checks {
		deps = append(deps, c.name)
	}
	h.mu.RUnlock()
	sort.Strings(deps)

	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Dependencies:  deps,
	})
}
