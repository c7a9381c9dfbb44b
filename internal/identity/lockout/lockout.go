// Package lockout throttles password guessing. After Threshold failed logins
// for one email from one client within Window, further attempts are refused
// until LockFor has passed.
package lockout

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"smartgn/internal/platform/metrics"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/requestcontext"
)

// Policy bounds failed attempts. A zero Threshold disables locking.
type Policy struct {
	Threshold int
	Window    time.Duration
	LockFor   time.Duration
}

// DefaultPolicy allows five failures per quarter hour.
var DefaultPolicy = Policy{
	Threshold: 5,
	Window:    15 * time.Minute,
	LockFor:   15 * time.Minute,
}

// Store counts failures and holds locks.
type Store interface {
	// RecordFailure increments the failure count for key and returns it. The
	// count resets window after the first failure.
	RecordFailure(ctx context.Context, key string, window time.Duration) (int, error)
	// LockedUntil returns the lock expiry for key, or the zero time.
	LockedUntil(ctx context.Context, key string) (time.Time, error)
	Lock(ctx context.Context, key string, until time.Time) error
	Clear(ctx context.Context, key string) error
}

// Guard applies a Policy to login attempts.
type Guard struct {
	store   Store
	policy  Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Guard.
type Option func(*Guard)

func WithPolicy(p Policy) Option {
	return func(g *Guard) { g.policy = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// New creates a Guard with DefaultPolicy unless overridden.
func New(store Store, opts ...Option) *Guard {
	g := &Guard{store: store, policy: DefaultPolicy}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Check refuses the attempt while the email is locked for this client.
func (g *Guard) Check(ctx context.Context, kind, email string) error {
	if g.policy.Threshold <= 0 {
		return nil
	}
	until, err := g.store.LockedUntil(ctx, key(ctx, kind, email))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check login lockout")
	}
	if requestcontext.Now(ctx).Before(until) {
		return dErrors.New(dErrors.CodeTooManyRequests, "too many failed login attempts, try again later")
	}
	return nil
}

// Failure records a failed attempt and locks once the threshold is reached.
func (g *Guard) Failure(ctx context.Context, kind, email string) error {
	if g.policy.Threshold <= 0 {
		return nil
	}
	k := key(ctx, kind, email)
	n, err := g.store.RecordFailure(ctx, k, g.policy.Window)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
	}
	if n < g.policy.Threshold {
		return nil
	}

	until := requestcontext.Now(ctx).Add(g.policy.LockFor)
	if err := g.store.Lock(ctx, k, until); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock login")
	}
	g.metrics.IncLoginLockout(kind)
	g.logger.InfoContext(ctx, "login_locked",
		"event", "login_locked",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"kind", kind,
		"failures", n,
		"locked_until", until,
	)
	return nil
}

// Success forgets earlier failures.
func (g *Guard) Success(ctx context.Context, kind, email string) error {
	if g.policy.Threshold <= 0 {
		return nil
	}
	if err := g.store.Clear(ctx, key(ctx, kind, email)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear login failures")
	}
	return nil
}

func key(ctx context.Context, kind, email string) string {
	return kind + ":" + strings.ToLower(strings.TrimSpace(email)) + ":" + requestcontext.ClientIP(ctx)
}
