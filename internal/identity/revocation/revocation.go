// Package revocation records logged-out token ids until they would have expired anyway.
package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryList is a process-local revocation list for single-instance deployments and tests.
type MemoryList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryList creates an empty list.
func NewMemoryList() *MemoryList {
	return &MemoryList{revoked: make(map[string]time.Time), now: time.Now}
}

// WithClock replaces the list clock.
func (l *MemoryList) WithClock(now func() time.Time) *MemoryList {
	l.now = now
	return l
}

// Revoke records jti for ttl. Expired entries are purged on each call.
func (l *MemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.revoked {
		if !now.Before(exp) {
			delete(l.revoked, k)
		}
	}
	if ttl > 0 {
		l.revoked[jti] = now.Add(ttl)
	}
	return nil
}

// IsRevoked reports whether jti is still on the list.
func (l *MemoryList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exp, ok := l.revoked[jti]
	return ok && l.now().Before(exp), nil
}
