package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "revoked_jti:"

// RedisList shares revocations across instances. Keys expire with the token.
type RedisList struct {
	client redis.UniversalClient
}

// NewRedisList wraps an existing client. The caller keeps ownership of it.
func NewRedisList(client redis.UniversalClient) *RedisList {
	return &RedisList{client: client}
}

// Revoke stores jti for ttl. A non-positive ttl is a no-op since the token
// has already expired.
func (l *RedisList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (l *RedisList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}
