package redis

import (
	"context"
	"testing"

	"smartgn/internal/platform/config"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutURL(t *testing.T) {
	c, err := New(context.Background(), config.Redis{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), config.Redis{URL: "://nope"})
	require.ErrorContains(t, err, "parse redis URL")
}

func TestPoolDelta(t *testing.T) {
	first := &redis.PoolStats{Hits: 10, Misses: 2, Timeouts: 1}
	assert.Equal(t, uint32(10), poolDelta(nil, first).Hits)

	next := &redis.PoolStats{Hits: 15, Misses: 2, Timeouts: 0}
	d := poolDelta(first, next)
	assert.Equal(t, uint32(5), d.Hits)
	assert.Equal(t, uint32(0), d.Misses)
	assert.Equal(t, uint32(0), d.Timeouts)
}
