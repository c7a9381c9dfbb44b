package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smartgn/internal/platform/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	poolHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartgn_redis_pool_hits_total",
		Help: "Connections found idle in the pool",
	})
	poolMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartgn_redis_pool_misses_total",
		Help: "Connections that had to be dialed",
	})
	poolTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartgn_redis_pool_timeouts_total",
		Help: "Connection waits that timed out",
	})
	poolTotalConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartgn_redis_pool_total_conns",
		Help: "Connections currently in the pool",
	})
	poolIdleConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartgn_redis_pool_idle_conns",
		Help: "Idle connections currently in the pool",
	})
)

// PoolStatsInterval is how often Run samples pool statistics.
const PoolStatsInterval = 15 * time.Second

// Client wraps the go-redis client with health checks and pool metrics.
type Client struct {
	*redis.Client

	mu        sync.Mutex
	lastStats *redis.PoolStats
}

// New connects to Redis. It returns nil, nil when no URL is configured.
func New(ctx context.Context, cfg config.Redis) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// RecordPoolStats publishes the current pool statistics.
func (c *Client) RecordPoolStats() {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.PoolStats()
	poolTotalConns.Set(float64(stats.TotalConns))
	poolIdleConns.Set(float64(stats.IdleConns))

	d := poolDelta(c.lastStats, stats)
	poolHits.Add(float64(d.Hits))
	poolMisses.Add(float64(d.Misses))
	poolTimeouts.Add(float64(d.Timeouts))

	c.lastStats = stats
}

// Run records pool statistics every PoolStatsInterval until ctx is done.
func (c *Client) Run(ctx context.Context) {
	ticker := time.NewTicker(PoolStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RecordPoolStats()
		}
	}
}

// poolDelta returns the counter growth between two samples. Counters that went
// backwards (pool reset) contribute nothing.
func poolDelta(prev, cur *redis.PoolStats) redis.PoolStats {
	if prev == nil {
		return redis.PoolStats{Hits: cur.Hits, Misses: cur.Misses, Timeouts: cur.Timeouts}
	}
	sub := func(a, b uint32) uint32 {
		if a > b {
			return a - b
		}
		return 0
	}
	return redis.PoolStats{
		Hits:     sub(cur.Hits, prev.Hits),
		Misses:   sub(cur.Misses, prev.Misses),
		Timeouts: sub(cur.Timeouts, prev.Timeouts),
	}
}
