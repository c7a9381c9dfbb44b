package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smartgn/internal/platform/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

const (
	applicationName = "smartgn"
	pingAttempts    = 5
	pingBackoff     = 500 * time.Millisecond
)

// ErrNotConfigured is returned by Health on a pool that was never opened.
var ErrNotConfigured = errors.New("database not configured")

// Pool is the process-wide Postgres handle. Stores receive DB(); the pool
// itself only owns startup, health and shutdown.
type Pool struct {
	db *sql.DB
}

// New opens a pool through the pgx driver and waits for Postgres to answer.
// An empty URL yields a nil pool and no error, which selects the in-memory
// stores.
func New(ctx context.Context, cfg config.Database) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	connCfg, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if connCfg.RuntimeParams["application_name"] == "" {
		connCfg.RuntimeParams["application_name"] = applicationName
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := waitReady(ctx, db); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, err
	}
	return &Pool{db: db}, nil
}

// waitReady pings with a doubling backoff. Compose setups routinely start the
// server a few seconds before Postgres accepts connections.
func waitReady(ctx context.Context, db *sql.DB) error {
	backoff := pingBackoff
	var err error
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == pingAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return fmt.Errorf("ping database after %d attempts: %w", pingAttempts, err)
}

func (p *Pool) DB() *sql.DB {
	return p.db
}

// Health is a health.CheckFunc.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return ErrNotConfigured
	}
	return p.db.PingContext(ctx)
}

// Close is safe on a nil pool.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
