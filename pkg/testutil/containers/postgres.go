//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"smartgn/internal/platform/config"
	"smartgn/internal/platform/database"
	"smartgn/migrations"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container with migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("smartgn_test"),
		postgres.WithUsername("smartgn"),
		postgres.WithPassword("smartgn_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	pool, err := database.New(ctx, config.Database{URL: dsn, MaxOpenConns: 10, MaxIdleConns: 5})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	db := pool.DB()

	if err := database.Migrate(ctx, db, migrations.FS); err != nil {
		_ = pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables clears all data from the specified tables.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateAll clears every application table.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	return p.TruncateTables(ctx,
		"outbox",
		"citizen_profiles",
		"requests",
		"service_types",
		"officers",
		"citizens",
	)
}

// CreateTestCitizen inserts a citizen row with a throwaway hash.
func (p *PostgresContainer) CreateTestCitizen(ctx context.Context, t testing.TB, email string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO citizens (id, email, password_hash, role, created_at) VALUES ($1, $2, 'x', 'USER', NOW())`,
		id, email)
	if err != nil {
		t.Fatalf("create test citizen: %v", err)
	}
	return id
}

// CreateTestOfficer inserts an officer row with a throwaway hash.
func (p *PostgresContainer) CreateTestOfficer(ctx context.Context, t testing.TB, email string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO officers (id, email, password_hash, role, created_at) VALUES ($1, $2, 'x', 'VILLAGE_OFFICER', NOW())`,
		id, email)
	if err != nil {
		t.Fatalf("create test officer: %v", err)
	}
	return id
}
