package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smartgn/pkg/platform/outbox"
	"smartgn/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// maxBatch caps a single fetch.
const maxBatch = 1000

// Store implements outbox.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL outbox store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertEntry = `
	INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// Append adds a new entry to the outbox table.
func (s *Store) Append(ctx context.Context, entry *outbox.Entry) error {
	return AppendWith(ctx, s.db, entry)
}

// AppendWith inserts entry through exec, typically the transaction that
// carries the business write.
func AppendWith(ctx context.Context, exec Execer, entry *outbox.Entry) error {
	if entry == nil {
		return fmt.Errorf("outbox entry is required")
	}
	_, err := exec.ExecContext(ctx, insertEntry,
		entry.ID,
		entry.AggregateType,
		entry.AggregateID,
		entry.EventType,
		entry.Payload,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// FetchUnprocessed returns up to limit pending entries.
// The row locks are released when the implicit transaction ends, so a worker
// that needs exclusivity across publish and mark must run both in one tx.
func (s *Store) FetchUnprocessed(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	if limit > maxBatch {
		limit = maxBatch
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at, processed_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*outbox.Entry, 0, limit)
	for rows.Next() {
		var (
			e           outbox.Entry
			processedAt sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt, &processedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		if processedAt.Valid {
			e.ProcessedAt = &processedAt.Time
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkProcessed marks an entry as published. Marking an unknown or already
// processed entry returns sentinel.ErrNotFound.
func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET processed_at = $2 WHERE id = $1 AND processed_at IS NULL`,
		id, processedAt)
	if err != nil {
		return fmt.Errorf("mark outbox entry processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("outbox entry %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE processed_at IS NULL`).Scan(&count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("count pending entries: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM outbox WHERE processed_at IS NOT NULL AND processed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete processed entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}
