// Package postgres persists requests in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smartgn/internal/platform/database"
	"smartgn/internal/requests/models"
	id "smartgn/pkg/domain"
	"smartgn/pkg/platform/outbox"
	outboxpg "smartgn/pkg/platform/outbox/store/postgres"
	"smartgn/pkg/platform/sentinel"

	"github.com/google/uuid"
)

const selectColumns = `
	SELECT id, user_id, officer_id, request_type, description, status,
	       request_date, verification_date, certificate_url, created_at
	FROM requests`

// Store persists requests and writes their outbox entries in the same transaction.
type Store struct {
	db *sql.DB
}

const (
	userForeignKey    = "requests_user_id_fkey"
	officerForeignKey = "requests_officer_id_fkey"
)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *models.Request, event *outbox.Entry) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO requests (id, user_id, officer_id, request_type, description, status,
			                      request_date, verification_date, certificate_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.UUID(r.ID),
			uuid.UUID(r.UserID),
			uuid.UUID(r.OfficerID),
			r.RequestType,
			r.Description,
			string(r.Status),
			r.RequestDate,
			r.VerificationDate,
			r.CertificateURL,
			r.CreatedAt,
		)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				switch database.ViolatedConstraint(err) {
				case officerForeignKey:
					return fmt.Errorf("insert request: unknown officer: %w", sentinel.ErrInvalidInput)
				case userForeignKey:
					return fmt.Errorf("insert request: unknown citizen: %w", sentinel.ErrNotFound)
				}
			}
			return fmt.Errorf("insert request: %w", err)
		}
		return appendEvent(ctx, tx, event)
	})
}

func (s *Store) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	return r, nil
}

func (s *Store) ListAll(ctx context.Context) ([]*models.Request, error) {
	return s.query(ctx, selectColumns+` ORDER BY created_at DESC, id DESC`)
}

func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Request, error) {
	return s.query(ctx, selectColumns+` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, uuid.UUID(userID))
}

func (s *Store) RecentByOfficer(ctx context.Context, officerID id.OfficerID, limit int) ([]*models.Request, error) {
	return s.query(ctx, selectColumns+` WHERE officer_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		uuid.UUID(officerID), limit)
}

func (s *Store) CountByOfficer(ctx context.Context, officerID id.OfficerID, filter models.CountFilter) (int, error) {
	query := `SELECT COUNT(*) FROM requests WHERE officer_id = $1`
	args := []any{uuid.UUID(officerID)}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.VerifiedFrom != nil {
		args = append(args, *filter.VerifiedFrom)
		query += fmt.Sprintf(" AND verification_date >= $%d", len(args))
	}
	if filter.VerifiedTo != nil {
		args = append(args, *filter.VerifiedTo)
		query += fmt.Sprintf(" AND verification_date < $%d", len(args))
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return n, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and mutate,
// writes the result and the returned outbox entry, and commits.
func (s *Store) Execute(
	ctx context.Context,
	requestID id.RequestID,
	validate func(*models.Request) error,
	mutate func(*models.Request) (*outbox.Entry, error),
) (*models.Request, error) {
	var result *models.Request
	err := database.RunInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		r, err := scanRequest(tx.QueryRowContext(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, uuid.UUID(requestID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock request: %w", err)
		}
		if err := validate(r); err != nil {
			return err
		}
		event, err := mutate(r)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE requests
			SET status = $2, verification_date = $3, certificate_url = $4, description = $5
			WHERE id = $1`,
			uuid.UUID(r.ID),
			string(r.Status),
			r.VerificationDate,
			r.CertificateURL,
			r.Description,
		)
		if err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("update request rows: %w", err)
		} else if n == 0 {
			return sentinel.ErrNotFound
		}
		if err := appendEvent(ctx, tx, event); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func appendEvent(ctx context.Context, tx *sql.Tx, event *outbox.Entry) error {
	if event == nil {
		return nil
	}
	return outboxpg.AppendWith(ctx, tx, event)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*models.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Request, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(sc scanner) (*models.Request, error) {
	var (
		r                        models.Request
		reqID, userID, officerID uuid.UUID
		status                   string
		verifiedAt               sql.NullTime
		certificateURL           sql.NullString
	)
	if err := sc.Scan(&reqID, &userID, &officerID, &r.RequestType, &r.Description, &status,
		&r.RequestDate, &verifiedAt, &certificateURL, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.ID = id.RequestID(reqID)
	r.UserID = id.UserID(userID)
	r.OfficerID = id.OfficerID(officerID)
	r.Status = models.Status(status)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		r.VerificationDate = &t
	}
	if certificateURL.Valid {
		u := certificateURL.String
		r.CertificateURL = &u
	}
	return &r, nil
}
