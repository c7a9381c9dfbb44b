// Package postgres persists the service-type catalog.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smartgn/internal/platform/database"
	"smartgn/internal/servicetypes/models"
	id "smartgn/pkg/domain"
	"smartgn/pkg/platform/sentinel"

	"github.com/google/uuid"
)

const columns = `id, name, description, is_active, created_at`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save inserts st. The name unique constraint maps to sentinel.ErrConflict.
func (s *Store) Save(ctx context.Context, st *models.ServiceType) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_types (`+columns+`)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(st.ID), st.Name, st.Description, st.IsActive, st.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("service type %q: %w", st.Name, sentinel.ErrConflict)
		}
		return fmt.Errorf("save service type: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, typeID id.ServiceTypeID) (*models.ServiceType, error) {
	return s.findOne(ctx, `SELECT `+columns+` FROM service_types WHERE id = $1`, uuid.UUID(typeID))
}

func (s *Store) FindByName(ctx context.Context, name string) (*models.ServiceType, error) {
	return s.findOne(ctx, `SELECT `+columns+` FROM service_types WHERE name = $1`, name)
}

// List returns service types ordered by name.
func (s *Store) List(ctx context.Context, includeInactive bool) ([]*models.ServiceType, error) {
	query := `SELECT ` + columns + ` FROM service_types`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list service types: %w", err)
	}
	defer rows.Close()

	out := []*models.ServiceType{}
	for rows.Next() {
		st, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service type: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service types: %w", err)
	}
	return out, nil
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (*models.ServiceType, error) {
	st, err := scan(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("service type: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find service type: %w", err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (*models.ServiceType, error) {
	var st models.ServiceType
	var rawID uuid.UUID
	if err := sc.Scan(&rawID, &st.Name, &st.Description, &st.IsActive, &st.CreatedAt); err != nil {
		return nil, err
	}
	st.ID = id.ServiceTypeID(rawID)
	return &st, nil
}
