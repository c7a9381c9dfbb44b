// Package postgres persists the citizen and officer collections.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smartgn/internal/authz"
	"smartgn/internal/identity/models"
	"smartgn/internal/platform/database"
	"smartgn/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// The two collection tables share one column layout.
const columns = `id, email, password_hash, role, full_name, nic, district, division, created_at`

type row struct {
	acc      models.Account
	fullName string
	nic      string
	district string
	division string
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (row, error) {
	var r row
	var role string
	err := sc.Scan(&r.acc.ID, &r.acc.Email, &r.acc.PasswordHash, &role,
		&r.fullName, &r.nic, &r.district, &r.division, &r.acc.CreatedAt)
	r.acc.Role = authz.Role(role)
	return r, err
}

// Store persists one principal collection in table.
type Store[P models.Principal] struct {
	db      *sql.DB
	table   string
	toRow   func(P) row
	fromRow func(row) P
}

// NewCitizenStore stores citizens in the citizens table.
func NewCitizenStore(db *sql.DB) *Store[*models.Citizen] {
	return &Store[*models.Citizen]{
		db:    db,
		table: "citizens",
		toRow: func(c *models.Citizen) row {
			return row{acc: c.Account, fullName: c.FullName, nic: c.NIC}
		},
		fromRow: func(r row) *models.Citizen {
			return &models.Citizen{Account: r.acc, FullName: r.fullName, NIC: r.nic}
		},
	}
}

// NewOfficerStore stores officers in the officers table.
func NewOfficerStore(db *sql.DB) *Store[*models.Officer] {
	return &Store[*models.Officer]{
		db:    db,
		table: "officers",
		toRow: func(o *models.Officer) row {
			return row{acc: o.Account, fullName: o.FullName, district: o.District, division: o.Division}
		},
		fromRow: func(r row) *models.Officer {
			return &models.Officer{Account: r.acc, FullName: r.fullName, District: r.district, Division: r.division}
		},
	}
}

// Save inserts p or updates the row with the same id.
func (s *Store[P]) Save(ctx context.Context, p P) error {
	r := s.toRow(p)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+s.table+` (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role,
			full_name = EXCLUDED.full_name,
			nic = EXCLUDED.nic,
			district = EXCLUDED.district,
			division = EXCLUDED.division
	`, r.acc.ID, r.acc.Email, r.acc.PasswordHash, string(r.acc.Role),
		r.fullName, r.nic, r.district, r.division, r.acc.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("email %s already registered: %w", r.acc.Email, sentinel.ErrConflict)
		}
		return fmt.Errorf("save %s: %w", s.table, err)
	}
	return nil
}

func (s *Store[P]) FindByID(ctx context.Context, id uuid.UUID) (P, error) {
	return s.findOne(ctx, `SELECT `+columns+` FROM `+s.table+` WHERE id = $1`, id)
}

func (s *Store[P]) FindByEmail(ctx context.Context, email string) (P, error) {
	return s.findOne(ctx, `SELECT `+columns+` FROM `+s.table+` WHERE email = $1`, email)
}

func (s *Store[P]) findOne(ctx context.Context, query string, arg any) (P, error) {
	var zero P
	r, err := scanRow(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, fmt.Errorf("%s row: %w", s.table, sentinel.ErrNotFound)
		}
		return zero, fmt.Errorf("find %s: %w", s.table, err)
	}
	return s.fromRow(r), nil
}

// ListAll returns every principal, newest first.
func (s *Store[P]) ListAll(ctx context.Context) ([]P, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM `+s.table+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []P
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		out = append(out, s.fromRow(r))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.table, err)
	}
	return out, nil
}
