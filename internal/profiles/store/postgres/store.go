// Package postgres persists citizen profiles.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smartgn/internal/platform/database"
	"smartgn/internal/profiles/models"
	id "smartgn/pkg/domain"
	"smartgn/pkg/platform/sentinel"

	"github.com/google/uuid"
)

const selectColumns = `SELECT user_id, full_name, address, nic, email, telephone, district, division, birthday, updated_at
	FROM citizen_profiles`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert creates or replaces the profile. An unknown citizen is
// sentinel.ErrInvalidInput.
func (s *Store) Upsert(ctx context.Context, p *models.Profile) error {
	var birthday sql.NullTime
	if p.Birthday != nil {
		birthday = sql.NullTime{Time: *p.Birthday, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO citizen_profiles (user_id, full_name, address, nic, email, telephone, district, division, birthday, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			address = EXCLUDED.address,
			nic = EXCLUDED.nic,
			email = EXCLUDED.email,
			telephone = EXCLUDED.telephone,
			district = EXCLUDED.district,
			division = EXCLUDED.division,
			birthday = EXCLUDED.birthday,
			updated_at = EXCLUDED.updated_at
	`, uuid.UUID(p.UserID), p.FullName, p.Address, p.NIC, p.Email, p.Telephone,
		p.District, p.Division, birthday, p.UpdatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("citizen %s: %w", p.UserID, sentinel.ErrInvalidInput)
		}
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *Store) FindByUserID(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	return s.findOne(ctx, selectColumns+` WHERE user_id = $1`, uuid.UUID(userID))
}

// FindByNIC returns the most recently updated profile carrying nic.
func (s *Store) FindByNIC(ctx context.Context, nic string) (*models.Profile, error) {
	return s.findOne(ctx, selectColumns+` WHERE nic = $1 ORDER BY updated_at DESC LIMIT 1`, nic)
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (*models.Profile, error) {
	var p models.Profile
	var userID uuid.UUID
	var birthday sql.NullTime
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&userID, &p.FullName, &p.Address, &p.NIC,
		&p.Email, &p.Telephone, &p.District, &p.Division, &birthday, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	p.UserID = id.UserID(userID)
	if birthday.Valid {
		b := birthday.Time.UTC()
		p.Birthday = &b
	}
	return &p, nil
}
