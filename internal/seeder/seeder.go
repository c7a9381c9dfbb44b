// Package seeder loads a starter catalog and optional demo accounts so a
// fresh deployment is usable without manual provisioning.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	identitymodels "smartgn/internal/identity/models"
	stmodels "smartgn/internal/servicetypes/models"
	dErrors "smartgn/pkg/domain-errors"
)

// Catalog creates service types.
type Catalog interface {
	Create(ctx context.Context, name, description string, isActive *bool) (*stmodels.ServiceType, error)
}

// Registrar registers one kind of account.
type Registrar[P any] interface {
	Register(ctx context.Context, in identitymodels.RegisterInput) (P, error)
}

// DefaultServiceTypes is the catalog a new division starts with.
var DefaultServiceTypes = []stmodels.CreateInput{
	{Name: "Birth Certificate", Description: "Request for a new birth certificate"},
	{Name: "Character Certificate", Description: "Certificate of good conduct issued by the village officer"},
	{Name: "Income Certificate", Description: "Confirmation of household income"},
	{Name: "Residence Certificate", Description: "Confirmation of permanent residence in the division"},
	{Name: "Death Certificate", Description: "Request for a death certificate"},
}

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "changeme123"

// Seeder populates stores through the services so seeded data obeys the
// same validation and audit logging as API traffic.
type Seeder struct {
	catalog  Catalog
	citizens Registrar[*identitymodels.Citizen]
	officers Registrar[*identitymodels.Officer]
	logger   *slog.Logger
}

// New creates a seeder. citizens and officers may be nil when only the
// catalog should be seeded.
func New(
	catalog Catalog,
	citizens Registrar[*identitymodels.Citizen],
	officers Registrar[*identitymodels.Officer],
	logger *slog.Logger,
) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{catalog: catalog, citizens: citizens, officers: officers, logger: logger}
}

// SeedAll seeds the catalog and then the demo accounts. Entries that already
// exist are skipped, so running it twice is harmless.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.InfoContext(ctx, "seeding starter data")

	types, err := s.SeedCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed service types: %w", err)
	}
	accounts, err := s.seedAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed accounts: %w", err)
	}

	s.logger.InfoContext(ctx, "seeding complete",
		"service_types", types,
		"accounts", accounts,
	)
	return nil
}

// SeedCatalog creates every DefaultServiceTypes entry that is missing and
// returns how many were created.
func (s *Seeder) SeedCatalog(ctx context.Context) (int, error) {
	created := 0
	for _, in := range DefaultServiceTypes {
		_, err := s.catalog.Create(ctx, in.Name, in.Description, nil)
		switch {
		case err == nil:
			created++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			s.logger.DebugContext(ctx, "service type already present", "name", in.Name)
		default:
			return created, err
		}
	}
	return created, nil
}

func (s *Seeder) seedAccounts(ctx context.Context) (int, error) {
	created := 0
	if s.officers != nil {
		ok, err := register(ctx, s.officers, identitymodels.RegisterInput{
			Email:    "officer@smartgn.local",
			Password: DemoPassword,
			FullName: "Demo Village Officer",
			District: "Colombo",
			Division: "Kollupitiya",
		})
		if err != nil {
			return created, err
		}
		created += ok
	}
	if s.citizens != nil {
		ok, err := register(ctx, s.citizens, identitymodels.RegisterInput{
			Email:    "citizen@smartgn.local",
			Password: DemoPassword,
			FullName: "Demo Citizen",
			NIC:      "200012345678",
		})
		if err != nil {
			return created, err
		}
		created += ok
	}
	return created, nil
}

func register[P any](ctx context.Context, r Registrar[P], in identitymodels.RegisterInput) (int, error) {
	_, err := r.Register(ctx, in)
	switch {
	case err == nil:
		return 1, nil
	case dErrors.HasCode(err, dErrors.CodeConflict):
		return 0, nil
	default:
		return 0, fmt.Errorf("register %s: %w", in.Email, err)
	}
}
