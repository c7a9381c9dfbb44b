package seeder

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"smartgn/internal/authz"
	identitymodels "smartgn/internal/identity/models"
	identityservice "smartgn/internal/identity/service"
	identitymemory "smartgn/internal/identity/store/memory"
	"smartgn/internal/identity/token"
	stmodels "smartgn/internal/servicetypes/models"
	stservice "smartgn/internal/servicetypes/service"
	stmemory "smartgn/internal/servicetypes/store/memory"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type SeederSuite struct {
	suite.Suite
	catalog  *stservice.Service
	citizens *identityservice.CredentialIssuer[*identitymodels.Citizen]
	officers *identityservice.CredentialIssuer[*identitymodels.Officer]
	seeder   *Seeder
}

func TestSeederSuite(t *testing.T) {
	suite.Run(t, new(SeederSuite))
}

func (s *SeederSuite) SetupTest() {
	log := slog.New(slog.DiscardHandler)
	jwt := token.NewJWTService("seed-secret", "smartgn-test", time.Hour)
	s.catalog = stservice.New(stmemory.New(), stservice.WithLogger(log))
	s.citizens = identityservice.NewCitizenIssuer(identitymemory.New[*identitymodels.Citizen](), jwt,
		identityservice.WithLogger(log), identityservice.WithHashCost(bcrypt.MinCost))
	s.officers = identityservice.NewOfficerIssuer(identitymemory.New[*identitymodels.Officer](), jwt, authz.RoleVillageOfficer,
		identityservice.WithLogger(log), identityservice.WithHashCost(bcrypt.MinCost))
	s.seeder = New(s.catalog, s.citizens, s.officers, log)
}

func (s *SeederSuite) TestSeedAllIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.seeder.SeedAll(ctx))
	s.Require().NoError(s.seeder.SeedAll(ctx))

	types, err := s.catalog.List(ctx, true)
	s.Require().NoError(err)
	s.Len(types, len(DefaultServiceTypes))

	_, _, err = s.citizens.Authenticate(ctx, "citizen@smartgn.local", DemoPassword)
	s.NoError(err)
	_, _, err = s.officers.Authenticate(ctx, "officer@smartgn.local", DemoPassword)
	s.NoError(err)
}

func (s *SeederSuite) TestCatalogOnly() {
	ctx := context.Background()
	seeder := New(s.catalog, nil, nil, nil)
	s.Require().NoError(seeder.SeedAll(ctx))

	citizens, err := s.citizens.List(ctx)
	s.Require().NoError(err)
	s.Empty(citizens)
}

func (s *SeederSuite) TestSeedCatalogKeepsExistingEntries() {
	ctx := context.Background()
	_, err := s.catalog.Create(ctx, DefaultServiceTypes[0].Name, "custom", nil)
	s.Require().NoError(err)

	created, err := s.seeder.SeedCatalog(ctx)
	s.Require().NoError(err)
	s.Equal(len(DefaultServiceTypes)-1, created)
}

type brokenCatalog struct{}

func (brokenCatalog) Create(context.Context, string, string, *bool) (*stmodels.ServiceType, error) {
	return nil, errors.New("db down")
}

func (s *SeederSuite) TestCatalogFailureStopsSeeding() {
	err := New(brokenCatalog{}, s.citizens, nil, nil).SeedAll(context.Background())
	s.ErrorContains(err, "db down")

	citizens, err := s.citizens.List(context.Background())
	s.Require().NoError(err)
	s.Empty(citizens)
}
