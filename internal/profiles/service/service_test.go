package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks CitizenDirectory

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	identity "smartgn/internal/identity/models"
	"smartgn/internal/profiles/models"
	"smartgn/internal/profiles/service/mocks"
	"smartgn/internal/profiles/store/memory"
	id "smartgn/pkg/domain"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/requestcontext"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ProfileSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	citizens *mocks.MockCitizenDirectory
	store    *memory.Store
	svc      *Service
	ctx      context.Context
	now      time.Time
	user     id.UserID
}

func TestProfileSuite(t *testing.T) {
	suite.Run(t, new(ProfileSuite))
}

func (s *ProfileSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.citizens = mocks.NewMockCitizenDirectory(s.ctrl)
	s.store = memory.New()
	s.svc = New(s.store, s.citizens, WithLogger(slog.New(slog.DiscardHandler)))
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.user = id.NewUserID()
}

func (s *ProfileSuite) input() models.Input {
	return models.Input{
		FullName:  " Nimal Perera ",
		Address:   "12 Temple Road, Kandy",
		NIC:       "123456789v",
		Email:     "Nimal@Example.lk",
		Telephone: "+94771234567",
		District:  "Kandy",
		Division:  "Gangawata Korale",
		Birthday:  "1990-01-01",
	}
}

func (s *ProfileSuite) TestUpsertCreatesThenReplaces() {
	s.citizens.EXPECT().Exists(gomock.Any(), uuid.UUID(s.user)).Return(true, nil).Times(2)

	created, err := s.svc.Upsert(s.ctx, s.user, s.input())
	s.Require().NoError(err)
	s.Equal("Nimal Perera", created.FullName)
	s.Equal("123456789V", created.NIC)
	s.Equal("nimal@example.lk", created.Email)
	s.Require().NotNil(created.Birthday)
	s.Equal(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), *created.Birthday)
	s.Equal(s.now, created.UpdatedAt)

	in := s.input()
	in.Address = "3 Lake Drive, Kandy"
	in.Birthday = ""
	_, err = s.svc.Upsert(s.ctx, s.user, in)
	s.Require().NoError(err)

	got, err := s.svc.Get(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal("3 Lake Drive, Kandy", got.Address)
	s.Nil(got.Birthday)
}

func (s *ProfileSuite) TestUpsertRejections() {
	s.Run("unknown citizen is invalid input", func() {
		s.citizens.EXPECT().Exists(gomock.Any(), uuid.UUID(s.user)).Return(false, nil)
		_, err := s.svc.Upsert(s.ctx, s.user, s.input())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Equal("user does not exist", err.Error())
	})

	s.Run("bad birthday never reaches the directory", func() {
		in := s.input()
		in.Birthday = "01/01/1990"
		_, err := s.svc.Upsert(s.ctx, s.user, in)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("malformed NIC", func() {
		in := s.input()
		in.NIC = "12345"
		_, err := s.svc.Upsert(s.ctx, s.user, in)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("directory failure is internal", func() {
		s.citizens.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))
		_, err := s.svc.Upsert(s.ctx, s.user, s.input())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ProfileSuite) TestGetMissing() {
	_, err := s.svc.Get(s.ctx, id.NewUserID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ProfileSuite) TestSearchByNIC() {
	s.citizens.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(true, nil)
	_, err := s.svc.Upsert(s.ctx, s.user, s.input())
	s.Require().NoError(err)

	got, err := s.svc.SearchByNIC(s.ctx, " 123456789v ")
	s.Require().NoError(err)
	s.Equal(s.user, got.UserID)

	_, err = s.svc.SearchByNIC(s.ctx, "199012345678")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.SearchByNIC(s.ctx, "abc")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ProfileSuite) TestListCitizens() {
	citizen := &identity.Citizen{Account: identity.Account{ID: uuid.New(), Email: "a@example.lk", PasswordHash: "hash"}}
	s.citizens.EXPECT().List(gomock.Any()).Return([]*identity.Citizen{citizen}, nil)

	all, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)

	s.citizens.EXPECT().List(gomock.Any()).Return(nil, errors.New("boom"))
	_, err = s.svc.List(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
