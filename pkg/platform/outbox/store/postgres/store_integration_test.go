//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"smartgn/pkg/platform/outbox"
	"smartgn/pkg/platform/outbox/store/postgres"
	"smartgn/pkg/platform/sentinel"
	"smartgn/pkg/testutil/containers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type OutboxStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
	base  time.Time
}

func TestOutboxStoreSuite(t *testing.T) {
	suite.Run(t, new(OutboxStoreSuite))
}

func (s *OutboxStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.pg.DB)
	s.base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *OutboxStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(context.Background()))
}

func (s *OutboxStoreSuite) appendAt(offset time.Duration, eventType string) *outbox.Entry {
	e := outbox.NewEntry("request", uuid.NewString(), eventType, []byte(`{"status":"PENDING"}`), s.base.Add(offset))
	s.Require().NoError(s.store.Append(context.Background(), e))
	return e
}

func (s *OutboxStoreSuite) TestFetchOldestFirst() {
	ctx := context.Background()
	second := s.appendAt(time.Second, "request.verified")
	first := s.appendAt(0, "request.created")
	s.appendAt(2*time.Second, "request.completed")

	got, err := s.store.FetchUnprocessed(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(first.ID, got[0].ID)
	s.Equal(second.ID, got[1].ID)
	s.Equal("request.created", got[0].EventType)
	s.JSONEq(`{"status":"PENDING"}`, string(got[0].Payload))
	s.True(got[0].IsPending())
}

func (s *OutboxStoreSuite) TestMarkProcessedOnce() {
	ctx := context.Background()
	e := s.appendAt(0, "request.created")

	s.Require().NoError(s.store.MarkProcessed(ctx, e.ID, s.base.Add(time.Minute)))
	s.ErrorIs(s.store.MarkProcessed(ctx, e.ID, s.base.Add(2*time.Minute)), sentinel.ErrNotFound)
	s.ErrorIs(s.store.MarkProcessed(ctx, uuid.New(), s.base), sentinel.ErrNotFound)

	pending, err := s.store.CountPending(ctx)
	s.Require().NoError(err)
	s.Zero(pending)
}

func (s *OutboxStoreSuite) TestDeleteProcessedBefore() {
	ctx := context.Background()
	old := s.appendAt(0, "request.created")
	recent := s.appendAt(time.Second, "request.verified")
	s.appendAt(2*time.Second, "request.declined")

	s.Require().NoError(s.store.MarkProcessed(ctx, old.ID, s.base.Add(time.Hour)))
	s.Require().NoError(s.store.MarkProcessed(ctx, recent.ID, s.base.Add(48*time.Hour)))

	n, err := s.store.DeleteProcessedBefore(ctx, s.base.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	pending, err := s.store.CountPending(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), pending)
}
