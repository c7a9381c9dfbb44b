package lockout

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/requestcontext"

	"github.com/stretchr/testify/suite"
)

type GuardSuite struct {
	suite.Suite
	store *MemoryStore
	guard *Guard
	now   time.Time
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.guard = New(s.store,
		WithPolicy(Policy{Threshold: 3, Window: time.Minute, LockFor: 5 * time.Minute}),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
	s.now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *GuardSuite) at(offset time.Duration, ip string) context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now.Add(offset))
	return requestcontext.WithClientMetadata(ctx, ip, "test")
}

func (s *GuardSuite) fail(ctx context.Context, n int) {
	for range n {
		s.Require().NoError(s.guard.Failure(ctx, "user", "a@example.lk"))
	}
}

func (s *GuardSuite) TestLocksAtThreshold() {
	ctx := s.at(0, "10.0.0.1")
	s.fail(ctx, 2)
	s.NoError(s.guard.Check(ctx, "user", "a@example.lk"))

	s.fail(ctx, 1)
	err := s.guard.Check(ctx, "user", "A@example.lk ")
	s.True(dErrors.HasCode(err, dErrors.CodeTooManyRequests))
}

func (s *GuardSuite) TestLockExpires() {
	s.fail(s.at(0, "10.0.0.1"), 3)

	s.Error(s.guard.Check(s.at(4*time.Minute, "10.0.0.1"), "user", "a@example.lk"))
	s.NoError(s.guard.Check(s.at(5*time.Minute, "10.0.0.1"), "user", "a@example.lk"))
}

func (s *GuardSuite) TestWindowResetsCount() {
	s.fail(s.at(0, "10.0.0.1"), 2)
	s.fail(s.at(2*time.Minute, "10.0.0.1"), 2)

	s.NoError(s.guard.Check(s.at(2*time.Minute, "10.0.0.1"), "user", "a@example.lk"))
}

func (s *GuardSuite) TestScopedByClientAndKind() {
	s.fail(s.at(0, "10.0.0.1"), 3)

	s.NoError(s.guard.Check(s.at(0, "10.0.0.2"), "user", "a@example.lk"))
	s.NoError(s.guard.Check(s.at(0, "10.0.0.1"), "village_officer", "a@example.lk"))
}

func (s *GuardSuite) TestSuccessClears() {
	ctx := s.at(0, "10.0.0.1")
	s.fail(ctx, 2)
	s.Require().NoError(s.guard.Success(ctx, "user", "a@example.lk"))
	s.fail(ctx, 2)

	s.NoError(s.guard.Check(ctx, "user", "a@example.lk"))
}

func (s *GuardSuite) TestZeroThresholdDisables() {
	g := New(failingStore{}, WithPolicy(Policy{}))
	ctx := s.at(0, "10.0.0.1")

	s.NoError(g.Failure(ctx, "user", "a@example.lk"))
	s.NoError(g.Check(ctx, "user", "a@example.lk"))
	s.NoError(g.Success(ctx, "user", "a@example.lk"))
}

func (s *GuardSuite) TestStoreErrorsAreInternal() {
	g := New(failingStore{}, WithLogger(slog.New(slog.DiscardHandler)))
	ctx := s.at(0, "10.0.0.1")

	s.True(dErrors.HasCode(g.Check(ctx, "user", "a@example.lk"), dErrors.CodeInternal))
	s.True(dErrors.HasCode(g.Failure(ctx, "user", "a@example.lk"), dErrors.CodeInternal))
	s.True(dErrors.HasCode(g.Success(ctx, "user", "a@example.lk"), dErrors.CodeInternal))
}

var errStore = errors.New("store unavailable")

type failingStore struct{}

func (failingStore) RecordFailure(context.Context, string, time.Duration) (int, error) {
	return 0, errStore
}
func (failingStore) LockedUntil(context.Context, string) (time.Time, error) {
	return time.Time{}, errStore
}
func (failingStore) Lock(context.Context, string, time.Time) error { return errStore }
func (failingStore) Clear(context.Context, string) error { return errStore }
