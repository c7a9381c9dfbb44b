package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartgn/internal/requests/models"
	id "smartgn/pkg/domain"
	"smartgn/pkg/platform/outbox"
	outboxmemory "smartgn/pkg/platform/outbox/store/memory"
	"smartgn/pkg/platform/sentinel"
	"smartgn/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newRequest(user id.UserID, officer id.OfficerID, offset time.Duration) *models.Request {
	return &models.Request{
		ID:          id.NewRequestID(),
		UserID:      user,
		OfficerID:   officer,
		RequestType: "Residence Certificate",
		Status:      models.StatusPending,
		RequestDate: base,
		CreatedAt:   base.Add(offset),
	}
}

func createdEvent(t *testing.T, r *models.Request) *outbox.Entry {
	t.Helper()
	e, err := models.NewOutboxEntry(models.EventCreated, r, r.CreatedAt)
	require.NoError(t, err)
	return e
}

func TestCreateAndFind(t *testing.T) {
	events := outboxmemory.New()
	s := New(events)
	ctx := context.Background()

	r := newRequest(id.NewUserID(), id.NewOfficerID(), 0)
	require.NoError(t, s.Create(ctx, r, createdEvent(t, r)))

	got, err := s.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
	assert.NotSame(t, r, got)
	assert.Len(t, events.Entries(), 1)

	_, err = s.FindByID(ctx, id.NewRequestID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestListOrderingAndFilters(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	alice, bob := id.NewUserID(), id.NewUserID()
	gn := id.NewOfficerID()

	first := newRequest(alice, gn, 0)
	second := newRequest(bob, gn, time.Minute)
	third := newRequest(alice, id.NewOfficerID(), 2*time.Minute)
	for _, r := range []*models.Request{first, second, third} {
		require.NoError(t, s.Create(ctx, r, nil))
	}

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []id.RequestID{third.ID, second.ID, first.ID}, []id.RequestID{all[0].ID, all[1].ID, all[2].ID})

	mine, err := s.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, third.ID, mine[0].ID)

	recent, err := s.RecentByOfficer(ctx, gn, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, second.ID, recent[0].ID)

	n, err := s.CountByOfficer(ctx, gn, models.CountFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("validate failure leaves the request untouched", func(t *testing.T) {
		events := outboxmemory.New()
		s := New(events)
		r := newRequest(id.NewUserID(), id.NewOfficerID(), 0)
		require.NoError(t, s.Create(ctx, r, nil))

		boom := errors.New("no")
		_, err := s.Execute(ctx, r.ID,
			func(*models.Request) error { return boom },
			func(r *models.Request) (*outbox.Entry, error) {
				r.Status = models.StatusDeclined
				return nil, nil
			})
		assert.ErrorIs(t, err, boom)

		got, _ := s.FindByID(ctx, r.ID)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Empty(t, events.Entries())
	})

	t.Run("mutation and event are stored together", func(t *testing.T) {
		events := outboxmemory.New()
		s := New(events)
		r := newRequest(id.NewUserID(), id.NewOfficerID(), 0)
		require.NoError(t, s.Create(ctx, r, nil))

		updated, err := s.Execute(ctx, r.ID,
			func(*models.Request) error { return nil },
			func(r *models.Request) (*outbox.Entry, error) {
				r.Status = models.StatusVerified
				return models.NewOutboxEntry(models.EventVerified, r, base)
			})
		require.NoError(t, err)
		assert.Equal(t, models.StatusVerified, updated.Status)

		got, _ := s.FindByID(ctx, r.ID)
		assert.Equal(t, models.StatusVerified, got.Status)
		require.Len(t, events.Entries(), 1)
		assert.Equal(t, models.EventVerified, events.Entries()[0].EventType)
	})

	t.Run("unknown id", func(t *testing.T) {
		s := New(nil)
		_, err := s.Execute(ctx, id.NewRequestID(),
			func(*models.Request) error { return nil },
			func(*models.Request) (*outbox.Entry, error) { return nil, nil })
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("concurrent executes on one request serialize", func(t *testing.T) {
		s := New(nil)
		r := newRequest(id.NewUserID(), id.NewOfficerID(), 0)
		require.NoError(t, s.Create(ctx, r, nil))

		res := testutil.RunConcurrent(20, func(int) error {
			_, err := s.Execute(ctx, r.ID,
				func(r *models.Request) error {
					if r.Status != models.StatusPending {
						return sentinel.ErrInvalidState
					}
					return nil
				},
				func(r *models.Request) (*outbox.Entry, error) {
					r.Status = models.StatusVerified
					return nil, nil
				})
			return err
		})
		assert.Equal(t, int32(1), res.Successes)
		assert.Equal(t, int32(19), res.Transitions)
	})
}
