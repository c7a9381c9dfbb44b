package worker

//go:generate mockgen -source=worker.go -destination=mocks/mocks.go -package=mocks Publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartgn/internal/platform/kafka/producer"
	"smartgn/pkg/platform/circuit"
	"smartgn/pkg/platform/outbox"
	"smartgn/pkg/platform/outbox/metrics"
	"smartgn/pkg/platform/outbox/store/memory"
	"smartgn/pkg/platform/outbox/worker/mocks"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type WorkerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	publisher *mocks.MockPublisher
	store     *memory.Store
	now       time.Time
	worker    *Worker
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.store = memory.New()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.worker = New(s.store, s.publisher,
		WithTopic("gn.events"),
		WithBatchSize(2),
		WithClock(func() time.Time { return s.now }),
		WithMetrics(metrics.NewWith(prometheus.NewRegistry())),
	)
}

func (s *WorkerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *WorkerSuite) appendEntry(eventType string, offset time.Duration) *outbox.Entry {
	e := outbox.NewEntry("request", uuid.NewString(), eventType, []byte(`{"status":"PENDING"}`), s.now.Add(offset))
	s.Require().NoError(s.store.Append(context.Background(), e))
	return e
}

func (s *WorkerSuite) TestPublishesWithKeyAndHeaders() {
	entry := s.appendEntry("request.created", 0)

	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg *producer.Message) error {
			s.Equal("gn.events", msg.Topic)
			s.Equal(entry.ID.String(), string(msg.Key))
			s.JSONEq(`{"status":"PENDING"}`, string(msg.Value))
			s.Equal("request", msg.Headers["aggregate_type"])
			s.Equal(entry.AggregateID, msg.Headers["aggregate_id"])
			s.Equal("request.created", msg.Headers["event_type"])
			return nil
		})

	s.Equal(1, s.worker.PollOnce(context.Background()))

	pending, err := s.store.CountPending(context.Background())
	s.Require().NoError(err)
	s.Zero(pending)
}

func (s *WorkerSuite) TestRespectsBatchSizeAndOrder() {
	first := s.appendEntry("request.created", 0)
	second := s.appendEntry("request.verified", time.Second)
	s.appendEntry("request.completed", 2*time.Second)

	gomock.InOrder(
		s.publisher.EXPECT().Produce(gomock.Any(), keyIs(first.ID)).Return(nil),
		s.publisher.EXPECT().Produce(gomock.Any(), keyIs(second.ID)).Return(nil),
	)

	s.Equal(2, s.worker.PollOnce(context.Background()))

	pending, err := s.store.CountPending(context.Background())
	s.Require().NoError(err)
	s.EqualValues(1, pending)
}

func (s *WorkerSuite) TestFailedPublishStaysPending() {
	s.appendEntry("request.declined", 0)
	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(errors.New("broker unavailable"))

	s.Zero(s.worker.PollOnce(context.Background()))

	pending, err := s.store.CountPending(context.Background())
	s.Require().NoError(err)
	s.EqualValues(1, pending)
}

func (s *WorkerSuite) TestOpenBreakerProbesOneEntryPerPoll() {
	breaker := circuit.New("kafka", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(2))
	w := New(s.store, s.publisher,
		WithBatchSize(10),
		WithClock(func() time.Time { return s.now }),
		WithBreaker(breaker),
	)
	first := s.appendEntry("request.created", 0)
	second := s.appendEntry("request.verified", time.Second)
	s.appendEntry("request.completed", 2*time.Second)

	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(errors.New("broker unavailable")).Times(2)
	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(nil)
	s.Equal(1, w.PollOnce(context.Background()), "third entry is the first probe")
	s.True(breaker.IsOpen())

	s.publisher.EXPECT().Produce(gomock.Any(), keyIs(first.ID)).Return(errors.New("still down"))
	s.Zero(w.PollOnce(context.Background()))

	s.publisher.EXPECT().Produce(gomock.Any(), keyIs(first.ID)).Return(nil)
	s.Equal(1, w.PollOnce(context.Background()), "only the probe is sent while open")
	s.True(breaker.IsOpen())

	s.publisher.EXPECT().Produce(gomock.Any(), keyIs(second.ID)).Return(nil)
	s.Equal(1, w.PollOnce(context.Background()))
	s.False(breaker.IsOpen())
}

func (s *WorkerSuite) TestRetentionPurgesProcessed() {
	w := New(s.store, s.publisher,
		WithRetention(time.Hour),
		WithClock(func() time.Time { return s.now }),
	)
	old := s.appendEntry("request.created", -3*time.Hour)
	s.Require().NoError(s.store.MarkProcessed(context.Background(), old.ID, s.now.Add(-2*time.Hour)))

	w.PollOnce(context.Background())

	s.Empty(s.store.Entries())
}

func (s *WorkerSuite) TestStopDrainsPending() {
	s.appendEntry("request.created", 0)
	s.appendEntry("request.verified", time.Second)
	s.appendEntry("request.completed", 2*time.Second)
	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	w := New(s.store, s.publisher, WithPollInterval(time.Hour), WithBatchSize(2))
	w.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(w.Stop(ctx))

	pending, err := s.store.CountPending(context.Background())
	s.Require().NoError(err)
	s.Zero(pending)
}

func (s *WorkerSuite) TestDrainGivesUpWhenBrokerIsDown() {
	s.appendEntry("request.created", 0)
	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(errors.New("down")).Times(1)

	w := New(s.store, s.publisher, WithPollInterval(time.Hour))
	w.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(w.Stop(ctx))
}

type keyMatcher struct{ key string }

func keyIs(id uuid.UUID) gomock.Matcher { return keyMatcher{key: id.String()} }

func (m keyMatcher) Matches(x any) bool {
	msg, ok := x.(*producer.Message)
	return ok && string(msg.Key) == m.key
}

func (m keyMatcher) String() string { return "message with key " + m.key }
