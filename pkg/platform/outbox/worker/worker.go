package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"smartgn/internal/platform/kafka/producer"
	"smartgn/pkg/platform/circuit"
	"smartgn/pkg/platform/outbox"
	"smartgn/pkg/platform/outbox/metrics"
)

// Publisher delivers one message synchronously.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Worker polls the outbox table and publishes entries to Kafka.
// Delivery is at least once: an entry published but not marked is sent again.
type Worker struct {
	store        outbox.Store
	publisher    Publisher
	topic        string
	batchSize    int
	pollInterval time.Duration
	retention    time.Duration
	drainTimeout time.Duration
	now          func() time.Time
	metrics      *metrics.Metrics
	logger       *slog.Logger
	breaker      *circuit.Breaker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Worker.
type Option func(*Worker)

func WithTopic(topic string) Option {
	return func(w *Worker) { w.topic = topic }
}

func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithRetention deletes processed entries older than d once per poll.
// Zero keeps processed entries forever.
func WithRetention(d time.Duration) Option {
	return func(w *Worker) { w.retention = d }
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithBreaker limits each poll to a single probe entry while b is open.
func WithBreaker(b *circuit.Breaker) Option {
	return func(w *Worker) { w.breaker = b }
}

// New creates a new outbox worker.
func New(store outbox.Store, publisher Publisher, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		store:        store,
		publisher:    publisher,
		topic:        "smartgn.request.events",
		batchSize:    100,
		pollInterval: 100 * time.Millisecond,
		drainTimeout: 10 * time.Second,
		now:          time.Now,
		logger:       slog.New(slog.DiscardHandler),
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the polling loop in a background goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case <-ticker.C:
			w.PollOnce(w.ctx)
		}
	}
}

// PollOnce publishes one batch and returns how many entries were published.
func (w *Worker) PollOnce(ctx context.Context) int {
	entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to fetch outbox entries", "error", err)
		if w.metrics != nil {
			w.metrics.IncPublishFailures()
		}
		return 0
	}

	published := 0
	if len(entries) > 0 {
		if w.metrics != nil {
			w.metrics.ObserveBatchSize(len(entries))
		}
		for _, entry := range entries {
			probing := w.breaker != nil && w.breaker.IsOpen()
			if w.deliver(ctx, entry) {
				published++
			}
			if probing {
				break
			}
		}
	}

	w.housekeeping(ctx)
	return published
}

func (w *Worker) deliver(ctx context.Context, entry *outbox.Entry) bool {
	if err := w.publish(ctx, entry); err != nil {
		w.logger.ErrorContext(ctx, "failed to publish outbox entry",
			"id", entry.ID,
			"event_type", entry.EventType,
			"error", err,
		)
		if w.metrics != nil {
			w.metrics.IncPublishFailures()
		}
		if w.breaker != nil && w.breaker.RecordFailure() {
			w.logger.WarnContext(ctx, "publish circuit opened, probing with one entry per poll",
				"breaker", w.breaker.Name(),
			)
		}
		return false
	}
	if w.breaker != nil && w.breaker.RecordSuccess() {
		w.logger.InfoContext(ctx, "publish circuit closed", "breaker", w.breaker.Name())
	}

	if err := w.store.MarkProcessed(ctx, entry.ID, w.now()); err != nil {
		// Already on the topic; the next poll sends it again.
		w.logger.ErrorContext(ctx, "failed to mark outbox entry processed",
			"id", entry.ID,
			"error", err,
		)
		return false
	}
	if w.metrics != nil {
		w.metrics.IncPublished(entry.EventType)
	}
	return true
}

func (w *Worker) publish(ctx context.Context, entry *outbox.Entry) error {
	start := time.Now()
	msg := &producer.Message{
		Topic: w.topic,
		Key:   []byte(entry.ID.String()),
		Value: entry.Payload,
		Headers: map[string]string{
			"aggregate_type": entry.AggregateType,
			"aggregate_id":   entry.AggregateID,
			"event_type":     entry.EventType,
		},
	}
	if err := w.publisher.Produce(ctx, msg); err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.ObservePublishDuration(time.Since(start).Seconds())
	}
	return nil
}

func (w *Worker) housekeeping(ctx context.Context) {
	if w.retention > 0 {
		n, err := w.store.DeleteProcessedBefore(ctx, w.now().Add(-w.retention))
		if err != nil {
			w.logger.WarnContext(ctx, "failed to purge processed outbox entries", "error", err)
		} else if n > 0 && w.metrics != nil {
			w.metrics.AddPurged(n)
		}
	}
	if w.metrics != nil {
		if count, err := w.store.CountPending(ctx); err == nil {
			w.metrics.SetPendingDepth(count)
		}
	}
}

// drain publishes what is left after Stop, bounded by drainTimeout.
// It stops early when a whole batch fails so a dead broker cannot spin it.
func (w *Worker) drain() {
	w.logger.Info("draining outbox worker")

	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()

	for ctx.Err() == nil {
		entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
		if err != nil {
			w.logger.Error("failed to fetch entries during drain", "error", err)
			return
		}
		if len(entries) == 0 {
			return
		}
		published := 0
		for _, entry := range entries {
			if w.deliver(ctx, entry) {
				published++
			}
		}
		if published == 0 {
			return
		}
	}
}

// Stop cancels polling, drains, and waits for the loop to exit or ctx to end.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
