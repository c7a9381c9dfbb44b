package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the outbox worker.
type Metrics struct {
	PendingDepth    prometheus.Gauge
	PublishedTotal  *prometheus.CounterVec
	PublishFailures prometheus.Counter
	PublishDuration prometheus.Histogram
	BatchSize       prometheus.Histogram
	PurgedTotal     prometheus.Counter
}

// New registers the outbox metrics with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the outbox metrics with reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PendingDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "smartgn_outbox_pending_total",
			Help: "Current number of unpublished outbox entries",
		}),
		PublishedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smartgn_outbox_published_total",
			Help: "Outbox entries published to Kafka",
		}, []string{"event_type"}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgn_outbox_publish_failures_total",
			Help: "Outbox fetch or publish failures",
		}),
		PublishDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartgn_outbox_publish_duration_seconds",
			Help:    "Time taken to publish one outbox entry",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartgn_outbox_batch_size",
			Help:    "Entries fetched per poll",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		PurgedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "smartgn_outbox_purged_total",
			Help: "Processed outbox entries deleted by retention",
		}),
	}
}

func (m *Metrics) SetPendingDepth(count int64) {
	m.PendingDepth.Set(float64(count))
}

func (m *Metrics) IncPublished(eventType string) {
	m.PublishedTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncPublishFailures() {
	m.PublishFailures.Inc()
}

func (m *Metrics) ObservePublishDuration(durationSeconds float64) {
	m.PublishDuration.Observe(durationSeconds)
}

func (m *Metrics) ObserveBatchSize(size int) {
	m.BatchSize.Observe(float64(size))
}

func (m *Metrics) AddPurged(n int64) {
	m.PurgedTotal.Add(float64(n))
}
