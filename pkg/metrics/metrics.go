// Package metrics records fetch activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Recorder receives fetch events from the download pool and the mirror engine.
// Implementations must be safe for concurrent use.
type Recorder interface {
	FetchStarted(kind string)
	FetchFinished(kind, outcome string, bytes int64, elapsed time.Duration)
	ScopeRejected()
	Deduplicated()
}

// Noop discards every event.
type Noop struct{}

func (Noop) FetchStarted(string) {}
func (Noop) FetchFinished(string, string, int64, time.Duration) {}
func (Noop) ScopeRejected() {}
func (Noop) Deduplicated() {}

// PrometheusMetrics implements Recorder on a private registry so that several
// instances can live in one process.
type PrometheusMetrics struct {
	namespace string
	registry  *prometheus.Registry

	fetchesTotal    *prometheus.CounterVec
	bytesTotal      *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
	rejectedTotal   prometheus.Counter
	dedupTotal      prometheus.Counter
}

// New creates a PrometheusMetrics whose metric names are prefixed with namespace.
func New(namespace string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
	}

	m.fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_fetches_total", namespace),
			Help: "Completed resource fetches by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	m.bytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_fetched_bytes_total", namespace),
			Help: "Bytes written for successful fetches by kind",
		},
		[]string{"kind"},
	)
	m.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_fetch_duration_seconds", namespace),
			Help:    "Fetch duration including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	m.inFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_fetches_in_flight", namespace),
			Help: "Fetches currently running",
		},
		[]string{"kind"},
	)
	m.rejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: fmt.Sprintf("%s_scope_rejections_total", namespace),
		Help: "References left untouched because they are out of scope",
	})
	m.dedupTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: fmt.Sprintf("%s_deduplicated_references_total", namespace),
		Help: "References that reused an already scheduled fetch",
	})

	m.registry.MustRegister(
		m.fetchesTotal,
		m.bytesTotal,
		m.durationSeconds,
		m.inFlight,
		m.rejectedTotal,
		m.dedupTotal,
	)
	return m
}

// Registry exposes the private registry, e.g. for an HTTP handler.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PrometheusMetrics) FetchStarted(kind string) {
	m.inFlight.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) FetchFinished(kind, outcome string, bytes int64, elapsed time.Duration) {
	m.fetchesTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeSkipped {
		return
	}
	m.inFlight.WithLabelValues(kind).Dec()
	m.durationSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		m.bytesTotal.WithLabelValues(kind).Add(float64(bytes))
	}
}

func (m *PrometheusMetrics) ScopeRejected() {
	m.rejectedTotal.Inc()
}

func (m *PrometheusMetrics) Deduplicated() {
	m.dedupTotal.Inc()
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func (m *PrometheusMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
