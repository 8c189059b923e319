package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricScoreRecomputeTotal           = "niche_score_recompute_total"
	MetricScoreRecomputeErrors          = "niche_score_recompute_errors_total"
	MetricScoreRecomputeDuration        = "niche_score_recompute_duration_seconds"
	MetricScoreLastRecomputeTimestamp   = "niche_score_last_recompute_timestamp"
	MetricScoreLastRecomputeViewerCount = "niche_score_last_recompute_viewer_count"
)

// Metrics contains Prometheus metrics for niche score recomputation.
// All operations are thread-safe.
type Metrics struct {
	recomputeTotal           prometheus.Counter
	recomputeErrors          prometheus.Counter
	recomputeDuration        prometheus.Histogram
	lastRecomputeTimestamp   prometheus.Gauge
	lastRecomputeViewerCount prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		recomputeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricScoreRecomputeTotal,
			Help: "Total number of niche affinity score recomputation runs",
		}),
		recomputeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricScoreRecomputeErrors,
			Help: "Total number of niche affinity score recomputation errors",
		}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricScoreRecomputeDuration,
			Help:    "Histogram of niche affinity score recomputation duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}),
		lastRecomputeTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricScoreLastRecomputeTimestamp,
			Help: "Unix timestamp of the last niche affinity score recomputation",
		}),
		lastRecomputeViewerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricScoreLastRecomputeViewerCount,
			Help: "Number of viewers scored in the last recomputation",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRecomputeTotal increments the recompute run counter.
func (m *Metrics) IncRecomputeTotal() {
	m.recomputeTotal.Inc()
}

// IncRecomputeErrors increments the recompute error counter.
func (m *Metrics) IncRecomputeErrors() {
	m.recomputeErrors.Inc()
}

// ObserveRecomputeDuration records a recompute duration sample in seconds.
func (m *Metrics) ObserveRecomputeDuration(seconds float64) {
	m.recomputeDuration.Observe(seconds)
}

// SetLastRecompute records the timestamp and viewer count of a completed run.
func (m *Metrics) SetLastRecompute(unixTime float64, viewerCount int) {
	m.lastRecomputeTimestamp.Set(unixTime)
	m.lastRecomputeViewerCount.Set(float64(viewerCount))
}

// Collectors returns all Prometheus collectors for registration and testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.recomputeTotal,
		m.recomputeErrors,
		m.recomputeDuration,
		m.lastRecomputeTimestamp,
		m.lastRecomputeViewerCount,
	}
}
