package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsMetrics records service, handler and queue level metrics of the stats module.
type StatsMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)

	// RecordEntityFailure counts a failed write of one aggregate entity during apply or reverse.
	RecordEntityFailure(ctx context.Context, entity string)
	// RecordResultSkipped counts results that did not touch aggregates, by reason.
	RecordResultSkipped(ctx context.Context, reason string)
	RecordRecalculation(ctx context.Context, gamesProcessed int, duration time.Duration)
}

// PrometheusMetrics implements StatsMetrics with client_golang collectors.
type PrometheusMetrics struct {
	attempts        *prometheus.CounterVec
	successes       *prometheus.CounterVec
	failures        *prometheus.CounterVec
	durations       *prometheus.HistogramVec
	entityFailures  *prometheus.CounterVec
	skipped         *prometheus.CounterVec
	recalcGames     prometheus.Histogram
	recalcDurations prometheus.Histogram
}

var _ StatsMetrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the stats collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempts_total",
			Help:      "Operations started.",
		}, []string{"operation", "service"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_success_total",
			Help:      "Operations that completed without error.",
		}, []string{"operation", "service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Operations that returned an error.",
		}, []string{"operation", "service"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		entityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_write_failures_total",
			Help:      "Aggregate entity writes abandoned after a store failure.",
		}, []string{"entity"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_skipped_total",
			Help:      "Results that did not change aggregates.",
		}, []string{"reason"}),
		recalcGames: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recalculation_games",
			Help:      "Results replayed per recalculation.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		recalcDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recalculation_duration_seconds",
			Help:      "Recalculation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	reg.MustRegister(
		m.attempts, m.successes, m.failures, m.durations,
		m.entityFailures, m.skipped, m.recalcGames, m.recalcDurations,
	)
	return m
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.durations.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordEntityFailure(_ context.Context, entity string) {
	m.entityFailures.WithLabelValues(entity).Inc()
}

func (m *PrometheusMetrics) RecordResultSkipped(_ context.Context, reason string) {
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) RecordRecalculation(_ context.Context, gamesProcessed int, duration time.Duration) {
	m.recalcGames.Observe(float64(gamesProcessed))
	m.recalcDurations.Observe(duration.Seconds())
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

var _ StatsMetrics = NoOpMetrics{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoOpMetrics) RecordEntityFailure(context.Context, string)                            {}
func (NoOpMetrics) RecordResultSkipped(context.Context, string)                            {}
func (NoOpMetrics) RecordRecalculation(context.Context, int, time.Duration)                {}
