package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CompetitionMetrics records service operations and the work they produce.
type CompetitionMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)

	RecordAssignmentsGenerated(ctx context.Context, generatorID string, count int)
	RecordGroupsCreated(ctx context.Context, roundCode string, count int)
	RecordReports(ctx context.Context, reportType string, count int)
}

// PrometheusMetrics implements CompetitionMetrics with Prometheus collectors.
type PrometheusMetrics struct {
	attempts    *prometheus.CounterVec
	successes   *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	assignments *prometheus.CounterVec
	groups      *prometheus.CounterVec
	reports     *prometheus.CounterVec
}

// NewPrometheusMetrics registers the collectors under compstaff_<subsystem>_*.
func NewPrometheusMetrics(reg prometheus.Registerer, subsystem string) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compstaff",
			Subsystem: subsystem,
			Name:      "operation_attempts_total",
			Help:      "Operations started.",
		}, []string{"operation", "service"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compstaff",
			Subsystem: subsystem,
			Name:      "operation_success_total",
			Help:      "Operations that completed without an infrastructure error.",
		}, []string{"operation", "service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compstaff",
			Subsystem: subsystem,
			Name:      "operation_failures_total",
			Help:      "Operations that returned an error or panicked.",
		}, []string{"operation", "service"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "compstaff",
			Subsystem: subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compstaff",
			Subsystem: subsystem,
			Name:      "assignments_generated_total",
			Help:      "Assignments produced, by generator.",
		}, []string{"generator"}),
		groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compstaff",
			Subsystem: subsystem,
			Name:      "groups_created_total",
			Help:      "Group activities added to the schedule, by round.",
		}, []string{"round"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compstaff",
			Subsystem: subsystem,
			Name:      "reports_total",
			Help:      "Report entries emitted by import and validation, by type.",
		}, []string{"type"}),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.successes, m.failures, m.duration, m.assignments, m.groups, m.reports} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
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
	m.duration.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordAssignmentsGenerated(_ context.Context, generatorID string, count int) {
	m.assignments.WithLabelValues(generatorID).Add(float64(count))
}

func (m *PrometheusMetrics) RecordGroupsCreated(_ context.Context, roundCode string, count int) {
	m.groups.WithLabelValues(roundCode).Add(float64(count))
}

func (m *PrometheusMetrics) RecordReports(_ context.Context, reportType string, count int) {
	m.reports.WithLabelValues(reportType).Add(float64(count))
}

type noopMetrics struct{}

// NewNoopMetrics returns a CompetitionMetrics that records nothing.
func NewNoopMetrics() CompetitionMetrics {
	return noopMetrics{}
}

func (noopMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (noopMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (noopMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (noopMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (noopMetrics) RecordAssignmentsGenerated(context.Context, string, int)                {}
func (noopMetrics) RecordGroupsCreated(context.Context, string, int)                       {}
func (noopMetrics) RecordReports(context.Context, string, int)                             {}

var (
	_ CompetitionMetrics = (*PrometheusMetrics)(nil)
	_ CompetitionMetrics = noopMetrics{}
)
