package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the script service.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ExecutionErrors    *prometheus.CounterVec
	ActiveExecutions   prometheus.Gauge
	RequestsInFlight   prometheus.Gauge
	AuditDroppedTotal  prometheus.Counter
	AuditForwardErrors prometheus.Counter
	CodeSizeBytes      prometheus.Histogram
	OutputSizeBytes    prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics using a dedicated
// registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dataset_service",
				Name:      "requests_total",
				Help:      "Total number of service calls by method and terminal status.",
			},
			[]string{"method", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dataset_service",
				Name:      "request_duration_seconds",
				Help:      "Duration of service calls in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),

		ExecutionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dataset_service",
				Name:      "execution_errors_total",
				Help:      "Total execution failures by type.",
			},
			[]string{"type"},
		),

		ActiveExecutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dataset_service",
				Name:      "active_executions",
				Help:      "Number of scripts currently executing in the sandbox.",
			},
		),

		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dataset_service",
				Subsystem: "api",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),

		AuditDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dataset_service",
				Name:      "audit_events_dropped_total",
				Help:      "Audit events dropped because the forward buffer was full.",
			},
		),

		AuditForwardErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dataset_service",
				Name:      "audit_forward_errors_total",
				Help:      "Audit events that failed delivery to a remote sink.",
			},
		),

		CodeSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "dataset_service",
				Name:      "code_size_bytes",
				Help:      "Size of submitted scripts in bytes.",
				Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
			},
		),

		OutputSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "dataset_service",
				Name:      "output_size_bytes",
				Help:      "Size of assembled execution output in bytes.",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
			},
		),
	}

	// Register all collectors
	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ExecutionErrors,
		m.ActiveExecutions,
		m.RequestsInFlight,
		m.AuditDroppedTotal,
		m.AuditForwardErrors,
		m.CodeSizeBytes,
		m.OutputSizeBytes,
	)

	return m
}

// RecordRequest records metrics for a finished service call.
func (m *Metrics) RecordRequest(method, status string, durationSec float64) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(durationSec)
}

// RecordError records an execution failure by type (syntax, runtime).
func (m *Metrics) RecordError(errType string) {
	m.ExecutionErrors.WithLabelValues(errType).Inc()
}

// RecordAuditDrop records a dropped audit event.
func (m *Metrics) RecordAuditDrop() {
	m.AuditDroppedTotal.Inc()
}

// RecordAuditFailure records a failed audit delivery.
func (m *Metrics) RecordAuditFailure() {
	m.AuditForwardErrors.Inc()
}
