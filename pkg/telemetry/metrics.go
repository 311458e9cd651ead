package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for fleet operations. The zero
// value and a disabled instance are both safe no-ops, so callers never
// guard metric calls.
type Metrics struct {
	config MetricsConfig

	// Remote API calls
	apiCalls    *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec

	// Retry behaviour
	retries *prometheus.CounterVec

	// Convergence waits
	waitPolls    *prometheus.CounterVec
	waitDuration *prometheus.HistogramVec

	// Secret reconciliation
	secretKeys *prometheus.CounterVec

	// Secret intake endpoint
	webhookRequests *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	namespace := cfg.Namespace
	buckets := cfg.HistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		config:   cfg,
		registry: registry,

		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_calls_total",
				Help:      "Total number of Machines API calls",
			},
			[]string{"operation", "status"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_call_duration_seconds",
				Help:      "Duration of Machines API calls in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of transient-failure retries",
			},
			[]string{"operation"},
		),
		waitPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "convergence_polls_total",
				Help:      "Total number of convergence polls",
			},
			[]string{"operation"},
		),
		waitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "convergence_wait_seconds",
				Help:      "Time spent waiting for resource convergence",
				Buckets:   append([]float64{}, buckets...),
			},
			[]string{"operation", "outcome"},
		),
		secretKeys: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "secret_key_operations_total",
				Help:      "Total number of per-key secret operations",
			},
			[]string{"action", "outcome"},
		),
		webhookRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_requests_total",
				Help:      "Total number of secret intake requests",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.apiCalls, m.apiDuration, m.retries,
		m.waitPolls, m.waitDuration, m.secretKeys, m.webhookRequests,
	)
	return m
}

// enabled reports whether metrics are being collected.
func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// ObserveAPICall records one façade-level operation outcome.
func (m *Metrics) ObserveAPICall(operation, status string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.apiCalls.WithLabelValues(operation, status).Inc()
	m.apiDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveRetry records one retry of a transient failure.
func (m *Metrics) ObserveRetry(operation string) {
	if !m.enabled() {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}

// ObservePoll records one convergence poll.
func (m *Metrics) ObservePoll(operation string) {
	if !m.enabled() {
		return
	}
	m.waitPolls.WithLabelValues(operation).Inc()
}

// ObserveWait records a completed convergence wait.
func (m *Metrics) ObserveWait(operation, outcome string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.waitDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
}

// ObserveSecretKey records the outcome of one per-key secret operation.
func (m *Metrics) ObserveSecretKey(action string, err error) {
	if !m.enabled() {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.secretKeys.WithLabelValues(action, outcome).Inc()
}

// ObserveWebhookRequest records one secret intake request by status.
func (m *Metrics) ObserveWebhookRequest(status string) {
	if !m.enabled() {
		return
	}
	m.webhookRequests.WithLabelValues(status).Inc()
}

// Handler returns the HTTP handler exposing the metrics, or nil when
// metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
