package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "restaurant_billing"

// Metrics exposes Prometheus collectors for HTTP traffic and billing jobs.
type Metrics struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errors           *prometheus.CounterVec
	paymentsPaid     *prometheus.CounterVec
	paymentsOverdue  prometheus.Counter
	paymentsCreated  *prometheus.CounterVec
	clientTransition *prometheus.CounterVec
	jobRuns          *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP error responses by error code.",
		}, []string{"path", "method", "code"}),
		paymentsPaid: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_paid_total",
			Help:      "Payments marked paid, by payment method.",
		}, []string{"method"}),
		paymentsOverdue: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_overdue_total",
			Help:      "Payments moved from PENDING to OVERDUE by the sweep.",
		}),
		paymentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_created_total",
			Help:      "Payments created, by type.",
		}, []string{"type"}),
		clientTransition: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_lifecycle_total",
			Help:      "Client lifecycle operations, by action.",
		}, []string{"action"}),
		jobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_job_runs_total",
			Help:      "Scheduled billing job executions, by job and outcome.",
		}, []string{"job", "outcome"}),
	}
}

// Registry returns the registry to expose on /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest observes a finished HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// PaymentPaid counts a settled payment.
func (m *Metrics) PaymentPaid(method string) {
	if m == nil {
		return
	}
	m.paymentsPaid.WithLabelValues(method).Inc()
}

// PaymentsOverdue counts payments moved to OVERDUE.
func (m *Metrics) PaymentsOverdue(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.paymentsOverdue.Add(float64(count))
}

// PaymentsCreated counts new payments of a type.
func (m *Metrics) PaymentsCreated(paymentType string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.paymentsCreated.WithLabelValues(paymentType).Add(float64(count))
}

// ClientLifecycle counts a client lifecycle action.
func (m *Metrics) ClientLifecycle(action string) {
	if m == nil {
		return
	}
	m.clientTransition.WithLabelValues(action).Inc()
}

// JobRun counts a scheduler job execution.
func (m *Metrics) JobRun(job, outcome string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}
