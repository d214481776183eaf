// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the lakegate gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// MeteringBuckets defines histogram buckets for metering API round trips,
// ranging from 10ms up to the 5s default per-attempt timeout.
var MeteringBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakegate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lakegate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// InFlightRequests tracks requests currently being served.
	InFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lakegate_requests_in_flight",
			Help: "Requests in flight",
		},
	)

	// AugmentationsTotal counts identity augmentations by outcome
	// (anonymous, augmented, unauthenticated, service_failure).
	AugmentationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakegate_identity_augmentations_total",
			Help: "Identity augmentations",
		},
		[]string{"outcome"},
	)

	// MeteringChecksTotal counts balance checks by final result
	// (disabled, system, allow, deny, error).
	MeteringChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakegate_metering_checks_total",
			Help: "Balance checks",
		},
		[]string{"result"},
	)

	// MeteringAttemptsTotal counts outbound metering API calls by decision.
	MeteringAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakegate_metering_attempts_total",
			Help: "Metering API attempts",
		},
		[]string{"decision"},
	)

	// MeteringLatency records the latency of single metering API attempts.
	MeteringLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lakegate_metering_attempt_latency_seconds",
			Help:    "Metering API attempt latency",
			Buckets: MeteringBuckets,
		},
	)

	// MeteringBackoffSeconds accumulates time spent waiting between retries.
	MeteringBackoffSeconds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lakegate_metering_backoff_seconds_total",
			Help: "Time spent in metering retry backoff",
		},
	)

	// WorkersBusy tracks occupied slots per worker pool.
	WorkersBusy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lakegate_workers_busy",
			Help: "Busy worker slots",
		},
		[]string{"pool"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		InFlightRequests,
		AugmentationsTotal,
		MeteringChecksTotal,
		MeteringAttemptsTotal,
		MeteringLatency,
		MeteringBackoffSeconds,
		WorkersBusy,
	)
}
