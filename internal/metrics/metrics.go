package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MLRequests counts proxied recommendation calls by outcome
	// (ok, unreachable, timeout, invalid_result, upstream_status, breaker_open).
	MLRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "h2",
		Subsystem: "mlproxy",
		Name:      "upstream_requests_total",
		Help:      "Calls to the external ML service by outcome.",
	}, []string{"outcome"})

	MLRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "h2",
		Subsystem: "mlproxy",
		Name:      "upstream_retries_total",
		Help:      "Connection-level retries against the external ML service.",
	})

	MLLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "h2",
		Subsystem: "mlproxy",
		Name:      "upstream_duration_seconds",
		Help:      "Latency of a full recommendation call, retries included.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
	})

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "h2",
		Subsystem: "mlproxy",
		Name:      "breaker_state",
		Help:      "Circuit breaker state for the ML service.",
	})

	ValidationRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "h2",
		Subsystem: "mlproxy",
		Name:      "validation_rejects_total",
		Help:      "Predict requests rejected before reaching the ML service.",
	}, []string{"reason"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "h2",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests refused by the rate limiter.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
