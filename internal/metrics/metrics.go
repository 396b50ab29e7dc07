// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "anistream"

// Outcome labels for provider calls.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
)

var (
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Provider adapter calls by operation and outcome.",
	}, []string{"provider", "op", "outcome"})

	ProviderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Latency of provider adapter calls.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
	}, []string{"provider", "op"})

	FallbackHops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fallback_hops_total",
		Help:      "Attempts made past the first provider of a fallback chain.",
	}, []string{"op"})

	ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proxy_requests_total",
		Help:      "Proxied upstream requests by payload kind and status.",
	}, []string{"kind", "status"})

	ProxyBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proxy_bytes_total",
		Help:      "Bytes written to proxy clients.",
	}, []string{"kind"})

	TitleLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "title_lookups_total",
		Help:      "Catalog id to title lookups by source and result.",
	}, []string{"source", "result"})
)

// ObserveProvider records one adapter call.
func ObserveProvider(provider, op, outcome string, elapsed time.Duration) {
	ProviderRequests.WithLabelValues(provider, op, outcome).Inc()
	ProviderDuration.WithLabelValues(provider, op).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
