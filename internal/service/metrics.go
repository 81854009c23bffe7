package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider call outcomes.
const (
	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeCacheHit = "cache_hit"
)

var (
	// ProviderRequests counts quote lookups per provider and outcome.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipping_provider_requests_total",
			Help: "Total number of shipping provider quote lookups",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderDuration observes live provider calls, cache hits excluded.
	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipping_provider_request_duration_seconds",
			Help:    "Duration of shipping provider calls in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 4, 8, 16},
		},
		[]string{"provider"},
	)

	// QuotesReturned observes how many options each aggregation produced.
	QuotesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shipping_quotes_returned",
			Help:    "Number of shipping options returned per request",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		},
	)
)
