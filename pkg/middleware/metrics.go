package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const unmatchedRoute = "unknown"

var (
	requestLabels = []string{"service", "method", "route", "status"}

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, by route pattern and status.",
	}, requestLabels)

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency. Quote requests wait on carriers, hence the long tail.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 4, 8, 15},
	}, requestLabels)

	httpRequestsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "storefront",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Requests currently being served.",
	}, []string{"service"})
)

// PrometheusMetrics records request count, latency and in-flight requests.
// Routes are labelled by chi pattern so IDs in paths stay out of the label
// set.
func PrometheusMetrics(serviceName string) func(next http.Handler) http.Handler {
	inFlight := httpRequestsInFlight.WithLabelValues(serviceName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			inFlight.Inc()
			defer inFlight.Dec()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			labels := prometheus.Labels{
				"service": serviceName,
				"method":  r.Method,
				"route":   routePattern(r, unmatchedRoute),
				"status":  strconv.Itoa(rec.status),
			}
			httpRequestsTotal.With(labels).Inc()
			httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
		})
	}
}
