package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	apperrors "github.com/uaidecants/storefront/pkg/errors"
)

// CircuitBreakerConfig holds configuration for one breaker.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in metrics and logs.
	Name string

	// MaxRequests allowed through while half-open. 0 means 1.
	MaxRequests uint32

	// Interval after which closed-state counts are cleared. 0 never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// FailureRatio of failed to total requests that trips the breaker.
	FailureRatio float64

	// MinRequests before FailureRatio is evaluated.
	MinRequests uint32
}

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "storefront",
		Subsystem: "upstream",
		Name:      "breaker_state",
		Help:      "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open).",
	}, []string{"breaker"})

	breakerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "upstream",
		Name:      "breaker_rejections_total",
		Help:      "Calls refused without reaching the upstream because the breaker was open.",
	}, []string{"breaker"})
)

// ErrCircuitOpen matches every *OpenError.
var ErrCircuitOpen = gobreaker.ErrOpenState

// OpenError is returned when the breaker refuses a call. It matches both
// ErrCircuitOpen and apperrors.ErrServiceUnavail.
type OpenError struct {
	Breaker string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s: circuit open", e.Breaker)
}

func (e *OpenError) Unwrap() []error {
	return []error{ErrCircuitOpen, apperrors.ErrServiceUnavail}
}

// countsAsFailure reports upstream answers that should trip the breaker.
// Other 4xx mean the request itself was wrong and say nothing about the
// upstream's health.
func countsAsFailure(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

// CircuitBreakerClient wraps a Client with circuit breaker protection.
type CircuitBreakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	name    string
}

// NewCircuitBreakerClient wraps client with a breaker configured by cfg.
// Caller cancellations do not count as upstream failures.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	gauge := breakerState.WithLabelValues(cfg.Name)
	gauge.Set(0)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= cfg.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			gauge.Set(float64(to))
		},
	}

	return &CircuitBreakerClient{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		name:    cfg.Name,
	}
}

// Do executes req through the breaker. 5xx and 429 answers are consumed and
// returned as *StatusError so they count as failures; other responses are
// handed back untouched.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if countsAsFailure(resp.StatusCode) {
			return nil, ParseResponseError(resp, c.name)
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		breakerRejections.WithLabelValues(c.name).Inc()
		return nil, &OpenError{Breaker: c.name}
	}
	return resp, err
}

// Name returns the breaker name.
func (c *CircuitBreakerClient) Name() string {
	return c.name
}

// State returns the current breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
