package database

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/uaidecants/storefront/pkg/database"

var operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "storefront",
	Subsystem: "store",
	Name:      "operation_duration_seconds",
	Help:      "Latency of storage operations by backend, operation and outcome.",
	Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
}, []string{"system", "operation", "outcome"})

type slowQueryConfig struct {
	threshold time.Duration
	logger    *slog.Logger
}

var slowQueries atomic.Pointer[slowQueryConfig]

// SetSlowQueryLogging warns about operations slower than threshold. A zero
// threshold or nil logger turns it off.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	if threshold <= 0 || logger == nil {
		slowQueries.Store(nil)
		return
	}
	slowQueries.Store(&slowQueryConfig{threshold: threshold, logger: logger})
}

// TraceQuery starts a client span for one storage operation and returns a
// func to call with the operation's error when it completes. system is the
// db.system value ("postgresql", "firestore", "redis"). Completion also
// feeds the latency histogram and the slow query log.
func TraceQuery(ctx context.Context, system, operation, statement string) (context.Context, func(error)) {
	started := time.Now()
	attrs := []attribute.KeyValue{
		attribute.String("db.system", system),
		attribute.String("db.operation", operation),
	}
	if statement != "" {
		attrs = append(attrs, attribute.String("db.statement", statement))
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	return ctx, func(err error) {
		elapsed := time.Since(started)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		operationDuration.WithLabelValues(system, operation, outcome).Observe(elapsed.Seconds())

		cfg := slowQueries.Load()
		if cfg == nil || elapsed < cfg.threshold {
			return
		}
		cfg.logger.WarnContext(ctx, "slow query detected",
			slog.String("db_system", system),
			slog.String("operation", operation),
			slog.Duration("duration", elapsed),
			slog.String("outcome", outcome),
		)
	}
}
