// Package logger builds the service's JSON slog logger and carries
// request-scoped logging state through context.Context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	correlationIDKey ctxKey = iota
	customerIDKey
	loggerKey
)

const redacted = "[REDACTED]"

// sensitiveKeys never reach the log output with their value. Matching is
// case-insensitive on the attribute key.
var sensitiveKeys = map[string]struct{}{
	"authorization": {},
	"token":         {},
	"id_token":      {},
	"password":      {},
	"phone":         {},
	"recipient":     {},
	"street":        {},
}

// New returns a JSON logger for service writing to stdout.
func New(service, level string) *slog.Logger {
	return NewWithWriter(service, level, os.Stdout)
}

// NewWithWriter returns a JSON logger writing to w. Every record carries the
// service name, and values of sensitive keys are replaced before encoding.
// Source locations are added at debug level.
func NewWithWriter(service, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl <= slog.LevelDebug,
		ReplaceAttr: redact,
	})
	return slog.New(h).With(slog.String("service", service))
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

// ParseLevel accepts slog's level names ("debug", "INFO", "warn+2") plus
// "warning". Anything unparseable is info.
func ParseLevel(level string) slog.Level {
	s := strings.TrimSpace(level)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func stringFrom(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// WithCorrelationID stores the request's correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the id stored by WithCorrelationID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, correlationIDKey)
}

// WithCustomerID stores the authenticated customer for log enrichment.
func WithCustomerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, customerIDKey, id)
}

// CustomerIDFromContext returns the id stored by WithCustomerID, or "".
func CustomerIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, customerIDKey)
}

// NewContext stores l as the request-scoped logger.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored by NewContext, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithAttrs returns ctx with its stored logger extended by attrs. A context
// without a stored logger is returned unchanged.
func WithAttrs(ctx context.Context, attrs ...any) context.Context {
	l, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok {
		return ctx
	}
	return NewContext(ctx, l.With(attrs...))
}

// WithContext adds whichever of correlation_id, customer_id, trace_id and
// span_id ctx carries to l.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	var attrs []any
	if id := CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	if id := CustomerIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("customer_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}
