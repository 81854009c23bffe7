// Package tracing installs the OpenTelemetry tracer provider and offers
// small helpers for application spans.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer name used by application code.
const InstrumentationName = "github.com/uaidecants/storefront"

// Config is read from the environment alongside the service config.
type Config struct {
	Enabled        bool          `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName    string        `env:"OTEL_SERVICE_NAME" envDefault:"checkout-support"`
	ServiceVersion string        `env:"SERVICE_VERSION" envDefault:"0.1.0"`
	Environment    string        `env:"ENVIRONMENT" envDefault:"development"`
	OTLPEndpoint   string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	Insecure       bool          `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRate     float64       `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	ExportTimeout  time.Duration `env:"OTEL_EXPORT_TIMEOUT" envDefault:"10s"`
}

// Sampler honours the caller's sampling decision and samples new traces at
// SampleRate, clamped to [0, 1].
func (c Config) Sampler() sdktrace.Sampler {
	root := sdktrace.TraceIDRatioBased(c.SampleRate)
	if c.SampleRate >= 1 {
		root = sdktrace.AlwaysSample()
	} else if c.SampleRate <= 0 {
		root = sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(root)
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// InitTracer installs W3C trace-context and baggage propagation and, when
// enabled, an OTLP/HTTP exporting tracer provider. Propagation is installed
// even when export is off so inbound trace ids still reach the logs.
func InitTracer(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.Sampler()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if cfg.ExportTimeout > 0 {
		opts = append(opts, otlptracehttp.WithTimeout(cfg.ExportTimeout))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	return exporter, nil
}

// newResource describes this process. A schema URL conflict with the SDK's
// default resource is tolerated; the merged resource is still usable.
func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithHost(),
		resource.WithProcessRuntimeVersion(),
	)
	if err != nil && !errors.Is(err, resource.ErrSchemaURLConflict) {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return res, nil
}

// Start opens an internal span on the application tracer.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// Fail marks span as errored with err. A nil err leaves the span untouched.
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
