// Package tracing wires an OpenTelemetry tracer provider for Maestro. When no
// OTLP endpoint is configured the provider is otel's own no-op implementation,
// so running the server never requires a collector to be reachable.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/maestro-run/maestro/internal/platform/config"
)

// Provider wraps the process-wide tracer provider and its shutdown hook.
type Provider struct {
	tp       *sdktrace.TracerProvider // nil when tracing is disabled
	shutdown func(context.Context) error
}

// Setup installs a global tracer provider per cfg.Tracing. Call Shutdown on
// the returned Provider during graceful shutdown.
func Setup(ctx context.Context, cfg config.TracingConfig) (*Provider, error) {
	if cfg.OTLPEndpoint == "" {
		return &Provider{shutdown: func(context.Context) error { return nil }}, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("creating otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("building otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp, shutdown: tp.Shutdown}, nil
}

// Shutdown flushes and stops the tracer provider, bounded by ctx.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// Tracer returns a named tracer from the global provider (no-op if tracing is
// disabled).
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// shutdownTimeout bounds Provider.Shutdown when the caller does not supply its
// own deadline.
const shutdownTimeout = 5 * time.Second

// ShutdownWithDefaultTimeout is a convenience wrapper for callers that do not
// already have a deadline context handy (e.g. a deferred cleanup in main).
func (p *Provider) ShutdownWithDefaultTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return p.Shutdown(ctx)
}
