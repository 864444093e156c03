// Package otelsetup wires the process-wide OpenTelemetry TracerProvider
// that searchadapter.NewFactory uses to emit one span per MCTS search
// (spec.md §6.5, SPEC_FULL.md domain-stack wiring table). Disabled by
// default — spec.md's Non-goals exclude an observability backend, but the
// tracer plumbing itself is ambient infrastructure the teacher's stack
// always carries, so it is built and simply left off in production unless
// an operator points it at a collector.
//
// Grounded on ManuGH-xg2g's internal/telemetry/tracer.go (Config/Provider
// shape, exporter-type switch, noop fallback) and kadirpekel-hector's
// pkg/observability/tracer.go (same otlptracegrpc exporter choice,
// confirming this is the pack's idiom rather than one repo's one-off).
package otelsetup

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls whether and where spans are shipped.
type Config struct {
	// Enabled turns on a real batching exporter. When false, Tracer calls
	// are cheap no-ops and nothing is sent anywhere.
	Enabled bool

	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP/gRPC collector address, e.g. "localhost:4317".
	Endpoint string

	// SamplingRate is 0.0-1.0; values outside that range saturate to
	// NeverSample/AlwaysSample.
	SamplingRate float64
}

// Provider owns the process-wide TracerProvider and its shutdown.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// New builds and installs the global TracerProvider. With cfg.Enabled
// false it installs a noop provider and returns a Provider whose Shutdown
// is a no-op — callers never need to branch on whether tracing is on.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otelsetup: build resource: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otelsetup: build otlp exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp}, nil
}

// Tracer returns a named tracer off the installed provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Shutdown flushes and stops the exporter. Safe to call on a disabled
// Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.tp.Shutdown(shutdownCtx)
}
