// Package tracing wires up OpenTelemetry (A3), grounded on the pack's
// own telemetry packages but simplified to a stdout exporter so this
// module needs no collector to run locally.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config controls whether tracing is enabled and how spans are
// identified.
type Config struct {
	Enabled     bool
	ServiceName string
}

// Shutdown releases resources held by an enabled tracer provider. It is
// a no-op when tracing was never enabled.
type Shutdown func(context.Context) error

// Init registers a global TracerProvider per cfg. When cfg.Enabled is
// false, the global no-op tracer is left in place and Init returns a
// no-op Shutdown — every call site in internal/selector, internal/proxy,
// and internal/splitter can unconditionally start spans either way.
func Init(cfg Config) (Shutdown, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("tracing: building exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error { return tp.Shutdown(ctx) }, nil
}
