package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
)

// Config describes the tracer bootstrap. Spans go to Debug as
// pretty-printed JSON; this deployment has no remote collector.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Debug          io.Writer
}

// Shutdown flushes buffered spans and stops the tracer provider.
type Shutdown func(context.Context) error

// InitTracer installs the global tracer provider. Callers that leave
// tracing disabled simply never call it; otel tracers no-op without a
// provider.
func InitTracer(cfg Config) (Shutdown, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Debug),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stdout exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building service resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
