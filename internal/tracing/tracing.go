// Package tracing configures the OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	otelsemconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects the span exporter.
type Config struct {
	Enabled     bool
	ServiceName string
	// Endpoint is an OTLP gRPC collector address. Empty exports to Writer
	// as pretty-printed JSON.
	Endpoint string
	Writer   io.Writer
}

// Setup installs a global tracer provider and returns its shutdown
// function. A disabled config leaves the no-op provider in place.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "cybersentinel"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			otelsemconv.SchemaURL,
			otelsemconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	var exporter sdktrace.SpanExporter
	if strings.TrimSpace(cfg.Endpoint) == "" {
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.Writer != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
		}
		exporter, err = stdouttrace.New(opts...)
		if err != nil {
			return nil, err
		}
	} else {
		clean := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(clean),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
