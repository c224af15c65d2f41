// Package tracing wires the OpenTelemetry SDK to an OTLP/HTTP collector.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
)

// ServiceName es el nombre del servicio en las trazas.
const ServiceName = "agrisim"

const shutdownTimeout = 5 * time.Second

// InitTracer instala un TracerProvider global que exporta a endpoint
// (host:port). Sin endpoint no hace nada: los spans del engine quedan en el
// provider no-op de otel. The returned func flushes and shuts down.
func InitTracer(endpoint string, insecure bool) (func(), error) {
	if endpoint == "" {
		return func() {}, nil
	}

	ctx := context.Background()
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return func() {}, fmt.Errorf("tracing.InitTracer: exporter: %w", err)
	}

	tp := newProvider(exporter)
	otel.SetTracerProvider(tp)
	slog.Info("tracing enabled", "endpoint", endpoint)

	return func() {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Warn("tracer shutdown failed", "err", err)
		}
	}, nil
}

func newProvider(exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
		)),
	)
}
