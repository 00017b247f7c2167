// Package tracing wires the session pipeline's three mutating operations
// (ingest_chunk, flush, snapshot) to OpenTelemetry spans, the same ambient
// observability role metrics and structured logging play elsewhere in this
// service. A package-level tracer handle is always assigned, real and
// OTLP-backed when enabled, no-op otherwise, so StartSpan never needs a nil
// check at call sites.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer oteltrace.Tracer = otel.Tracer("stream2graph")

// Config holds tracing configuration.
type Config struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Initialize sets up OTLP tracing when enabled. With Enabled false (the
// default), it leaves the package-level tracer as a plain otel.Tracer backed
// by the global no-op provider, so StartSpan calls in the session handlers
// are always safe but produce no exported spans.
func Initialize(cfg Config, logger *zap.Logger) error {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "stream2graph"
	}
	tracer = otel.Tracer(cfg.ServiceName)

	if !cfg.Enabled {
		logger.Info("tracing disabled")
		return nil
	}

	if cfg.OTLPEndpoint == "" {
		cfg.OTLPEndpoint = "localhost:4317"
	}

	exporter, err := otlptracegrpc.New(
		context.Background(),
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return fmt.Errorf("create tracing resource: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer(cfg.ServiceName)

	logger.Info("tracing initialized", zap.String("endpoint", cfg.OTLPEndpoint))
	return nil
}

// StartSpan starts a span named for the pipeline operation it wraps
// (ingest_chunk, flush, snapshot) and tags it with the session id.
func StartSpan(ctx context.Context, spanName, sessionID string) (context.Context, oteltrace.Span) {
	ctx, span := tracer.Start(ctx, spanName)
	span.SetAttributes(attribute.String("stream2graph.session_id", sessionID))
	return ctx, span
}
