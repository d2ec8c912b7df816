package tracing

import (
	"context"
	"errors"
	"fmt"

	"storefront/beacon/pkg/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials/insecure"
)

// instrumentationName identifies spans created by beacon.
const instrumentationName = "storefront/beacon"

// Tracer creates the server spans of instrumented requests. A disabled
// Tracer hands out noop spans.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// New creates a Tracer from configuration. When tracing is enabled, spans
// are batched to an OTLP/gRPC collector and the tracer provider is
// installed globally.
//
// The tracer must be shut down when no longer needed:
//
//	defer tracer.Shutdown(context.Background())
func New(cfg *config.TracingConfig, version string) (*Tracer, error) {
	if cfg == nil {
		return nil, errors.New("tracing config is nil")
	}
	if !cfg.Enabled {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}, nil
	}

	exporter, err := newOTLPExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	t, err := NewWithExporter(cfg, version, sdktrace.WithBatcher(exporter))
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(t.provider)
	return t, nil
}

// NewWithExporter creates an enabled Tracer that hands finished spans to
// the given span processor option, e.g. sdktrace.WithSyncer for tests. The
// global tracer provider is left untouched.
func NewWithExporter(cfg *config.TracingConfig, version string, processor sdktrace.TracerProviderOption) (*Tracer, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
	)

	provider := sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRatio)),
	)
	return &Tracer{
		tracer:   provider.Tracer(instrumentationName),
		provider: provider,
	}, nil
}

// newSampler honours the parent's decision and samples root spans by ratio.
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// newOTLPExporter creates an OTLP gRPC exporter. The connection is made
// lazily, so a collector that is not up yet does not prevent startup.
func newOTLPExporter(cfg *config.TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

// Start creates a new span with the given name and options.
//
//	ctx, span := tracer.Start(ctx, "GET /products/:id")
//	defer span.End()
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// ForceFlush exports all finished spans that are still buffered.
func (t *Tracer) ForceFlush(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.ForceFlush(ctx)
}

// Shutdown flushes any pending spans and stops the exporter.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Enabled returns whether spans are recorded and exported.
func (t *Tracer) Enabled() bool {
	return t.provider != nil
}
