package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"storefront/beacon/pkg/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// TestNew tests the creation of a new tracer
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
		enabled bool
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name: "disabled tracing",
			config: &config.TracingConfig{
				Enabled:     false,
				ServiceName: "beacon",
			},
		},
		{
			name: "enabled with lazy connection",
			config: &config.TracingConfig{
				Enabled:     true,
				Endpoint:    "localhost:4317",
				ServiceName: "beacon",
				SampleRatio: 0.5,
				Insecure:    true,
				Timeout:     time.Second,
			},
			enabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config, "test")
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			defer tracer.Shutdown(context.Background())

			if tracer.Enabled() != tt.enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.enabled)
			}

			_, span := tracer.Start(context.Background(), "op")
			span.End()
		})
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "ParentBased{root:AlwaysOnSampler"},
		{0, "ParentBased{root:AlwaysOffSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		got := newSampler(tt.ratio).Description()
		if len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
			t.Errorf("newSampler(%v) = %q, want prefix %q", tt.ratio, got, tt.want)
		}
	}
}

func TestDisabledTracer_NoTraceID(t *testing.T) {
	tracer, err := New(&config.TracingConfig{}, "test")
	if err != nil {
		t.Fatal(err)
	}
	ctx, span := tracer.Start(context.Background(), "op")
	defer span.End()

	if id := TraceID(ctx); id != "" {
		t.Errorf("TraceID() = %q, want empty for noop tracer", id)
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}

func TestAttributesAndErrors(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "GET /products/:id")
	SetRequestAttributes(span, "GET", "/products/:id", "req-1")
	SetResponseAttributes(span, 503, "HTTP_503", "upstream down")
	SetError(span, errors.New("boom"))
	SetError(span, nil)
	span.End()

	if TraceID(ctx) == "" {
		t.Error("expected trace ID for a recording span")
	}

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	got := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		got[kv.Key] = kv.Value
	}
	if got[AttrRoute].AsString() != "/products/:id" {
		t.Errorf("route attribute = %v", got[AttrRoute])
	}
	if got[AttrRequestID].AsString() != "req-1" {
		t.Errorf("request id attribute = %v", got[AttrRequestID])
	}
	if got["http.status_code"].AsInt64() != 503 {
		t.Errorf("status attribute = %v", got["http.status_code"])
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", ended[0].Status().Code)
	}
}

func TestSetResponseAttributes_ClientErrorKeepsStatusUnset(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	SetResponseAttributes(span, 404, "NOT_FOUND", "Not found")
	span.End()

	if code := sr.Ended()[0].Status().Code; code != codes.Unset {
		t.Errorf("status = %v, want Unset", code)
	}
}

func TestExtractInject(t *testing.T) {
	in := http.Header{}
	in.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	ctx := Extract(context.Background(), in)
	sc := trace.SpanContextFromContext(ctx)
	if sc.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("extracted trace ID = %s", sc.TraceID())
	}

	out := http.Header{}
	Inject(ctx, out)
	if out.Get("traceparent") != in.Get("traceparent") {
		t.Errorf("injected traceparent = %q", out.Get("traceparent"))
	}
}

// TestNewWithExporter tests that sampled spans reach the exporter with the
// service resource.
func TestNewWithExporter(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	cfg := &config.TracingConfig{Enabled: true, ServiceName: "beacon-test", SampleRatio: 1}

	tracer, err := NewWithExporter(cfg, "1.2.3", sdktrace.WithSyncer(exporter))
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	if !tracer.Enabled() {
		t.Error("Enabled() = false")
	}

	ctx, span := tracer.Start(context.Background(), "GET /cart")
	if TraceID(ctx) == "" {
		t.Error("TraceID() empty for a sampled span")
	}
	span.End()

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported spans = %d, want 1", len(spans))
	}
	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	if service != "beacon-test" {
		t.Errorf("service.name = %q, want beacon-test", service)
	}
}
