package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

// propagator reads and writes the W3C traceparent, tracestate and baggage
// headers. It does not depend on the global otel propagator, so trace
// context passes through beacon even when beacon itself records nothing.
var propagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Propagator returns the propagator used by Extract and Inject.
func Propagator() propagation.TextMapPropagator {
	return propagator
}

// Extract returns ctx with the remote span context found in headers, if any.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return propagator.Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the span context of ctx into headers so the upstream
// application continues the trace.
func Inject(ctx context.Context, headers http.Header) {
	propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}
