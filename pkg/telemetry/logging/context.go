package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type requestFieldsKey struct{}

// requestFields are the per-request identifiers attached to every record
// logged with the request's context. Values are copied on update so a
// context shared with another goroutine never sees a change.
type requestFields struct {
	requestID string
	route     string
	traceID   string
}

func fieldsFrom(ctx context.Context) requestFields {
	f, _ := ctx.Value(requestFieldsKey{}).(requestFields)
	return f
}

func withFields(ctx context.Context, update func(*requestFields)) context.Context {
	f := fieldsFrom(ctx)
	update(&f)
	return context.WithValue(ctx, requestFieldsKey{}, f)
}

// WithRequestID returns ctx carrying the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.requestID = requestID })
}

// GetRequestID returns the request ID carried by ctx, or "".
func GetRequestID(ctx context.Context) string {
	return fieldsFrom(ctx).requestID
}

// WithRoute returns ctx carrying the normalized route of the request.
func WithRoute(ctx context.Context, route string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.route = route })
}

// GetRoute returns the normalized route carried by ctx, or "".
func GetRoute(ctx context.Context) string {
	return fieldsFrom(ctx).route
}

// WithTraceID returns ctx carrying an explicit trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.traceID = traceID })
}

// GetTraceID returns the explicit trace ID of ctx, falling back to the
// trace of the active OpenTelemetry span.
func GetTraceID(ctx context.Context) string {
	if id := fieldsFrom(ctx).traceID; id != "" {
		return id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// contextAttrs returns the non-empty identifiers of ctx as log attributes.
func contextAttrs(ctx context.Context) []slog.Attr {
	f := fieldsFrom(ctx)
	attrs := make([]slog.Attr, 0, 3)
	if f.requestID != "" {
		attrs = append(attrs, slog.String("request_id", f.requestID))
	}
	if f.route != "" {
		attrs = append(attrs, slog.String("route", f.route))
	}
	if id := GetTraceID(ctx); id != "" {
		attrs = append(attrs, slog.String("trace_id", id))
	}
	return attrs
}
