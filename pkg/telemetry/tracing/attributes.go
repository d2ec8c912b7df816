package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on request spans in addition to the semantic
// convention ones.
const (
	AttrRoute        = "beacon.route"
	AttrRequestID    = "beacon.request_id"
	AttrErrorType    = "beacon.error_type"
	AttrErrorMessage = "beacon.error_message"
)

// SetRequestAttributes sets the method, route and request ID of a server span.
func SetRequestAttributes(span trace.Span, method, route, requestID string) {
	attrs := []attribute.KeyValue{
		semconv.HTTPMethod(method),
		semconv.HTTPRoute(route),
		attribute.String(AttrRoute, route),
	}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	span.SetAttributes(attrs...)
}

// SetResponseAttributes records the status code and, for server errors,
// marks the span as failed. Client errors leave the status unset as the
// HTTP semantic conventions require for server spans.
func SetResponseAttributes(span trace.Span, statusCode int, errorType, errorMessage string) {
	span.SetAttributes(semconv.HTTPStatusCode(statusCode))
	if errorType != "" {
		span.SetAttributes(
			attribute.String(AttrErrorType, errorType),
			attribute.String(AttrErrorMessage, errorMessage),
		)
	}
	if statusCode >= 500 {
		span.SetStatus(codes.Error, errorType)
	}
}

// TraceID returns the trace ID of the span in ctx, or "" when there is none.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// SetError records err on the span and marks it as failed.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
