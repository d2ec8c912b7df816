// Package tracing provides OpenTelemetry tracing for instrumented requests.
//
// When tracing is enabled, spans are batched to an OTLP/gRPC collector.
// When disabled, a noop tracer is used and span creation costs next to
// nothing. W3C trace context is extracted from incoming requests and
// injected into requests forwarded upstream in both cases, so beacon never
// breaks a trace that passes through it.
package tracing
