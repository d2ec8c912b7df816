// Package proxy forwards requests from the beacon sidecar to the
// application it instruments.
//
// Beacon listens in front of the application. Telemetry routes (metrics and
// health) are served locally and every other request is instrumented and
// then handed to an Upstream, a reverse proxy towards the configured
// upstream URL:
//
//	client -> beacon (recovery, request ID, logging, instrumentation) -> upstream
//
// # Upstream
//
// The upstream handler preserves the client's Host header, sets the
// X-Forwarded-* headers, forwards X-Request-ID and injects the W3C trace
// context so the application continues the request's trace. Streaming
// responses are flushed according to proxy.flush_interval.
//
// Transport failures are answered with a JSON error in the same
// statusCode/error/message shape the error classifier understands:
//
//	{"statusCode": 502, "error": "Bad Gateway", "message": "The upstream application is unavailable."}
//
// Timeouts map to 504. When the client has already gone away no response is
// written and the instrumentation records the request as aborted.
//
// # Without an upstream
//
// If proxy.upstream_url is empty, every non-telemetry request receives a
// JSON 404. This is useful when beacon only exports metrics.
//
// # Subpackages
//
//   - middleware: request ID, access logging and panic recovery
//   - types: JSON error responses
package proxy
