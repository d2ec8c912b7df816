// Package server runs the beacon sidecar's HTTP server.
//
// The server owns the telemetry routes and forwards everything else to the
// application:
//
//	/metrics          Prometheus text exposition (path configurable)
//	/health           liveness with dependency state, always 200
//	/health/ready     readiness, 503 while the dependency is unhealthy
//	/health/version   build information
//	/*                instrumented, then proxied upstream
//
// # Middleware Chain
//
// Outermost first: panic recovery, request ID, access logging, then request
// instrumentation on application routes only.
//
// # Connections
//
// http.Server.ConnState keeps active_connections_total equal to the number
// of open, non-hijacked client connections.
//
// # Shutdown
//
// Serve returns once its context is cancelled and in-flight requests have
// drained, bounded by server.shutdown_timeout.
package server
