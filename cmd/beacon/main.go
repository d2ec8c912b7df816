// Beacon is an HTTP instrumentation sidecar for storefront services.
//
// It sits in front of an application backend and, for every request:
//   - normalizes the route (REST paths and GraphQL operations)
//   - records request counts, latency, sizes and in-flight requests
//   - classifies error responses by kind and message
//   - forwards the request upstream with request ID and trace context
//
// It also serves the Prometheus exposition and the health endpoints.
//
// Usage:
//
//	# Start the sidecar with the default configuration file
//	beacon run
//
//	# Start with a custom configuration file and upstream
//	beacon run --config /etc/beacon/beacon.yaml --upstream http://127.0.0.1:3000
//
//	# Validate a configuration file
//	beacon validate --config beacon.yaml
//
//	# Print the effective configuration, including environment overrides
//	beacon config --output yaml
//
//	# Show version information
//	beacon version
package main

func main() {
	Execute()
}
