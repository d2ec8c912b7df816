// Package metrics provides the process-wide metrics registry and the HTTP
// metric families recorded for every instrumented request.
//
// # Registry
//
// A Registry stores counter, gauge and histogram families. Each family has a
// fixed, ordered label schema; recording with the wrong number of label
// values returns ErrLabelCardinality instead of panicking. Re-registering a
// name with the same kind and schema returns the existing handle, while a
// conflicting registration fails with ErrKindMismatch or ErrSchemaMismatch.
//
//	reg := metrics.NewRegistry()
//	hits := reg.MustNewCounter("cache_hits_total", "Cache hits", []string{"cache"})
//	_ = hits.Inc("products")
//
// Families are locked independently, and counter and gauge series are
// updated with atomic compare-and-swap, so concurrent recording never loses
// an update and never contends on a global lock.
//
// # Exposition
//
// RenderText produces the Prometheus text format with families in
// registration order and series in first-seen order, which keeps output
// diffable between scrapes. Exporter appends Go runtime and process metrics
// from client_golang and can serve OpenMetrics via promhttp.
//
// # HTTP Metrics
//
// HTTPMetrics registers:
//
//   - http_requests_total{method,route,status_code}
//   - http_request_duration_ms{method,route,status_code}
//   - http_response_size_bytes{method,route,status_code}
//   - http_request_size_bytes{method,route}
//   - http_errors_total{method,route,status_code,error_type}
//   - http_error_details{method,route,status_code,error_message}
//   - db_query_duration_ms{operation,model}
//   - db_query_errors_total{operation,model,error_type}
//   - active_connections_total
//   - requests_in_progress{method,route}
package metrics
