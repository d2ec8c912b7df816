// Package instrument observes the lifecycle of every inbound HTTP request
// and records it into the HTTP metric families.
//
// The package is organised leaves first:
//
//   - NormalizeRoute and friends map raw request paths to low-cardinality
//     route labels.
//   - ClassifyError derives an error kind and message from a response body.
//   - Instrumenter is the middleware that ties both to a metrics.HTTPMetrics
//     and optional tracing and logging.
//
// # Basic Usage
//
//	registry := metrics.NewRegistry()
//	httpMetrics := metrics.MustNewHTTPMetrics(&cfg.Telemetry.Metrics, registry)
//
//	inst, err := instrument.New(instrument.Options{
//	    Metrics:     httpMetrics,
//	    ExemptPaths: cfg.Instrumentation.ExemptPaths,
//	})
//	if err != nil {
//	    return err
//	}
//	handler = inst.Middleware(handler)
//
// # Lifecycle
//
// Each request moves from started to in progress to completed. Completion
// happens exactly once, whether the handler returns, panics, or the client
// goes away first. Nothing the instrumenter does can fail the request: every
// error raised while measuring or recording is logged and dropped.
package instrument
