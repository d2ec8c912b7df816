// Package telemetry groups beacon's observability packages.
//
// # Components
//
//   - metrics: the in-process metric registry, the HTTP metric set and the
//     Prometheus exposition
//   - logging: structured logging with request and trace identifiers
//   - tracing: OpenTelemetry spans around instrumented requests
//   - health: dependency probe, scheduled monitor and health endpoints
//
// # Usage
//
//	registry := metrics.NewRegistry()
//	httpMetrics := metrics.MustNewHTTPMetrics(&cfg.Telemetry.Metrics, registry)
//	exporter, _ := metrics.NewExporter(registry, metrics.ExporterOptions{ProcessMetrics: true})
//
//	probe := health.NewProbe(db, cfg.Telemetry.Health.Timeout, "production", version)
//
//	router.Handle("/metrics", exporter.Handler())
//	router.Get("/health", probe.Handler())
//
// This package has no code of its own.
package telemetry
