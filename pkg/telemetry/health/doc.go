// Package health reports whether beacon's dependency is reachable.
//
// # Overview
//
// A Probe performs one bounded round trip against a Pinger (a database or
// cache) and turns the result into a Report. It never returns an error: a
// failing, slow or panicking dependency is reported as unhealthy with the
// failure message.
//
// A Monitor runs the probe on a cron schedule and keeps the latest report,
// which backs the readiness endpoint.
//
// # Endpoints
//
//   - /health: probe report, always 200
//   - /health/ready: latest monitor report, 503 when unhealthy
//   - /health/version: build information
//
// # Usage
//
//	probe := health.NewProbe(db, 5*time.Second, "production", version)
//	monitor, err := health.NewMonitor(probe, "@every 30s", logger)
//	if err != nil {
//	    return err
//	}
//	if err := monitor.Start(ctx); err != nil {
//	    return err
//	}
//
//	router.Get("/health", probe.Handler())
//	router.Get("/health/ready", monitor.ReadinessHandler())
//	router.Get("/health/version", health.VersionHandler(version, commit, buildTime))
//
// # Report Format
//
//	{
//	    "status": "unhealthy",
//	    "timestamp": "2025-11-20T10:30:00Z",
//	    "database": "disconnected",
//	    "uptime": 12.7,
//	    "error": "dial tcp 127.0.0.1:6379: connect: connection refused"
//	}
//
// Environment and version are only included in healthy reports.
package health
