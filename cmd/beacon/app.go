package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"storefront/beacon/pkg/cache"
	"storefront/beacon/pkg/config"
	"storefront/beacon/pkg/database"
	"storefront/beacon/pkg/instrument"
	"storefront/beacon/pkg/proxy"
	"storefront/beacon/pkg/server"
	"storefront/beacon/pkg/telemetry/health"
	"storefront/beacon/pkg/telemetry/logging"
	"storefront/beacon/pkg/telemetry/metrics"
	"storefront/beacon/pkg/telemetry/tracing"
)

// app holds every component of a running sidecar.
type app struct {
	cfg    *config.Config
	logger *logging.Logger

	registry     *metrics.Registry
	metrics      *metrics.HTTPMetrics
	exporter     *metrics.Exporter
	tracer       *tracing.Tracer
	db           *database.DB
	cache        *cache.Cache
	probe        *health.Probe
	monitor      *health.Monitor
	instrumenter *instrument.Instrumenter
	server       *server.Server
}

// newApp builds the components described by cfg. On error, anything
// already opened is closed.
func newApp(cfg *config.Config, logger *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.init(); err != nil {
		a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) init() error {
	cfg := a.cfg
	log := a.logger.Slog()

	var err error

	a.registry = metrics.NewRegistry()
	a.metrics, err = metrics.NewHTTPMetrics(&cfg.Telemetry.Metrics, a.registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	a.exporter, err = metrics.NewExporter(a.registry, metrics.ExporterOptions{
		ProcessMetrics: cfg.Telemetry.Metrics.ProcessMetrics,
		OpenMetrics:    cfg.Telemetry.Metrics.OpenMetrics,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	pinger, err := a.openDependency()
	if err != nil {
		return err
	}
	a.probe = health.NewProbe(pinger, cfg.Telemetry.Health.Timeout, cfg.Telemetry.Health.Environment, Version)
	a.monitor, err = health.NewMonitor(a.probe, cfg.Telemetry.Health.ProbeSchedule, log)
	if err != nil {
		return err
	}

	if cfg.Instrumentation.Enabled {
		// A disabled tracer must not be passed as a non-nil interface.
		var spans instrument.SpanStarter
		if a.tracer.Enabled() {
			spans = a.tracer
		}
		a.instrumenter, err = instrument.NewFromConfig(&cfg.Instrumentation, a.metrics, spans, log)
		if err != nil {
			return fmt.Errorf("failed to create instrumentation: %w", err)
		}
	}

	upstream, err := proxy.NewUpstream(&cfg.Proxy, log)
	if err != nil {
		return err
	}

	a.server, err = server.New(server.Options{
		Config:       cfg,
		Metrics:      a.metrics,
		Exporter:     a.exporter,
		Instrumenter: a.instrumenter,
		Probe:        a.probe,
		Monitor:      a.monitor,
		Upstream:     upstream,
		Build:        server.BuildInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return nil
}

// openDependency opens the backend selected by database.backend. The
// returned pinger is nil for "none".
func (a *app) openDependency() (health.Pinger, error) {
	switch a.cfg.Database.Backend {
	case "sqlite":
		db, err := database.Open(&a.cfg.Database, a.metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.db = db
		return db, nil
	case "redis":
		c, err := cache.New(&a.cfg.Redis, a.metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		a.cache = c
		return c, nil
	default:
		return nil, nil
	}
}

// applyConfig applies the settings that can change without a restart.
func (a *app) applyConfig(cfg *config.Config) {
	if err := a.logger.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
		a.logger.Warn("ignoring invalid log level from reload", "error", err)
	}
	if a.instrumenter != nil {
		a.instrumenter.SetSlowRequestThreshold(cfg.Instrumentation.SlowRequestThreshold)
	}
	a.logger.Info("configuration reloaded",
		"log_level", cfg.Telemetry.Logging.Level,
		"slow_request_threshold", cfg.Instrumentation.SlowRequestThreshold.String(),
	)
}

// run starts the health monitor and the config watcher, then serves until
// ctx is cancelled.
func (a *app) run(ctx context.Context, configPath string) error {
	if err := a.monitor.Start(ctx); err != nil {
		return err
	}
	defer a.monitor.Stop()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			a.watchConfig(ctx, configPath)
		}
	}

	return a.server.Start(ctx)
}

func (a *app) watchConfig(ctx context.Context, path string) {
	watcher, err := config.NewWatcher(path, 0, a.logger.Slog())
	if err != nil {
		a.logger.Warn("config hot reload disabled", "error", err)
		return
	}

	config.OnReload(a.applyConfig)
	go func() {
		err := watcher.Watch(ctx, func() error { return config.ReloadConfig(path) })
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("config watcher stopped", "error", err)
		}
	}()
}

// close releases everything newApp opened.
func (a *app) close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
}
