package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Monitor runs a Probe on a cron schedule and keeps the latest report for
// the readiness endpoint.
type Monitor struct {
	probe    *Probe
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.RWMutex
	latest  *Report
	running bool
}

// NewMonitor creates a monitor for probe. An empty schedule disables
// background probing; readiness is then checked on demand.
func NewMonitor(probe *Probe, schedule string, logger *slog.Logger) (*Monitor, error) {
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		probe:    probe,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "health.monitor"),
	}, nil
}

// Start probes once, then schedules further probes. The monitor stops when
// ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.Run(ctx)

	if m.schedule == "" {
		m.logger.Info("probe schedule not configured, skipping monitor")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.cron.AddFunc(m.schedule, func() { m.Run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule health probe: %w", err)
	}
	m.cron.Start()
	m.running = true

	m.logger.Info("health monitor started", "schedule", m.schedule)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// Stop stops the schedule and waits for a running probe to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	running := m.running
	m.running = false
	m.mu.Unlock()

	// The lock is released first because a running probe takes it to
	// store its report.
	if running {
		<-m.cron.Stop().Done()
		m.logger.Info("health monitor stopped")
	}
}

// Run probes the dependency now, stores the report and logs status changes.
func (m *Monitor) Run(ctx context.Context) Report {
	report := m.probe.Check(ctx)

	m.mu.Lock()
	previous := m.latest
	m.latest = &report
	m.mu.Unlock()

	switch {
	case previous == nil && !report.Healthy():
		m.logger.Warn("dependency unhealthy", "database", report.Database, "error", report.Error)
	case previous != nil && previous.Healthy() && !report.Healthy():
		m.logger.Warn("dependency became unhealthy", "database", report.Database, "error", report.Error)
	case previous != nil && !previous.Healthy() && report.Healthy():
		m.logger.Info("dependency recovered", "database", report.Database)
	default:
		m.logger.Debug("health probe completed", "status", report.Status)
	}

	return report
}

// Latest returns the most recent report, if any probe has run.
func (m *Monitor) Latest() (Report, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.latest == nil {
		return Report{}, false
	}
	return *m.latest, true
}

// Running reports whether the schedule is active.
func (m *Monitor) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.running
}
