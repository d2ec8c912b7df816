package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Report statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Database states reported alongside the status.
const (
	DatabaseConnected    = "connected"
	DatabaseDisconnected = "disconnected"
	DatabaseDisabled     = "disabled"
)

// DefaultTimeout bounds a probe when none is configured.
const DefaultTimeout = 5 * time.Second

// ErrCheckTimeout is reported when the dependency does not answer in time.
var ErrCheckTimeout = errors.New("health check timeout")

// Pinger is a dependency that can be probed with one round trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Report is the health document served by the health endpoint.
type Report struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`

	// Uptime is the process uptime in seconds.
	Uptime float64 `json:"uptime"`

	Environment string `json:"environment,omitempty"`
	Version     string `json:"version,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Healthy reports whether the dependency answered.
func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Probe checks one dependency with a bounded timeout.
type Probe struct {
	pinger      Pinger
	timeout     time.Duration
	started     time.Time
	environment string
	version     string
	now         func() time.Time
}

// NewProbe creates a probe for pinger. A nil pinger reports healthy with the
// database marked as disabled. If timeout is 0, DefaultTimeout is used.
func NewProbe(pinger Pinger, timeout time.Duration, environment, version string) *Probe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Probe{
		pinger:      pinger,
		timeout:     timeout,
		started:     time.Now(),
		environment: environment,
		version:     version,
		now:         time.Now,
	}
}

// Check performs one round trip against the dependency. It never fails:
// errors, timeouts and panics in the dependency are reported as unhealthy.
func (p *Probe) Check(ctx context.Context) Report {
	if p.pinger == nil {
		return p.healthy(DatabaseDisabled)
	}

	if err := p.ping(ctx); err != nil {
		now := p.now()
		return Report{
			Status:    StatusUnhealthy,
			Timestamp: now.UTC(),
			Database:  DatabaseDisconnected,
			Uptime:    now.Sub(p.started).Seconds(),
			Error:     err.Error(),
		}
	}
	return p.healthy(DatabaseConnected)
}

func (p *Probe) healthy(database string) Report {
	now := p.now()
	return Report{
		Status:      StatusHealthy,
		Timestamp:   now.UTC(),
		Database:    database,
		Uptime:      now.Sub(p.started).Seconds(),
		Environment: p.environment,
		Version:     p.version,
	}
}

// ping runs the check in a goroutine so a dependency that ignores its
// context still cannot hold the caller past the timeout.
func (p *Probe) ping(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errChan <- fmt.Errorf("health check panicked: %v", r)
			}
		}()
		errChan <- p.pinger.Ping(checkCtx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-checkCtx.Done():
		if errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
			return ErrCheckTimeout
		}
		return checkCtx.Err()
	}
}
