package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewMonitor_InvalidSchedule(t *testing.T) {
	if _, err := NewMonitor(NewProbe(nil, 0, "", ""), "not a schedule", nil); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

// TestMonitor_ReadinessFollowsDependency tests that readiness reflects the
// latest probe and recovers with the dependency.
func TestMonitor_ReadinessFollowsDependency(t *testing.T) {
	var down atomic.Bool
	down.Store(true)

	probe := NewProbe(PingerFunc(func(ctx context.Context) error {
		if down.Load() {
			return errors.New("connection refused")
		}
		return nil
	}), time.Second, "", "")

	monitor, err := NewMonitor(probe, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := monitor.Latest(); ok {
		t.Fatal("expected no report before the first probe")
	}

	ready := monitor.ReadinessHandler()

	w := httptest.NewRecorder()
	ready.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}

	down.Store(false)
	w = httptest.NewRecorder()
	ready.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	report, ok := monitor.Latest()
	if !ok || !report.Healthy() {
		t.Errorf("latest = %+v, %v", report, ok)
	}
}

// TestMonitor_Schedule tests that the cron schedule keeps probing until the
// context is cancelled.
func TestMonitor_Schedule(t *testing.T) {
	var calls atomic.Int64
	probe := NewProbe(PingerFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}), time.Second, "", "")

	monitor, err := NewMonitor(probe, "@every 1s", nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := monitor.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls after start = %d, want 1", calls.Load())
	}
	if !monitor.Running() {
		t.Error("expected monitor to be running")
	}

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if calls.Load() < 2 {
		t.Errorf("scheduled probe did not run, calls = %d", calls.Load())
	}

	cancel()
	deadline = time.Now().Add(5 * time.Second)
	for monitor.Running() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if monitor.Running() {
		t.Error("expected monitor to stop after cancel")
	}
}

func TestMonitor_StartWithoutSchedule(t *testing.T) {
	monitor, err := NewMonitor(NewProbe(nil, 0, "", ""), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := monitor.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if monitor.Running() {
		t.Error("monitor without schedule should not run")
	}
	if _, ok := monitor.Latest(); !ok {
		t.Error("expected an initial report")
	}
	monitor.Stop()
}
