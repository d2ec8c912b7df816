package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is how long the watcher waits for writes to settle
// before reloading.
const DefaultDebounceInterval = 100 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk.
// The parent directory is watched rather than the file itself so that
// editors and config-map updates that replace the file are still seen.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, interval time.Duration, logger *slog.Logger) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     abs,
		interval: interval,
		logger:   logger.With("component", "config.watcher"),
		watcher:  fw,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called, calling onChange
// once per settled burst of writes to the watched file.
func (w *Watcher) Watch(ctx context.Context, onChange func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", filepath.Dir(w.path), err)
	}

	w.logger.Info("config watcher started",
		"path", w.path,
		"debounce_ms", w.interval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return nil

		case <-w.stopCh:
			w.cancelPending()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.shouldProcessEvent(event) {
				continue
			}
			w.logger.Debug("config file event", "op", event.Op.String())
			w.trigger(onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and releases the underlying inotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}

// trigger schedules onChange after the debounce interval, resetting any
// pending call.
func (w *Watcher) trigger(onChange func() error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.interval, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.logger.Info("reloading configuration", "path", w.path)
		if err := onChange(); err != nil {
			w.logger.Error("configuration reload failed", "error", err)
		}
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
