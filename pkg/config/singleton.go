package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// current is the process-wide configuration. Readers never block: a reload
// swaps the pointer and leaves configurations already handed out intact.
var current atomic.Pointer[Config]

// loader serializes initialization and reloads and owns the reload hooks.
var loader struct {
	mu    sync.Mutex
	once  sync.Once
	path  string
	hooks []func(*Config)
}

// Initialize loads the configuration at path with environment overrides and
// installs it process-wide. Only the first call loads; later calls return
// nil without touching the installed configuration.
func Initialize(path string) error {
	var err error
	loader.once.Do(func() {
		var cfg *Config
		if cfg, err = LoadConfigWithEnvOverrides(path); err != nil {
			return
		}
		loader.mu.Lock()
		loader.path = path
		loader.mu.Unlock()
		current.Store(cfg)
	})
	return err
}

// GetConfig returns the installed configuration, or nil before Initialize
// has succeeded.
func GetConfig() *Config {
	return current.Load()
}

// MustGetConfig is GetConfig for callers that cannot run unconfigured.
func MustGetConfig() *Config {
	cfg := current.Load()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// SetConfig installs cfg directly. Tests use it in place of Initialize.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// OnReload registers fn to run after every successful ReloadConfig, in
// registration order.
func OnReload(fn func(*Config)) {
	loader.mu.Lock()
	loader.hooks = append(loader.hooks, fn)
	loader.mu.Unlock()
}

// ReloadConfig loads path again (the initialization path when empty) and
// installs the result. A file that fails to load or validate leaves the
// installed configuration in place and skips the hooks.
func ReloadConfig(path string) error {
	loader.mu.Lock()
	defer loader.mu.Unlock()

	if path == "" {
		path = loader.path
	}
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	loader.path = path
	current.Store(cfg)

	for _, fn := range loader.hooks {
		fn(cfg)
	}
	return nil
}

func resetForTest() {
	loader.mu.Lock()
	defer loader.mu.Unlock()
	current.Store(nil)
	loader.path = ""
	loader.hooks = nil
	loader.once = sync.Once{}
}
