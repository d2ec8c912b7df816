// Package config provides configuration management for beacon.
//
// Configuration is read from a YAML file, decoded on top of the defaults in
// defaults.go, overridden by environment variables and finally validated.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("beacon.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("beacon.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention BEACON_SECTION_FIELD:
//
//   - BEACON_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - BEACON_PROXY_UPSTREAM_URL overrides proxy.upstream_url
//   - BEACON_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Singleton and Hot Reload
//
// Initialize stores the process-wide configuration once at startup.
// A Watcher observes the file and calls ReloadConfig, which swaps the
// singleton and notifies hooks registered with OnReload. Only a small set of
// settings (log level, slow-request threshold) is applied live; everything
// else takes effect on restart.
package config
