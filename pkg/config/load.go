package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix shared by all environment variable overrides.
const EnvPrefix = "BEACON_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of NewDefault, so omitted fields keep their
// defaults. The result is validated before it is returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration bytes and applies defaults without
// validating the result.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention BEACON_SECTION_FIELD (e.g., BEACON_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// A missing file is not an error: defaults plus environment overrides are
// used instead, which lets the sidecar run from environment alone.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		cfg = NewDefault()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envInt("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)

	// Proxy overrides
	envString("PROXY_UPSTREAM_URL", &cfg.Proxy.UpstreamURL)
	envDuration("PROXY_FLUSH_INTERVAL", &cfg.Proxy.FlushInterval)

	// Instrumentation overrides
	envBool("INSTRUMENTATION_ENABLED", &cfg.Instrumentation.Enabled)
	if val := os.Getenv(EnvPrefix + "INSTRUMENTATION_EXEMPT_PATHS"); val != "" {
		cfg.Instrumentation.ExemptPaths = splitList(val)
	}
	envString("INSTRUMENTATION_OPERATION_HEADER", &cfg.Instrumentation.OperationHeader)
	envBool("INSTRUMENTATION_GRAPHQL_OPERATION_FROM_BODY", &cfg.Instrumentation.GraphQLOperationFromBody)
	envInt("INSTRUMENTATION_MAX_CAPTURE_BYTES", &cfg.Instrumentation.MaxCaptureBytes)
	envDuration("INSTRUMENTATION_SLOW_REQUEST_THRESHOLD", &cfg.Instrumentation.SlowRequestThreshold)

	// Database overrides
	envString("DATABASE_BACKEND", &cfg.Database.Backend)
	envString("DATABASE_DRIVER", &cfg.Database.Driver)
	envString("DATABASE_PATH", &cfg.Database.Path)
	envInt("DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	envInt("DATABASE_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	envBool("DATABASE_WAL_MODE", &cfg.Database.WALMode)
	envDuration("DATABASE_BUSY_TIMEOUT", &cfg.Database.BusyTimeout)

	// Redis overrides
	envString("REDIS_ADDRESS", &cfg.Redis.Address)
	envString("REDIS_PASSWORD", &cfg.Redis.Password)
	envInt("REDIS_DB", &cfg.Redis.DB)
	envDuration("REDIS_DIAL_TIMEOUT", &cfg.Redis.DialTimeout)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_METRICS_PROCESS_METRICS", &cfg.Telemetry.Metrics.ProcessMetrics)
	envBool("TELEMETRY_METRICS_OPENMETRICS", &cfg.Telemetry.Metrics.OpenMetrics)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
	envDuration("TELEMETRY_HEALTH_TIMEOUT", &cfg.Telemetry.Health.Timeout)
	if val, ok := os.LookupEnv(EnvPrefix + "TELEMETRY_HEALTH_PROBE_SCHEDULE"); ok {
		cfg.Telemetry.Health.ProbeSchedule = val
	}
	envString("TELEMETRY_HEALTH_ENVIRONMENT", &cfg.Telemetry.Health.Environment)
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// splitList splits a comma-separated environment value, dropping empty items.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
