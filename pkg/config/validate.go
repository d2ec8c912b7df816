package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateInstrumentation(&cfg.Instrumentation)...)
	errs = append(errs, validateDatabase(&cfg.Database)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}

	return errs
}

// validateProxy validates the upstream application settings.
func validateProxy(cfg *ProxyConfig) []FieldError {
	if cfg.UpstreamURL == "" {
		return nil
	}

	u, err := url.Parse(cfg.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return []FieldError{{
			Field:   "proxy.upstream_url",
			Message: fmt.Sprintf("invalid upstream URL %q", cfg.UpstreamURL),
		}}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []FieldError{{
			Field:   "proxy.upstream_url",
			Message: fmt.Sprintf("unsupported scheme %q (must be http or https)", u.Scheme),
		}}
	}

	return nil
}

// validateInstrumentation validates request instrumentation settings.
func validateInstrumentation(cfg *InstrumentationConfig) []FieldError {
	var errs []FieldError

	for i, p := range cfg.ExemptPaths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("instrumentation.exempt_paths[%d]", i),
				Message: "exempt path must not be empty",
			})
		}
	}
	if cfg.OperationHeader == "" {
		errs = append(errs, FieldError{
			Field:   "instrumentation.operation_header",
			Message: "operation header is required",
		})
	}
	if cfg.MaxCaptureBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "instrumentation.max_capture_bytes",
			Message: "max capture bytes must be non-negative",
		})
	}
	if cfg.SlowRequestThreshold < 0 {
		errs = append(errs, FieldError{
			Field:   "instrumentation.slow_request_threshold",
			Message: "slow request threshold must be positive",
		})
	}

	return errs
}

// validateDatabase validates dependency settings.
func validateDatabase(cfg *DatabaseConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite", "redis", "none":
	default:
		errs = append(errs, FieldError{
			Field:   "database.backend",
			Message: fmt.Sprintf("unsupported backend %q (must be sqlite, redis or none)", cfg.Backend),
		})
	}
	switch cfg.Driver {
	case "sqlite", "sqlite3":
	default:
		errs = append(errs, FieldError{
			Field:   "database.driver",
			Message: fmt.Sprintf("unsupported driver %q (must be sqlite or sqlite3)", cfg.Driver),
		})
	}
	if cfg.Backend == "sqlite" && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "database.path",
			Message: "database path is required for the sqlite backend",
		})
	}
	if cfg.MaxOpenConns < 0 {
		errs = append(errs, FieldError{
			Field:   "database.max_open_conns",
			Message: "max open connections must be non-negative",
		})
	}
	if cfg.MaxIdleConns < 0 {
		errs = append(errs, FieldError{
			Field:   "database.max_idle_conns",
			Message: "max idle connections must be non-negative",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json, text or console)", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}
	if cfg.Metrics.MaxErrorDetailSeries < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.max_error_detail_series",
			Message: "max error detail series must be non-negative",
		})
	}
	errs = append(errs, validateBuckets("telemetry.metrics.request_duration_buckets", cfg.Metrics.RequestDurationBuckets)...)
	errs = append(errs, validateBuckets("telemetry.metrics.size_buckets", cfg.Metrics.SizeBuckets)...)
	errs = append(errs, validateBuckets("telemetry.metrics.query_duration_buckets", cfg.Metrics.QueryDurationBuckets)...)

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Health.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.timeout",
			Message: "health timeout must be positive",
		})
	}
	if cfg.Health.ProbeSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Health.ProbeSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.probe_schedule",
				Message: fmt.Sprintf("invalid cron schedule %q: %v", cfg.Health.ProbeSchedule, err),
			})
		}
	}

	return errs
}

// validateBuckets checks that histogram bucket boundaries are finite and
// strictly ascending.
func validateBuckets(field string, buckets []float64) []FieldError {
	for i, b := range buckets {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return []FieldError{{Field: field, Message: fmt.Sprintf("bucket %d is not finite", i)}}
		}
		if i > 0 && b <= buckets[i-1] {
			return []FieldError{{Field: field, Message: "buckets must be strictly ascending"}}
		}
	}
	return nil
}
