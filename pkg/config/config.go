package config

import "time"

// Config is the root configuration structure for beacon.
// It contains all configuration sections for the HTTP server, the upstream
// application proxy, request instrumentation, dependencies and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Proxy contains configuration for the upstream application that
	// instrumented requests are forwarded to.
	Proxy ProxyConfig `yaml:"proxy"`

	// Instrumentation controls how every inbound request is observed.
	Instrumentation InstrumentationConfig `yaml:"instrumentation"`

	// Database contains configuration for the SQL dependency probed by the
	// health endpoint.
	Database DatabaseConfig `yaml:"database"`

	// Redis contains configuration for the Redis dependency. Only used when
	// Database.Backend is "redis".
	Redis RedisConfig `yaml:"redis"`

	// Telemetry contains configuration for observability including logging,
	// metrics, tracing and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:9400", "0.0.0.0:9400").
	// Default: "127.0.0.1:9400"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// ProxyConfig contains configuration for the upstream application.
type ProxyConfig struct {
	// UpstreamURL is the base URL of the application backend. When empty,
	// non-telemetry routes answer with a JSON 404.
	// Example: "http://127.0.0.1:3000"
	UpstreamURL string `yaml:"upstream_url"`

	// FlushInterval is passed to the reverse proxy. A negative value flushes
	// after every write.
	// Default: 0
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// InstrumentationConfig contains request instrumentation settings.
type InstrumentationConfig struct {
	// Enabled controls whether requests are instrumented at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ExemptPaths lists path substrings that are never instrumented.
	// The metrics path is always exempt.
	// Default: ["/metrics", "/health"]
	ExemptPaths []string `yaml:"exempt_paths"`

	// OperationHeader is the request header carrying the GraphQL operation name.
	// Default: "X-Apollo-Operation-Name"
	OperationHeader string `yaml:"operation_header"`

	// GraphQLOperationFromBody extracts the operation name from the request
	// body when the operation header is absent.
	// Default: false
	GraphQLOperationFromBody bool `yaml:"graphql_operation_from_body"`

	// MaxCaptureBytes is how much of each response body is kept for error
	// classification.
	// Default: 65536
	MaxCaptureBytes int `yaml:"max_capture_bytes"`

	// SlowRequestThreshold is the duration above which a request is logged
	// as slow.
	// Default: 1s
	SlowRequestThreshold time.Duration `yaml:"slow_request_threshold"`
}

// DatabaseConfig contains configuration for the SQL dependency.
type DatabaseConfig struct {
	// Backend selects which dependency the health probe checks.
	// Options: "sqlite", "redis", "none"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Driver selects the SQLite driver.
	// Options: "sqlite3" (mattn/go-sqlite3, cgo), "sqlite" (modernc.org/sqlite)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file path.
	// Default: "data/beacon.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RedisConfig contains configuration for the Redis dependency.
type RedisConfig struct {
	// Address is the Redis server address.
	// Default: "127.0.0.1:6379"
	Address string `yaml:"address"`

	// Password is the optional Redis password.
	Password string `yaml:"password"`

	// DB is the Redis logical database.
	// Default: 0
	DB int `yaml:"db"`

	// DialTimeout bounds connection establishment.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// ProcessMetrics appends Go runtime and process metrics to the exposition.
	// Default: true
	ProcessMetrics bool `yaml:"process_metrics"`

	// OpenMetrics serves the OpenMetrics format to scrapers that ask for it.
	// Default: false
	OpenMetrics bool `yaml:"openmetrics"`

	// MaxErrorDetailSeries bounds the number of distinct http_error_details
	// label sets. Messages beyond the limit are recorded as "other".
	// Default: 10000
	MaxErrorDetailSeries int `yaml:"max_error_detail_series"`

	// RequestDurationBuckets defines histogram buckets for request duration (ms).
	// Default: [10, 50, 100, 200, 500, 1000, 2000, 5000, 10000]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// SizeBuckets defines histogram buckets for request and response sizes (bytes).
	// Default: [100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000]
	SizeBuckets []float64 `yaml:"size_buckets"`

	// QueryDurationBuckets defines histogram buckets for database query duration (ms).
	// Default: [1, 5, 10, 50, 100, 500, 1000, 5000]
	QueryDurationBuckets []float64 `yaml:"query_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "beacon"
	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of traces sampled (0.0 - 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export call.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Timeout bounds one dependency round trip.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// ProbeSchedule is the cron expression for background probing. Empty
	// disables the background monitor.
	// Default: "@every 30s"
	ProbeSchedule string `yaml:"probe_schedule"`

	// Environment is reported by the health endpoint.
	// Default: "development"
	Environment string `yaml:"environment"`
}
