package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:9400"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Instrumentation defaults
	DefaultOperationHeader      = "X-Apollo-Operation-Name"
	DefaultMaxCaptureBytes      = 64 * 1024
	DefaultSlowRequestThreshold = time.Second

	// Database defaults
	DefaultDatabaseBackend      = "sqlite"
	DefaultDatabaseDriver       = "sqlite"
	DefaultDatabasePath         = "data/beacon.db"
	DefaultDatabaseMaxOpenConns = 10
	DefaultDatabaseMaxIdleConns = 5
	DefaultDatabaseBusyTimeout  = 5 * time.Second

	// Redis defaults
	DefaultRedisAddress     = "127.0.0.1:6379"
	DefaultRedisDialTimeout = 5 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsPath          = "/metrics"
	DefaultMaxErrorDetailSeries = 10000
	DefaultTracingServiceName   = "beacon"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingTimeout       = 10 * time.Second
	DefaultHealthTimeout        = 5 * time.Second
	DefaultHealthProbeSchedule  = "@every 30s"
	DefaultHealthEnvironment    = "development"
)

// Default bucket layouts for the HTTP and database histograms.
var (
	DefaultRequestDurationBuckets = []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000}
	DefaultSizeBuckets            = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}
	DefaultQueryDurationBuckets   = []float64{1, 5, 10, 50, 100, 500, 1000, 5000}
	DefaultExemptPaths            = []string{"/metrics", "/health"}
)

// NewDefault returns a configuration with every default applied. Boolean
// toggles that default to true are only set here, because a zero value in a
// loaded file cannot be told apart from an explicit false.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Instrumentation.Enabled = true
	cfg.Database.WALMode = true
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Metrics.ProcessMetrics = true
	cfg.Telemetry.Health.ProbeSchedule = DefaultHealthProbeSchedule
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Instrumentation defaults
	if len(cfg.Instrumentation.ExemptPaths) == 0 {
		cfg.Instrumentation.ExemptPaths = append([]string(nil), DefaultExemptPaths...)
	}
	if cfg.Instrumentation.OperationHeader == "" {
		cfg.Instrumentation.OperationHeader = DefaultOperationHeader
	}
	if cfg.Instrumentation.MaxCaptureBytes == 0 {
		cfg.Instrumentation.MaxCaptureBytes = DefaultMaxCaptureBytes
	}
	if cfg.Instrumentation.SlowRequestThreshold == 0 {
		cfg.Instrumentation.SlowRequestThreshold = DefaultSlowRequestThreshold
	}

	// Database defaults
	if cfg.Database.Backend == "" {
		cfg.Database.Backend = DefaultDatabaseBackend
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDatabaseDriver
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDatabasePath
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDatabaseMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDatabaseMaxIdleConns
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = DefaultDatabaseBusyTimeout
	}

	// Redis defaults
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = DefaultRedisAddress
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.MaxErrorDetailSeries == 0 {
		cfg.Telemetry.Metrics.MaxErrorDetailSeries = DefaultMaxErrorDetailSeries
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}
	if len(cfg.Telemetry.Metrics.SizeBuckets) == 0 {
		cfg.Telemetry.Metrics.SizeBuckets = append([]float64(nil), DefaultSizeBuckets...)
	}
	if len(cfg.Telemetry.Metrics.QueryDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.QueryDurationBuckets = append([]float64(nil), DefaultQueryDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Health.Timeout == 0 {
		cfg.Telemetry.Health.Timeout = DefaultHealthTimeout
	}
	if cfg.Telemetry.Health.Environment == "" {
		cfg.Telemetry.Health.Environment = DefaultHealthEnvironment
	}
}
