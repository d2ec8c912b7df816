package metrics

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"storefront/beacon/pkg/config"
)

// Metric family names exposed by HTTPMetrics.
const (
	HTTPRequestsTotalName      = "http_requests_total"
	HTTPRequestDurationName    = "http_request_duration_ms"
	HTTPResponseSizeName       = "http_response_size_bytes"
	HTTPRequestSizeName        = "http_request_size_bytes"
	HTTPErrorsTotalName        = "http_errors_total"
	HTTPErrorDetailsName       = "http_error_details"
	DBQueryDurationName        = "db_query_duration_ms"
	DBQueryErrorsTotalName     = "db_query_errors_total"
	ActiveConnectionsTotalName = "active_connections_total"
	RequestsInProgressName     = "requests_in_progress"
)

// MaxErrorMessageLength is the longest error message used as a label value.
const MaxErrorMessageLength = 100

// OverflowErrorMessage replaces error messages once the error-detail series
// limit is reached.
const OverflowErrorMessage = "other"

// QueryRecorder receives timings for dependency calls.
type QueryRecorder interface {
	// RecordDatabaseQuery records one query. errorType is empty on success.
	RecordDatabaseQuery(operation, model string, duration time.Duration, errorType string)
}

// RequestObservation is everything recorded for one completed request.
type RequestObservation struct {
	Method       string
	Route        string
	StatusCode   int
	Duration     time.Duration
	RequestSize  int64
	ResponseSize int64

	// ErrorType and ErrorMessage are set when the response was classified
	// as an error.
	ErrorType    string
	ErrorMessage string
}

// HTTPMetrics holds the request, dependency and connection families.
type HTTPMetrics struct {
	requestsTotal     *Counter
	requestDuration   *Histogram
	responseSize      *Histogram
	requestSize       *Histogram
	errorsTotal       *Counter
	errorDetails      *Gauge
	queryDuration     *Histogram
	queryErrors       *Counter
	activeConnections *Gauge
	inProgress        *Gauge

	errorDetailLimiter *CardinalityLimiter
}

// NewHTTPMetrics registers the HTTP metric families in registry. Bucket
// layouts come from cfg; zero values fall back to the package defaults.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *Registry) (*HTTPMetrics, error) {
	durationBuckets := orDefault(cfg.RequestDurationBuckets, config.DefaultRequestDurationBuckets)
	sizeBuckets := orDefault(cfg.SizeBuckets, config.DefaultSizeBuckets)
	queryBuckets := orDefault(cfg.QueryDurationBuckets, config.DefaultQueryDurationBuckets)

	requestLabels := []string{"method", "route", "status_code"}
	m := &HTTPMetrics{errorDetailLimiter: NewCardinalityLimiter(cfg.MaxErrorDetailSeries)}

	var err error
	if m.requestsTotal, err = registry.NewCounter(HTTPRequestsTotalName,
		"Total HTTP requests", requestLabels); err != nil {
		return nil, err
	}
	if m.requestDuration, err = registry.NewHistogram(HTTPRequestDurationName,
		"HTTP request duration in milliseconds", requestLabels, durationBuckets); err != nil {
		return nil, err
	}
	if m.responseSize, err = registry.NewHistogram(HTTPResponseSizeName,
		"HTTP response size in bytes", requestLabels, sizeBuckets); err != nil {
		return nil, err
	}
	if m.requestSize, err = registry.NewHistogram(HTTPRequestSizeName,
		"HTTP request size in bytes", []string{"method", "route"}, sizeBuckets); err != nil {
		return nil, err
	}
	if m.errorsTotal, err = registry.NewCounter(HTTPErrorsTotalName,
		"Total HTTP errors", []string{"method", "route", "status_code", "error_type"}); err != nil {
		return nil, err
	}
	if m.errorDetails, err = registry.NewGauge(HTTPErrorDetailsName,
		"Last error details", []string{"method", "route", "status_code", "error_message"}); err != nil {
		return nil, err
	}
	if m.queryDuration, err = registry.NewHistogram(DBQueryDurationName,
		"Database query duration in milliseconds", []string{"operation", "model"}, queryBuckets); err != nil {
		return nil, err
	}
	if m.queryErrors, err = registry.NewCounter(DBQueryErrorsTotalName,
		"Total database query errors", []string{"operation", "model", "error_type"}); err != nil {
		return nil, err
	}
	if m.activeConnections, err = registry.NewGauge(ActiveConnectionsTotalName,
		"Total active connections", nil); err != nil {
		return nil, err
	}
	if m.inProgress, err = registry.NewGauge(RequestsInProgressName,
		"Number of requests currently being processed", []string{"method", "route"}); err != nil {
		return nil, err
	}

	return m, nil
}

// MustNewHTTPMetrics is like NewHTTPMetrics but panics on error.
func MustNewHTTPMetrics(cfg *config.MetricsConfig, registry *Registry) *HTTPMetrics {
	m, err := NewHTTPMetrics(cfg, registry)
	if err != nil {
		panic(err)
	}
	return m
}

// RecordRequestStart increments the in-progress gauge for a request.
func (m *HTTPMetrics) RecordRequestStart(method, route string) error {
	return m.inProgress.Inc(method, route)
}

// RecordRequestEnd decrements the in-progress gauge for a request.
func (m *HTTPMetrics) RecordRequestEnd(method, route string) error {
	return m.inProgress.Dec(method, route)
}

// RecordHTTPRequest records a completed request. Every family is attempted
// even if an earlier one fails; the failures are joined.
func (m *HTTPMetrics) RecordHTTPRequest(obs RequestObservation) error {
	status := strconv.Itoa(obs.StatusCode)
	ms := durationMillis(obs.Duration)

	errs := []error{
		m.requestsTotal.Inc(obs.Method, obs.Route, status),
		m.requestDuration.Observe(ms, obs.Method, obs.Route, status),
		m.responseSize.Observe(float64(obs.ResponseSize), obs.Method, obs.Route, status),
		m.requestSize.Observe(float64(obs.RequestSize), obs.Method, obs.Route),
	}

	if obs.StatusCode >= 400 && obs.ErrorType != "" {
		errs = append(errs, m.errorsTotal.Inc(obs.Method, obs.Route, status, obs.ErrorType))

		message := TruncateRunes(obs.ErrorMessage, MaxErrorMessageLength)
		key := seriesKey([]string{obs.Method, obs.Route, status, message})
		if !m.errorDetailLimiter.Allow(key) {
			message = OverflowErrorMessage
		}
		errs = append(errs, m.errorDetails.Set(1, obs.Method, obs.Route, status, message))
	}

	return errors.Join(errs...)
}

// RecordDatabaseQuery implements QueryRecorder. QueryRecorder has no error
// return, so a failed recording is logged and dropped.
func (m *HTTPMetrics) RecordDatabaseQuery(operation, model string, duration time.Duration, errorType string) {
	err := m.queryDuration.Observe(durationMillis(duration), operation, model)
	if errorType != "" {
		err = errors.Join(err, m.queryErrors.Inc(operation, model, errorType))
	}
	logRecordError("database query", err)
}

// UpdateActiveConnections sets the number of open client connections.
func (m *HTTPMetrics) UpdateActiveConnections(count int) {
	logRecordError("active connections", m.activeConnections.Set(float64(count)))
}

// logRecordError logs a recording failure of a method that cannot return
// it. Recording never fails the caller.
func logRecordError(what string, err error) {
	if err == nil {
		return
	}
	slog.Default().Log(context.Background(), slog.LevelDebug, "failed to record metric",
		"component", "metrics", "metric", what, "error", err)
}

// InProgress returns the current in-progress value for a method and route.
func (m *HTTPMetrics) InProgress(method, route string) float64 {
	v, _ := m.inProgress.Value(method, route)
	return v
}

// TruncateRunes shortens s to at most n characters without splitting a
// multi-byte character.
func TruncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func durationMillis(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

func orDefault(buckets, fallback []float64) []float64 {
	if len(buckets) == 0 {
		return fallback
	}
	return buckets
}
