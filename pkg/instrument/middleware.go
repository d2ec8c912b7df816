package instrument

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"storefront/beacon/pkg/config"
	"storefront/beacon/pkg/telemetry/logging"
	"storefront/beacon/pkg/telemetry/metrics"
	"storefront/beacon/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StatusClientClosedRequest is recorded when the client goes away before
// any response header was written.
const StatusClientClosedRequest = 499

// RequestContext is the per-request state shared with hooks. It is owned by
// one middleware invocation and must not be retained after OnRequestFinish.
type RequestContext struct {
	Method string
	Route  string
	Path   string
	Start  time.Time

	// RequestSize is filled in at completion.
	RequestSize int64

	Request *http.Request
}

// Outcome describes how a request completed.
type Outcome struct {
	StatusCode   int
	Duration     time.Duration
	RequestSize  int64
	ResponseSize int64

	// Body is the captured head of the response body.
	Body []byte

	// Aborted is set when the client disconnected before the handler
	// finished.
	Aborted bool

	// Panicked is set when the handler panicked.
	Panicked bool

	// Error is set for status codes of 400 and above.
	Error *ErrorDetail
}

// Hooks observe the request lifecycle. OnRequestFinish is called exactly
// once for every OnRequestStart. Returned errors and panics are logged and
// never reach the client.
type Hooks interface {
	OnRequestStart(ctx context.Context, rc *RequestContext) error
	OnRequestFinish(ctx context.Context, rc *RequestContext, out *Outcome) error
}

// SpanStarter starts request spans. Both *tracing.Tracer and any
// trace.Tracer satisfy it.
type SpanStarter interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

// Options configures an Instrumenter.
type Options struct {
	// Metrics receives every observation. Required.
	Metrics *metrics.HTTPMetrics

	// ExemptPaths are path substrings that bypass instrumentation.
	// Defaults to config.DefaultExemptPaths when nil.
	ExemptPaths []string

	// OperationHeader carries the GraphQL operation name.
	OperationHeader string

	// OperationFromBody looks for the operation name in the request when
	// the header is missing.
	OperationFromBody bool

	// MaxCaptureBytes bounds the captured response body.
	MaxCaptureBytes int

	// SlowRequestThreshold is the duration above which a request is logged
	// as slow. Zero disables slow request logging.
	SlowRequestThreshold time.Duration

	// Tracer starts a server span per request when set.
	Tracer SpanStarter

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Hooks run after the built-in metrics hook, in order.
	Hooks []Hooks
}

// Instrumenter is the request instrumentation middleware.
type Instrumenter struct {
	metrics         *metrics.HTTPMetrics
	exemptPaths     []string
	operationHeader string
	fromBody        bool
	maxCapture      int
	slowThreshold   atomic.Int64
	tracer          SpanStarter
	logger          *slog.Logger
	hooks           []Hooks
}

// New creates an Instrumenter.
func New(opts Options) (*Instrumenter, error) {
	if opts.Metrics == nil {
		return nil, errors.New("instrument: metrics are required")
	}

	in := &Instrumenter{
		metrics:         opts.Metrics,
		exemptPaths:     opts.ExemptPaths,
		operationHeader: opts.OperationHeader,
		fromBody:        opts.OperationFromBody,
		maxCapture:      opts.MaxCaptureBytes,
		tracer:          opts.Tracer,
		logger:          opts.Logger,
	}
	if in.exemptPaths == nil {
		in.exemptPaths = append([]string(nil), config.DefaultExemptPaths...)
	}
	if in.operationHeader == "" {
		in.operationHeader = config.DefaultOperationHeader
	}
	if in.maxCapture <= 0 {
		in.maxCapture = config.DefaultMaxCaptureBytes
	}
	if in.logger == nil {
		in.logger = slog.Default()
	}
	in.logger = in.logger.With("component", "instrument")
	in.slowThreshold.Store(int64(opts.SlowRequestThreshold))

	in.hooks = append([]Hooks{in}, opts.Hooks...)
	return in, nil
}

// NewFromConfig creates an Instrumenter from the instrumentation section.
func NewFromConfig(cfg *config.InstrumentationConfig, m *metrics.HTTPMetrics, tracer SpanStarter, logger *slog.Logger) (*Instrumenter, error) {
	return New(Options{
		Metrics:              m,
		ExemptPaths:          cfg.ExemptPaths,
		OperationHeader:      cfg.OperationHeader,
		OperationFromBody:    cfg.GraphQLOperationFromBody,
		MaxCaptureBytes:      cfg.MaxCaptureBytes,
		SlowRequestThreshold: cfg.SlowRequestThreshold,
		Tracer:               tracer,
		Logger:               logger,
	})
}

// SetSlowRequestThreshold changes the slow request threshold at runtime.
func (in *Instrumenter) SetSlowRequestThreshold(d time.Duration) {
	in.slowThreshold.Store(int64(d))
}

// SlowRequestThreshold returns the current slow request threshold.
func (in *Instrumenter) SlowRequestThreshold() time.Duration {
	return time.Duration(in.slowThreshold.Load())
}

// Exempt reports whether path bypasses instrumentation.
func (in *Instrumenter) Exempt(path string) bool {
	for _, p := range in.exemptPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// Middleware wraps next with request instrumentation.
//
// Example usage:
//
//	router.Use(inst.Middleware)
func (in *Instrumenter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if in.Exempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		in.serve(next, w, r)
	})
}

func (in *Instrumenter) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	operation := r.Header.Get(in.operationHeader)
	if operation == "" && in.fromBody && strings.Contains(r.URL.Path, GraphQLRoute) {
		operation = operationFromRequest(r, in.maxCapture)
	}
	route := NormalizeRoute(r.URL.RequestURI(), operation)

	ctx := logging.WithRoute(r.Context(), route)
	var span trace.Span
	if in.tracer != nil {
		ctx = tracing.Extract(ctx, r.Header)
		ctx, span = in.tracer.Start(ctx, r.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		tracing.SetRequestAttributes(span, r.Method, route, logging.GetRequestID(ctx))
	}

	declared := declaredRequestSize(r)
	body := newCountingBody(r.Body)
	r = r.WithContext(ctx)
	r.Body = body

	rc := &RequestContext{
		Method:  r.Method,
		Route:   route,
		Path:    r.URL.Path,
		Start:   start,
		Request: r,
	}
	rec := newResponseRecorder(w, in.maxCapture)

	in.start(ctx, rc)

	var once sync.Once
	complete := func(aborted, panicked bool) {
		once.Do(func() {
			in.complete(ctx, rc, rec, requestSize(declared, body.Count()), aborted, panicked, span)
		})
	}

	// The request context is also cancelled when ServeHTTP returns, so
	// stop is always called before the normal completion path.
	stop := context.AfterFunc(ctx, func() { complete(true, false) })

	defer func() {
		if p := recover(); p != nil {
			stop()
			complete(p == http.ErrAbortHandler, true)
			panic(p)
		}
	}()

	next.ServeHTTP(rec, r)

	stop()
	complete(false, false)
}

func (in *Instrumenter) start(ctx context.Context, rc *RequestContext) {
	for _, h := range in.hooks {
		in.runHook(ctx, "start", func() error { return h.OnRequestStart(ctx, rc) })
	}
}

func (in *Instrumenter) complete(ctx context.Context, rc *RequestContext, rec *responseRecorder, reqSize int64, aborted, panicked bool, span trace.Span) {
	out := in.outcome(ctx, rc, rec, reqSize, aborted, panicked)

	for _, h := range in.hooks {
		in.runHook(ctx, "finish", func() error { return h.OnRequestFinish(ctx, rc, out) })
	}

	if span != nil {
		in.runHook(ctx, "span", func() error {
			var kind, message string
			if out.Error != nil {
				kind, message = out.Error.Kind, out.Error.Message
			}
			tracing.SetResponseAttributes(span, out.StatusCode, kind, message)
			if panicked {
				span.SetStatus(codes.Error, "handler panicked")
			}
			span.End()
			return nil
		})
	}
}

// outcome measures the completed request. A failure here degrades to a
// zero-sized outcome without error detail.
func (in *Instrumenter) outcome(ctx context.Context, rc *RequestContext, rec *responseRecorder, reqSize int64, aborted, panicked bool) (out *Outcome) {
	out = &Outcome{
		StatusCode: http.StatusOK,
		Duration:   max(time.Since(rc.Start), 0),
		Aborted:    aborted,
		Panicked:   panicked,
	}

	defer func() {
		if p := recover(); p != nil {
			in.logger.ErrorContext(ctx, "Error measuring request", "error", fmt.Sprint(p))
		}
	}()

	resp := rec.snapshot()
	switch {
	case resp.wroteHeader:
		out.StatusCode = resp.status
	case panicked && !aborted:
		out.StatusCode = http.StatusInternalServerError
	case aborted:
		out.StatusCode = StatusClientClosedRequest
	}

	rc.RequestSize = reqSize
	out.RequestSize = reqSize
	out.ResponseSize = responseSize(resp)
	out.Body = resp.body

	if out.StatusCode >= 400 {
		var body any
		if len(resp.body) > 0 {
			body = resp.body
		}
		detail := ClassifyError(body, out.StatusCode)
		out.Error = &detail
	}
	return out
}

// runHook calls fn and logs any error or panic it produces.
func (in *Instrumenter) runHook(ctx context.Context, stage string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			in.logger.ErrorContext(ctx, "Error recording metrics", "stage", stage, "error", fmt.Sprint(p))
		}
	}()
	if err := fn(); err != nil {
		in.logger.ErrorContext(ctx, "Error recording metrics", "stage", stage, "error", err)
	}
}

// OnRequestStart implements Hooks by incrementing the in-progress gauge.
func (in *Instrumenter) OnRequestStart(_ context.Context, rc *RequestContext) error {
	return in.metrics.RecordRequestStart(rc.Method, rc.Route)
}

// OnRequestFinish implements Hooks by recording the request metrics and
// logging errors and slow requests.
func (in *Instrumenter) OnRequestFinish(ctx context.Context, rc *RequestContext, out *Outcome) error {
	endErr := in.metrics.RecordRequestEnd(rc.Method, rc.Route)

	obs := metrics.RequestObservation{
		Method:       rc.Method,
		Route:        rc.Route,
		StatusCode:   out.StatusCode,
		Duration:     out.Duration,
		RequestSize:  out.RequestSize,
		ResponseSize: out.ResponseSize,
	}
	if out.Error != nil {
		obs.ErrorType = out.Error.Kind
		obs.ErrorMessage = out.Error.Message
		in.logger.WarnContext(ctx, fmt.Sprintf("API Error [%s %s]", rc.Method, rc.Route),
			"status", out.StatusCode,
			"duration_ms", out.Duration.Milliseconds(),
			"error_type", out.Error.Kind,
			"aborted", out.Aborted,
		)
	}
	recordErr := in.metrics.RecordHTTPRequest(obs)

	if threshold := in.SlowRequestThreshold(); threshold > 0 && out.Duration > threshold {
		in.logger.WarnContext(ctx, fmt.Sprintf("Slow API [%s %s]", rc.Method, rc.Route),
			"duration_ms", out.Duration.Milliseconds(),
			"status", out.StatusCode,
		)
	}

	return errors.Join(endErr, recordErr)
}
