package instrument

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/beacon/pkg/config"
	"storefront/beacon/pkg/telemetry/metrics"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type testEnv struct {
	inst     *Instrumenter
	registry *metrics.Registry
	metrics  *metrics.HTTPMetrics
	logs     *syncBuffer
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	reg := metrics.NewRegistry()
	m, err := metrics.NewHTTPMetrics(&config.NewDefault().Telemetry.Metrics, reg)
	if err != nil {
		t.Fatalf("NewHTTPMetrics: %v", err)
	}

	logs := &syncBuffer{}
	opts.Metrics = m
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	inst, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{inst: inst, registry: reg, metrics: m, logs: logs}
}

func (e *testEnv) series(name string, labels ...string) (metrics.SeriesSnapshot, bool) {
	for _, fam := range e.registry.Snapshot() {
		if fam.Name != name {
			continue
		}
		for _, s := range fam.Series {
			if strings.Join(s.LabelValues, "|") == strings.Join(labels, "|") {
				return s, true
			}
		}
	}
	return metrics.SeriesSnapshot{}, false
}

func (e *testEnv) familySize(name string) int {
	for _, fam := range e.registry.Snapshot() {
		if fam.Name == name {
			return len(fam.Series)
		}
	}
	return 0
}

func (e *testEnv) serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.inst.Middleware(h).ServeHTTP(w, r)
	return w
}

// TestMiddleware_RecordsRequest tests that a successful request is recorded
// in every request family.
func TestMiddleware_RecordsRequest(t *testing.T) {
	env := newTestEnv(t, Options{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/products/42?x=1", strings.NewReader("abc"))
	w := env.serve(handler, req)

	if w.Code != http.StatusCreated || w.Body.String() != "hello" {
		t.Fatalf("response altered: %d %q", w.Code, w.Body.String())
	}

	total, ok := env.series(metrics.HTTPRequestsTotalName, "POST", "/products/:id", "201")
	if !ok || total.Value != 1 {
		t.Errorf("http_requests_total = %+v, %v", total, ok)
	}
	dur, ok := env.series(metrics.HTTPRequestDurationName, "POST", "/products/:id", "201")
	if !ok || dur.Count != 1 || dur.Sum < 0 {
		t.Errorf("http_request_duration_ms = %+v, %v", dur, ok)
	}
	resp, _ := env.series(metrics.HTTPResponseSizeName, "POST", "/products/:id", "201")
	if resp.Count != 1 || resp.Sum != 5 {
		t.Errorf("http_response_size_bytes count=%d sum=%v, want 1 and 5", resp.Count, resp.Sum)
	}
	reqSize, _ := env.series(metrics.HTTPRequestSizeName, "POST", "/products/:id")
	if reqSize.Count != 1 || reqSize.Sum != 3 {
		t.Errorf("http_request_size_bytes count=%d sum=%v, want 1 and 3", reqSize.Count, reqSize.Sum)
	}
	if n := env.familySize(metrics.HTTPErrorsTotalName); n != 0 {
		t.Errorf("http_errors_total has %d series, want 0", n)
	}
	if v := env.metrics.InProgress("POST", "/products/:id"); v != 0 {
		t.Errorf("requests_in_progress = %v, want 0", v)
	}
}

// TestMiddleware_InProgressDuringRequest tests that the in-progress gauge
// is raised while the handler runs.
func TestMiddleware_InProgressDuringRequest(t *testing.T) {
	env := newTestEnv(t, Options{})

	var during float64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = env.metrics.InProgress("GET", "/categories")
	})
	env.serve(handler, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	if during != 1 {
		t.Errorf("in progress during request = %v, want 1", during)
	}
	if after := env.metrics.InProgress("GET", "/categories"); after != 0 {
		t.Errorf("in progress after request = %v, want 0", after)
	}
}

// TestMiddleware_ErrorResponse tests error classification of a GraphQL
// error envelope.
func TestMiddleware_ErrorResponse(t *testing.T) {
	env := newTestEnv(t, Options{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors":[{"message":"Not found","extensions":{"code":"NOT_FOUND"}}]}`)
	})

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{}`))
	req.Header.Set("X-Apollo-Operation-Name", "GetProduct")
	env.serve(handler, req)

	errs, ok := env.series(metrics.HTTPErrorsTotalName, "POST", "/graphql/GetProduct", "404", "NOT_FOUND")
	if !ok || errs.Value != 1 {
		t.Errorf("http_errors_total = %+v, %v", errs, ok)
	}
	detail, ok := env.series(metrics.HTTPErrorDetailsName, "POST", "/graphql/GetProduct", "404", "Not found")
	if !ok || detail.Value != 1 {
		t.Errorf("http_error_details = %+v, %v", detail, ok)
	}

	logs := env.logs.String()
	if !strings.Contains(logs, "API Error [POST /graphql/GetProduct]") {
		t.Errorf("missing API Error log line in %q", logs)
	}
	if !strings.Contains(logs, "error_type=NOT_FOUND") {
		t.Errorf("missing error_type attribute in %q", logs)
	}
}

// TestMiddleware_ErrorMessageTruncated tests that error messages used as
// label values are capped.
func TestMiddleware_ErrorMessageTruncated(t *testing.T) {
	env := newTestEnv(t, Options{})
	long := strings.Repeat("m", 300)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Bad Request","message":"`+long+`"}`)
	})
	env.serve(handler, httptest.NewRequest(http.MethodGet, "/api/search", nil))

	if _, ok := env.series(metrics.HTTPErrorDetailsName, "GET", "/search", "400", long[:metrics.MaxErrorMessageLength]); !ok {
		t.Error("expected error detail with message truncated to 100 characters")
	}
}

// TestMiddleware_Exempt tests that telemetry endpoints are not instrumented.
func TestMiddleware_Exempt(t *testing.T) {
	env := newTestEnv(t, Options{})
	called := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	})

	for _, path := range []string{"/metrics", "/health", "/health/ready", "/internal/metrics?x=1"} {
		env.serve(handler, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if called != 4 {
		t.Errorf("handler called %d times, want 4", called)
	}
	if n := env.familySize(metrics.HTTPRequestsTotalName); n != 0 {
		t.Errorf("http_requests_total has %d series, want 0", n)
	}
	if n := env.familySize(metrics.RequestsInProgressName); n != 0 {
		t.Errorf("requests_in_progress has %d series, want 0", n)
	}
}

// TestMiddleware_ConcurrentRequests tests that N concurrent requests are
// counted exactly N times.
func TestMiddleware_ConcurrentRequests(t *testing.T) {
	env := newTestEnv(t, Options{})
	handler := env.inst.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	const n = 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/products/"+strings.Repeat("1", i%5+1), nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}(i)
	}
	wg.Wait()

	total, _ := env.series(metrics.HTTPRequestsTotalName, "GET", "/products/:id", "200")
	if total.Value != n {
		t.Errorf("http_requests_total = %v, want %d", total.Value, n)
	}
	dur, _ := env.series(metrics.HTTPRequestDurationName, "GET", "/products/:id", "200")
	if dur.Count != n {
		t.Errorf("duration count = %d, want %d", dur.Count, n)
	}
	if v := env.metrics.InProgress("GET", "/products/:id"); v != 0 {
		t.Errorf("requests_in_progress = %v, want 0", v)
	}
}

// TestMiddleware_Panic tests that a panicking handler is still recorded and
// the panic reaches outer middleware.
func TestMiddleware_Panic(t *testing.T) {
	env := newTestEnv(t, Options{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	func() {
		defer func() {
			if p := recover(); p != "boom" {
				t.Errorf("recovered %v, want boom", p)
			}
		}()
		env.serve(handler, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	}()

	total, ok := env.series(metrics.HTTPRequestsTotalName, "GET", "/cart", "500")
	if !ok || total.Value != 1 {
		t.Errorf("http_requests_total = %+v, %v", total, ok)
	}
	if _, ok := env.series(metrics.HTTPErrorsTotalName, "GET", "/cart", "500", "HTTP_500"); !ok {
		t.Error("expected HTTP_500 error series")
	}
	if v := env.metrics.InProgress("GET", "/cart"); v != 0 {
		t.Errorf("requests_in_progress = %v, want 0", v)
	}
}

// TestMiddleware_ClientAbort tests that a request whose client disconnects
// completes even while the handler is still blocked.
func TestMiddleware_ClientAbort(t *testing.T) {
	env := newTestEnv(t, Options{})

	started := make(chan struct{})
	release := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	})

	srv := httptest.NewServer(env.inst.Middleware(handler))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/slow", nil)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
		}
	}()

	<-started
	if v := env.metrics.InProgress("GET", "/slow"); v != 1 {
		t.Errorf("in progress while blocked = %v, want 1", v)
	}
	cancel()
	<-done

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if total, ok := env.series(metrics.HTTPRequestsTotalName, "GET", "/slow", "499"); ok && total.Value == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	total, ok := env.series(metrics.HTTPRequestsTotalName, "GET", "/slow", "499")
	if !ok || total.Value != 1 {
		t.Fatalf("http_requests_total{status_code=499} = %+v, %v", total, ok)
	}
	if v := env.metrics.InProgress("GET", "/slow"); v != 0 {
		t.Errorf("in progress after abort = %v, want 0", v)
	}
}

type recordingHooks struct {
	mu       sync.Mutex
	starts   int
	finishes int
	last     *Outcome
	fail     bool
}

func (h *recordingHooks) OnRequestStart(_ context.Context, _ *RequestContext) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
	if h.fail {
		return errors.New("start failed")
	}
	return nil
}

func (h *recordingHooks) OnRequestFinish(_ context.Context, _ *RequestContext, out *Outcome) error {
	h.mu.Lock()
	h.finishes++
	h.last = out
	fail := h.fail
	h.mu.Unlock()
	if fail {
		panic("finish exploded")
	}
	return nil
}

// TestMiddleware_Hooks tests that extra hooks fire once per request and
// that their failures never reach the client.
func TestMiddleware_Hooks(t *testing.T) {
	hooks := &recordingHooks{fail: true}
	env := newTestEnv(t, Options{Hooks: []Hooks{hooks}})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	w := env.serve(handler, httptest.NewRequest(http.MethodPut, "/api/cart/items/3", nil))

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
	if hooks.starts != 1 || hooks.finishes != 1 {
		t.Errorf("starts=%d finishes=%d, want 1 and 1", hooks.starts, hooks.finishes)
	}
	if hooks.last == nil || hooks.last.StatusCode != http.StatusAccepted {
		t.Errorf("outcome = %+v", hooks.last)
	}
	if !strings.Contains(env.logs.String(), "Error recording metrics") {
		t.Error("expected hook failures to be logged")
	}
	if total, _ := env.series(metrics.HTTPRequestsTotalName, "PUT", "/cart/items/:id", "202"); total.Value != 1 {
		t.Errorf("built-in hook did not record: %+v", total)
	}
}

// TestMiddleware_ResponseSize tests the response size fallbacks.
func TestMiddleware_ResponseSize(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    float64
	}{
		{
			name: "content length header",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Length", "42")
				_, _ = w.Write(make([]byte, 42))
			},
			want: 42,
		},
		{
			name: "buffered body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("abc"))
				_, _ = w.Write([]byte("def"))
			},
			want: 6,
		},
		{
			name: "streamed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("chunk"))
				w.(http.Flusher).Flush()
				_, _ = w.Write([]byte("chunk"))
			},
			want: 0,
		},
		{
			name:    "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			env.serve(tt.handler, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

			s, ok := env.series(metrics.HTTPResponseSizeName, "GET", "/feed", "200")
			if !ok || s.Sum != tt.want {
				t.Errorf("response size = %v (found %v), want %v", s.Sum, ok, tt.want)
			}
		})
	}
}

// TestMiddleware_RequestSizeWithoutContentLength tests that the bytes read
// by the handler are used when no length was declared.
func TestMiddleware_RequestSizeWithoutContentLength(t *testing.T) {
	env := newTestEnv(t, Options{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
	})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", io.NopCloser(strings.NewReader("0123456789")))
	req.ContentLength = -1
	req.Header.Del("Content-Length")
	env.serve(handler, req)

	s, _ := env.series(metrics.HTTPRequestSizeName, "POST", "/upload")
	if s.Sum != 10 {
		t.Errorf("request size = %v, want 10", s.Sum)
	}
}

// TestMiddleware_SlowRequestLogged tests the slow request log line and its
// runtime threshold.
func TestMiddleware_SlowRequestLogged(t *testing.T) {
	env := newTestEnv(t, Options{SlowRequestThreshold: time.Hour})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Millisecond)
	})

	env.serve(handler, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	if strings.Contains(env.logs.String(), "Slow API") {
		t.Fatal("request below threshold logged as slow")
	}

	env.inst.SetSlowRequestThreshold(time.Millisecond)
	if got := env.inst.SlowRequestThreshold(); got != time.Millisecond {
		t.Fatalf("SlowRequestThreshold() = %v", got)
	}
	env.serve(handler, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	if !strings.Contains(env.logs.String(), "Slow API [GET /reports]") {
		t.Errorf("missing slow request log in %q", env.logs.String())
	}
}

// TestMiddleware_OperationFromBody tests GraphQL operation discovery from
// the request body.
func TestMiddleware_OperationFromBody(t *testing.T) {
	env := newTestEnv(t, Options{OperationFromBody: true})

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
	})

	body := `{"query":"query ListProducts { products { id } }"}`
	env.serve(handler, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body)))

	if seen != body {
		t.Errorf("handler saw body %q, want %q", seen, body)
	}
	if _, ok := env.series(metrics.HTTPRequestsTotalName, "POST", "/graphql/ListProducts", "200"); !ok {
		t.Error("expected route /graphql/ListProducts")
	}
}

// TestMiddleware_Tracing tests that a server span is recorded per request.
func TestMiddleware_Tracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	env := newTestEnv(t, Options{Tracer: tp.Tracer("test")})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	env.serve(handler, httptest.NewRequest(http.MethodGet, "/api/products/9", nil))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "GET /products/:id" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	var status int64
	for _, kv := range spans[0].Attributes() {
		if kv.Key == attribute.Key("http.status_code") {
			status = kv.Value.AsInt64()
		}
	}
	if status != 503 {
		t.Errorf("http.status_code = %d, want 503", status)
	}
}

func TestNew_RequiresMetrics(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without metrics")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.NewDefault()
	m := metrics.MustNewHTTPMetrics(&cfg.Telemetry.Metrics, metrics.NewRegistry())

	inst, err := NewFromConfig(&cfg.Instrumentation, m, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !inst.Exempt("/metrics") || !inst.Exempt("/health/ready") || inst.Exempt("/products") {
		t.Error("default exemptions not applied")
	}
	if inst.SlowRequestThreshold() != time.Second {
		t.Errorf("threshold = %v, want 1s", inst.SlowRequestThreshold())
	}
}
