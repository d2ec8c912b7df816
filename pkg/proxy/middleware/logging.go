package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type startTimeKey struct{}

// statusRecorder remembers the status code and body size of a response for
// the access log line.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach flush and hijack support.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Flush forwards to the underlying writer so streamed upstream responses
// are not buffered.
func (sr *statusRecorder) Flush() {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	_ = http.NewResponseController(sr.ResponseWriter).Flush()
}

// level maps a response status to the severity of its access log line.
func level(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// AccessLog returns middleware writing one structured line per request to
// logger, or to the default logger when logger is nil. The request ID is
// added by the logging package's context handler.
//
//	{"level":"WARN","msg":"request completed","method":"GET",
//	 "path":"/api/products/42","status":404,"bytes":61,"latency_ms":3,
//	 "request_id":"550e8400-e29b-41d4-a716-446655440000"}
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger
			if log == nil {
				log = slog.Default()
			}

			start := time.Now()
			ctx := context.WithValue(r.Context(), startTimeKey{}, start)
			rec := &statusRecorder{ResponseWriter: w}

			log.DebugContext(ctx, "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			log.Log(ctx, level(status), "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.bytes,
				"latency_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// GetStartTime returns when AccessLog started handling the request, or the
// zero time outside of it.
func GetStartTime(ctx context.Context) time.Time {
	start, _ := ctx.Value(startTimeKey{}).(time.Time)
	return start
}
