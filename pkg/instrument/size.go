package instrument

import (
	"net/http"
	"strconv"
	"strings"
)

// declaredRequestSize returns the request's Content-Length, or -1 when the
// client did not declare one.
func declaredRequestSize(r *http.Request) int64 {
	if n, ok := parseContentLength(r.Header.Get("Content-Length")); ok {
		return n
	}
	if r.ContentLength > 0 {
		return r.ContentLength
	}
	return -1
}

// requestSize prefers the declared length and falls back to the bytes the
// handler actually read.
func requestSize(declared, read int64) int64 {
	if declared >= 0 {
		return declared
	}
	return read
}

// responseSize prefers the Content-Length the handler sent. Otherwise the
// size of a fully buffered body is used. Streamed responses without a
// Content-Length are recorded as 0.
func responseSize(resp recordedResponse) int64 {
	if n, ok := parseContentLength(resp.contentLength); ok {
		return n
	}
	if resp.streamed || resp.hijacked {
		return 0
	}
	return resp.written
}

func parseContentLength(v string) (int64, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
