package instrument

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
)

// responseRecorder wraps the ResponseWriter for one request. It remembers
// the status code, the Content-Length that was sent, the number of body
// bytes written and the first maxCapture bytes of the body.
//
// All state is guarded by mu because the completion path may read it from
// a different goroutine when the client disconnects.
type responseRecorder struct {
	http.ResponseWriter

	mu            sync.Mutex
	status        int
	wroteHeader   bool
	contentLength string
	written       int64
	streamed      bool
	hijacked      bool
	capture       []byte
	maxCapture    int
}

// recordedResponse is a consistent copy of a recorder's state.
type recordedResponse struct {
	status        int
	wroteHeader   bool
	contentLength string
	written       int64
	streamed      bool
	hijacked      bool
	body          []byte
}

func newResponseRecorder(w http.ResponseWriter, maxCapture int) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, maxCapture: maxCapture}
}

// WriteHeader records the final status code. Informational 1xx headers are
// forwarded without being treated as the final status.
func (rw *responseRecorder) WriteHeader(code int) {
	rw.mu.Lock()
	if !rw.wroteHeader && (code < 100 || code > 199 || code == http.StatusSwitchingProtocols) {
		rw.commitLocked(code)
	}
	rw.mu.Unlock()

	rw.ResponseWriter.WriteHeader(code)
}

// Write records the body bytes and keeps the head of the body for error
// classification.
func (rw *responseRecorder) Write(b []byte) (int, error) {
	rw.mu.Lock()
	if !rw.wroteHeader {
		rw.commitLocked(http.StatusOK)
	}
	rw.mu.Unlock()

	n, err := rw.ResponseWriter.Write(b)

	rw.mu.Lock()
	rw.written += int64(n)
	if room := rw.maxCapture - len(rw.capture); room > 0 && n > 0 {
		rw.capture = append(rw.capture, b[:min(n, room)]...)
	}
	rw.mu.Unlock()

	return n, err
}

// commitLocked must be called with mu held.
func (rw *responseRecorder) commitLocked(code int) {
	rw.status = code
	rw.wroteHeader = true
	rw.contentLength = rw.ResponseWriter.Header().Get("Content-Length")
}

// Flush marks the response as streamed and flushes the underlying writer.
func (rw *responseRecorder) Flush() {
	rw.mu.Lock()
	if !rw.wroteHeader {
		rw.commitLocked(http.StatusOK)
	}
	rw.streamed = true
	rw.mu.Unlock()

	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection over to the handler.
func (rw *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("instrument: underlying ResponseWriter does not support hijacking")
	}

	conn, buf, err := h.Hijack()
	if err == nil {
		rw.mu.Lock()
		rw.hijacked = true
		if !rw.wroteHeader {
			rw.status = http.StatusSwitchingProtocols
			rw.wroteHeader = true
		}
		rw.mu.Unlock()
	}
	return conn, buf, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// CapturedBody returns a copy of the captured head of the response body.
func (rw *responseRecorder) CapturedBody() []byte {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return append([]byte(nil), rw.capture...)
}

func (rw *responseRecorder) snapshot() recordedResponse {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return recordedResponse{
		status:        rw.status,
		wroteHeader:   rw.wroteHeader,
		contentLength: rw.contentLength,
		written:       rw.written,
		streamed:      rw.streamed,
		hijacked:      rw.hijacked,
		body:          append([]byte(nil), rw.capture...),
	}
}

// countingBody counts the request body bytes read by the handler.
type countingBody struct {
	io.ReadCloser
	n atomic.Int64
}

func newCountingBody(body io.ReadCloser) *countingBody {
	if body == nil {
		body = http.NoBody
	}
	return &countingBody{ReadCloser: body}
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n.Add(int64(n))
	return n, err
}

// Count returns the number of bytes read so far.
func (b *countingBody) Count() int64 {
	return b.n.Load()
}
