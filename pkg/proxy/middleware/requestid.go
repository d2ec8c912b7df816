package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"storefront/beacon/pkg/telemetry/logging"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied IDs; longer ones are replaced.
const maxRequestIDLength = 128

// RequestID makes sure every request has an ID. A usable client ID is kept;
// otherwise a UUID is generated and set on the inbound headers, so the
// upstream application sees the same ID as beacon's logs and the client.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// GetRequestID returns the ID assigned by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	return logging.GetRequestID(ctx)
}
