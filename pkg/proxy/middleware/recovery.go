package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"storefront/beacon/pkg/proxy/types"
)

const panicMessage = "An internal error occurred. Please try again later."

// Recover returns middleware that turns a handler panic into a JSON 500
// response. The panic value and stack go to logger (or the default logger
// when nil) and never to the client.
//
// http.ErrAbortHandler is re-raised so net/http aborts the response
// silently.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				switch p {
				case nil:
					return
				case http.ErrAbortHandler:
					panic(p)
				}

				log := logger
				if log == nil {
					log = slog.Default()
				}
				log.ErrorContext(r.Context(), "panic in handler",
					"error", p,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				types.NewServerError(panicMessage).Write(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
