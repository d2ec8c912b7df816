// Package middleware provides the HTTP middleware that wraps every request
// beacon serves, telemetry routes included.
//
// The server installs them in this order:
//
//	r.Use(middleware.Recover(logger))
//	r.Use(middleware.RequestID)
//	r.Use(middleware.AccessLog(logger))
//
// RequestID keeps a client-supplied X-Request-ID of up to 128 bytes and
// generates a UUID otherwise. The ID is stored through the logging package,
// so every log record of the request carries it, and it is echoed in the
// response and forwarded to the upstream application.
//
// AccessLog writes one structured line per request with its status, body
// size and latency, at error level for 5xx responses and warn level for 4xx.
//
// Recover converts a handler panic into a JSON 500 response:
//
//	{
//	  "statusCode": 500,
//	  "error": "Internal Server Error",
//	  "message": "An internal error occurred. Please try again later."
//	}
//
// Request instrumentation sits inside Recover, so a panicking request is
// still recorded with status 500 before the response is written.
package middleware
