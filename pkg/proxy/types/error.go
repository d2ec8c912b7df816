package types

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body beacon writes for errors it generates
// itself. The error/message shape is the one the error classifier reads,
// so these responses are labelled like application errors.
//
// Example:
//
//	{"statusCode": 502, "error": "Bad Gateway", "message": "upstream unavailable"}
type ErrorResponse struct {
	// StatusCode repeats the HTTP status code.
	StatusCode int `json:"statusCode"`

	// Error is the status text, used as the error kind.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// NewErrorResponse creates an error response for status.
func NewErrorResponse(status int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	}
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, message)
}

// NewBadGatewayError creates an error response for upstream failures (502).
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadGateway, message)
}

// NewGatewayTimeoutError creates an error response for upstream timeouts (504).
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusGatewayTimeout, message)
}

// NewNotFoundError creates an error response for unknown routes (404).
func NewNotFoundError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, message)
}

// Write encodes the response with its status code.
func (e *ErrorResponse) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)

	// Encode error response (ignore encoding errors at this point)
	_ = json.NewEncoder(w).Encode(e)
}
