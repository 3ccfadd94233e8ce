package router

import (
	"fmt"
	"net/http"
)

// HTTPError represents an HTTP error with a status code and message.
// When an HTTPError reaches the engine's terminal handler (directly returned
// from a handler or propagated through the error-layer chain unconsumed), the
// response uses its status code and message instead of the generic 500.
type HTTPError struct {
	StatusCode int    // HTTP status code (e.g., 400, 404, 500)
	Message    string // Error message to be sent in the response body
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// NewHTTPError creates a new HTTPError with the specified status code and message.
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// ErrNotFound is the synthesized error for a request no layer matched. The
// engine sets it as the pending dispatch error after the scan exhausts, so a
// registered NotFound handler (or the default terminal handler) reports it.
var ErrNotFound = NewHTTPError(http.StatusNotFound, "404 page not found")
