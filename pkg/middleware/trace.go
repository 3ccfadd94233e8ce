package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/trailmux/trailmux/pkg/router"
)

// traceIDKey is the context key for the per-request trace ID.
type traceIDKey struct{}

// Trace generates a unique trace ID for each request and stores it in the
// request context, so log lines across layers can be correlated.
func Trace() router.Handler {
	return func(c *router.Context) error {
		traceID := uuid.New().String()
		ctx := context.WithValue(c.Request.Context(), traceIDKey{}, traceID)
		c.Request = c.Request.WithContext(ctx)
		return nil
	}
}

// GetTraceID extracts the trace ID from the request context.
// Returns an empty string if no trace ID is found.
func GetTraceID(r *http.Request) string {
	if traceID, ok := r.Context().Value(traceIDKey{}).(string); ok {
		return traceID
	}
	return ""
}

// GetTraceIDFromContext extracts the trace ID from a context.
// Returns an empty string if no trace ID is found.
func GetTraceIDFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey{}).(string); ok {
		return traceID
	}
	return ""
}
