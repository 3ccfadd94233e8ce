// Package middleware provides a collection of dispatch-layer middleware for
// the trailmux engine. Every middleware is an ordinary normal-role handler:
// it reads or decorates the request context and either continues dispatch or
// terminates the exchange itself.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trailmux/trailmux/pkg/router"
)

// Logging logs each request after downstream dispatch completes, leveled by
// outcome: server errors at Error, client errors at Warn, slow requests at
// Warn, everything else at Debug.
func Logging(logger *zap.Logger) router.Handler {
	return func(c *router.Context) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.StatusCode()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}

		switch {
		case status >= 500:
			logger.Error("Server error", fields...)
		case status >= 400:
			logger.Warn("Client error", fields...)
		case duration > time.Second:
			logger.Warn("Slow request", fields...)
		default:
			logger.Debug("Request", fields...)
		}

		return err
	}
}

// MaxBodySize limits the size of the request body for all downstream layers.
func MaxBodySize(maxSize int64) router.Handler {
	return func(c *router.Context) error {
		c.Request.Body = http.MaxBytesReader(c.Writer(), c.Request.Body, maxSize)
		return nil
	}
}

// Timeout races downstream dispatch against a deadline. On expiry it writes
// 408 and abandons the downstream goroutine, which keeps running against a
// mutex-guarded writer whose writes are serialized with the timeout
// response. This is ordinary layer behavior, not an engine guarantee: the
// engine itself imposes no timeout of any kind.
func Timeout(d time.Duration, logger *zap.Logger) router.Handler {
	return func(c *router.Context) error {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		// The guarded writer wraps the previous destination, not the Context
		// writer, so writes from the timeout turn and from an abandoned
		// downstream goroutine serialize on the same mutex without the two
		// wrappers pointing at each other.
		var mu sync.Mutex
		guarded := &mutexResponseWriter{mu: &mu}
		guarded.ResponseWriter = c.SetWriter(guarded)

		done := make(chan error, 1)
		go func() {
			done <- c.Next()
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			logger.Error("Request timed out",
				zap.String("method", c.Method()),
				zap.String("path", c.FullPath()),
				zap.Duration("timeout", d),
				zap.String("client_ip", c.Request.RemoteAddr),
			)
			return c.String(http.StatusRequestTimeout, "Request Timeout")
		}
	}
}

// mutexResponseWriter serializes writes from the abandoned downstream
// goroutine and the timeout response.
type mutexResponseWriter struct {
	http.ResponseWriter
	mu *sync.Mutex
}

// WriteHeader acquires the mutex and calls the underlying WriteHeader.
func (rw *mutexResponseWriter) WriteHeader(statusCode int) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Write acquires the mutex and calls the underlying Write.
func (rw *mutexResponseWriter) Write(b []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.ResponseWriter.Write(b)
}

// Flush acquires the mutex and calls the underlying Flush if available.
func (rw *mutexResponseWriter) Flush() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
