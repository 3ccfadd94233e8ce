package router

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Config defines the engine configuration.
type Config struct {
	// Logger for all engine operations. A no-op logger is used when nil.
	Logger *zap.Logger

	// CaseInsensitive folds literal pattern segments during matching.
	CaseInsensitive bool

	// Strict disables trailing-slash equivalence.
	Strict bool

	// NotFound runs when the scan exhausts every router with no pending
	// error. If it writes a response, that response stands; otherwise the
	// default not-found response is written. When nil, the default is used
	// directly.
	NotFound Handler

	// EnableAccessLog emits a leveled per-request log line after each
	// exchange completes.
	EnableAccessLog bool
}

// Engine is the top-level dispatcher: the application's root Router plus the
// default terminal handlers (no match ends in 404, an unconsumed error in a
// failure response carrying the error's message). It implements
// http.Handler.
type Engine struct {
	*Router

	logger     *zap.Logger
	notFound   Handler
	accessLog  bool
	wg         sync.WaitGroup
	shutdown   bool
	shutdownMu sync.RWMutex
}

// NewEngine creates an Engine with the given configuration. Routes are
// normally registered during a setup phase before serving begins; appending
// later is permitted under the visibility policy documented on addLayer.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	root := New()
	root.opts.CaseInsensitive = cfg.CaseInsensitive
	root.opts.Strict = cfg.Strict

	return &Engine{
		Router:    root,
		logger:    logger,
		notFound:  cfg.NotFound,
		accessLog: cfg.EnableAccessLog,
	}
}

// ServeHTTP implements the http.Handler interface. It runs the dispatch
// state machine for one request: scan, handler turns, error diverts, and
// finally the built-in terminal handlers for the no-route and unconsumed
// error cases.
func (e *Engine) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	e.wg.Add(1)

	e.shutdownMu.RLock()
	isShutdown := e.shutdown
	e.shutdownMu.RUnlock()
	if isShutdown {
		e.wg.Done()
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	defer e.wg.Done()

	start := time.Now()
	path := httprouter.CleanPath(req.URL.Path)
	c := newContext(w, req, path, e.logger)

	err := e.Router.dispatch(c, func() error { return c.err })

	if !c.Written() {
		if err == nil {
			err = ErrNotFound
			c.err = err
			if e.notFound != nil {
				// A NotFound override gets first refusal; its own failure
				// falls through to the terminal handler.
				if nfErr := e.notFound(c); nfErr != nil {
					err = nfErr
				}
			}
		}
		if !c.Written() {
			e.writeError(c, err)
		}
	}

	if e.accessLog {
		e.logAccess(c, time.Since(start))
	}
}

// writeError is the engine's built-in terminal handler. An HTTPError in the
// chain selects its own status code and message; anything else is reported
// as a server fault with the error's message.
func (e *Engine) writeError(c *Context, err error) {
	statusCode := http.StatusInternalServerError
	message := err.Error()

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		statusCode = httpErr.StatusCode
		message = httpErr.Message
	}

	if statusCode >= http.StatusInternalServerError {
		e.logger.Error("Unhandled dispatch error",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.fullPath),
		)
	}

	http.Error(c.writer, message, statusCode)
}

// logAccess emits the per-request log line, leveled by outcome.
func (e *Engine) logAccess(c *Context, duration time.Duration) {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.fullPath),
		zap.Int("status", c.StatusCode()),
		zap.Duration("duration", duration),
		zap.Int64("bytes", c.BytesWritten()),
		zap.String("remote_addr", c.Request.RemoteAddr),
	}

	switch {
	case c.StatusCode() >= 500:
		e.logger.Error("Server error", fields...)
	case c.StatusCode() >= 400:
		e.logger.Warn("Client error", fields...)
	case duration > time.Second:
		e.logger.Warn("Slow request", fields...)
	default:
		e.logger.Debug("Request", fields...)
	}
}

// Shutdown gracefully shuts down the engine. New requests are refused with
// 503 and the call blocks until in-flight requests complete or the context
// is canceled.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.shutdownMu.Lock()
	e.shutdown = true
	e.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
