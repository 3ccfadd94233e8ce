package router

import (
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/trailmux/trailmux/pkg/codec"
	"github.com/trailmux/trailmux/pkg/pattern"
)

// Context carries the per-request dispatch state: the remaining path to
// match, the parameters accumulated across nested routers, the pending
// dispatch error, and the continuation for the layer currently running.
//
// A Context is created when a request enters the engine and is owned
// exclusively by that request's dispatch. The engine never runs two handlers
// of the same request concurrently; a handler may block for as long as it
// likes (the engine imposes no implicit timeout) and other requests proceed
// on their own goroutines meanwhile.
type Context struct {
	// Request is the incoming request. Middleware that stores values in the
	// request context replaces this field with a derived request, the same
	// way it would re-wrap *http.Request in a plain net/http chain.
	Request *http.Request

	writer *responseWriter
	logger *zap.Logger

	fullPath string
	path     string
	params   pattern.Params
	query    url.Values

	err    error
	nextFn func() error
}

func newContext(w http.ResponseWriter, req *http.Request, path string, logger *zap.Logger) *Context {
	return &Context{
		Request:  req,
		writer:   &responseWriter{ResponseWriter: w, statusCode: http.StatusOK},
		logger:   logger,
		fullPath: path,
		path:     path,
		query:    req.URL.Query(),
	}
}

// Next resumes dispatch at the next layer and returns once downstream either
// terminated the exchange or exhausted every router. Code after the Next call
// runs on the way back out, which is how around-style middleware observes the
// response. The return value is the pending dispatch error left unconsumed by
// downstream, usually nil.
//
// A handler that returns nil without calling Next and without writing a
// response continues implicitly; Next exists for handlers that need to run
// code after downstream completes. Calling Next a second time within the same
// handler turn is a no-op.
func (c *Context) Next() error {
	fn := c.nextFn
	if fn == nil {
		return nil
	}
	c.nextFn = nil
	return fn()
}

// Method returns the request method.
func (c *Context) Method() string { return c.Request.Method }

// FullPath returns the cleaned request path as received by the engine.
func (c *Context) FullPath() string { return c.fullPath }

// Path returns the remaining path being matched inside the current router.
// At the top level it equals FullPath; inside a mounted sub-router the
// consumed mount prefix has been stripped.
func (c *Context) Path() string { return c.path }

// Param returns the value of a captured path parameter. For a name bound by
// both an enclosing mount and the current pattern, the innermost value wins.
func (c *Context) Param(name string) string { return c.params.ByName(name) }

// Params returns the parameters accumulated so far, outermost first. The
// slice is only valid during the current handler's turn.
func (c *Context) Params() pattern.Params { return c.params }

// Query returns the first query-string value for the given key.
func (c *Context) Query(name string) string { return c.query.Get(name) }

// QueryValues returns the parsed query string. It is populated once, before
// dispatch begins.
func (c *Context) QueryValues() url.Values { return c.query }

// Logger returns the engine logger.
func (c *Context) Logger() *zap.Logger { return c.logger }

// Err returns the pending dispatch error, non-nil only while error-role
// layers are being sought.
func (c *Context) Err() error { return c.err }

// Writer returns the underlying response writer. Response state written
// through the returned writer directly (rather than through Context helpers)
// is still observed by Written and StatusCode.
func (c *Context) Writer() http.ResponseWriter { return c.writer }

// SetWriter swaps the destination the response is written to, keeping the
// status-capturing wrapper in place, and returns the previous destination.
// Middleware such as the timeout layer interposes a guarded writer by
// wrapping the returned destination, never the Context writer itself.
func (c *Context) SetWriter(w http.ResponseWriter) http.ResponseWriter {
	prev := c.writer.ResponseWriter
	c.writer.ResponseWriter = w
	return prev
}

// Written reports whether the response header has been written, i.e. whether
// the exchange has been terminated.
func (c *Context) Written() bool { return c.writer.wroteHeader }

// StatusCode returns the response status code, meaningful once Written
// reports true.
func (c *Context) StatusCode() int { return c.writer.statusCode }

// BytesWritten returns the number of response body bytes written so far.
func (c *Context) BytesWritten() int64 { return c.writer.bytesWritten }

// Status writes the response header with the given status code and no body,
// terminating the exchange.
func (c *Context) Status(code int) error {
	c.writer.WriteHeader(code)
	return nil
}

// String writes a text/plain response with the given status code,
// terminating the exchange.
func (c *Context) String(code int, format string, args ...any) error {
	c.writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.writer.WriteHeader(code)
	_, err := fmt.Fprintf(c.writer, format, args...)
	return err
}

// JSON writes a JSON response with the given status code, terminating the
// exchange.
func (c *Context) JSON(code int, v any) error {
	return jsonCodec.Encode(c.writer, code, v)
}

// jsonCodec is the codec behind Context.JSON and Bind.
var jsonCodec = codec.NewJSONCodec[any, any]()

// Bind decodes the request body as JSON into a value of type T.
func Bind[T any](c *Context) (T, error) {
	var cd codec.JSONCodec[T, any]
	return cd.Decode(c.Request)
}

// responseWriter wraps http.ResponseWriter and captures the status code and
// bytes written, which is how the engine knows a handler terminated the
// exchange.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

// WriteHeader captures the status code and calls the underlying
// ResponseWriter.WriteHeader.
func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = statusCode
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Write captures the number of bytes written and calls the underlying
// ResponseWriter.Write.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush calls the underlying ResponseWriter.Flush if it implements
// http.Flusher.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
