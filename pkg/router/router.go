// Package router implements an ordered, sequential HTTP dispatch engine.
//
// A Router holds an append-only ordered sequence of layers; dispatch scans
// that sequence in registration order and runs the first eligible, matching
// layer, resuming the scan whenever a handler continues. Routers nest: a
// sub-router mounted at a path prefix is entered with the prefix stripped and
// its parameters merged, and dispatch pops back to the parent's saved
// position when the sub-router's layers are exhausted.
//
// Matching is deliberately sequential rather than best-match: middleware and
// terminal routes interleave freely, at the cost of O(n) scans and the
// accepted possibility that an earlier broad pattern shadows a later
// specific one.
package router

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/trailmux/trailmux/pkg/pattern"
)

// Router is an ordered, mutable collection of layers and mounted sub-routers.
// Registration appends; nothing is ever removed or reordered. Appending is
// safe while requests are in flight, with the visibility policy documented on
// addLayer.
type Router struct {
	mu     sync.RWMutex
	layers []*layer
	opts   pattern.Options
}

// Option configures a Router at construction.
type Option func(*Router)

// WithCaseInsensitive makes literal pattern segments match case-insensitively.
func WithCaseInsensitive() Option {
	return func(r *Router) { r.opts.CaseInsensitive = true }
}

// WithStrictSlash makes "/a" and "/a/" distinct paths.
func WithStrictSlash() Option {
	return func(r *Router) { r.opts.Strict = true }
}

// New creates an empty Router. Sub-routers intended for mounting should be
// built with the same options as their parent; options are per-router, not
// inherited through mounts.
func New(opts ...Option) *Router {
	r := &Router{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// addLayer appends a layer to the sequence.
//
// Visibility policy: a dispatch scan captures the layer slice and its length
// when it enters the router, so layers appended while that scan is in
// progress are not seen by it. Scans that enter afterwards see them. The
// append itself is mutex-guarded, so a concurrent scan never observes a
// partially written sequence.
func (r *Router) addLayer(l *layer) {
	r.mu.Lock()
	r.layers = append(r.layers, l)
	r.mu.Unlock()
}

func (r *Router) snapshot() []*layer {
	r.mu.RLock()
	ls := r.layers
	r.mu.RUnlock()
	return ls
}

func (r *Router) compile(pat string, prefix bool) *pattern.Pattern {
	opts := r.opts
	opts.Prefix = prefix
	return pattern.MustCompile(pat, opts)
}

// Use appends method-agnostic middleware layers matching every path.
// Each handler becomes its own layer, tried in the given order.
func (r *Router) Use(handlers ...Handler) {
	r.UsePath("/", handlers...)
}

// UsePath appends method-agnostic middleware layers matching paths under the
// given prefix. Parameters in the prefix are bound for the handler's turn,
// but the path is not stripped; only Mount strips.
func (r *Router) UsePath(prefix string, handlers ...Handler) {
	if len(handlers) == 0 {
		panic("router: UsePath requires at least one handler")
	}
	pat := r.compile(prefix, true)
	for _, h := range handlers {
		r.addLayer(&layer{pat: pat, handler: h})
	}
}

// UseError appends error-role layers matching every path. Error layers run
// only while a dispatch error is pending.
func (r *Router) UseError(handlers ...ErrorHandler) {
	r.UseErrorPath("/", handlers...)
}

// UseErrorPath appends error-role layers scoped to a path prefix.
func (r *Router) UseErrorPath(prefix string, handlers ...ErrorHandler) {
	if len(handlers) == 0 {
		panic("router: UseErrorPath requires at least one handler")
	}
	pat := r.compile(prefix, true)
	for _, h := range handlers {
		r.addLayer(&layer{pat: pat, errFn: h})
	}
}

// Handle appends terminal layers for the given method and exact path
// pattern. Registering the same (method, pattern) again appends more layers;
// duplicates are legal and run in registration order.
func (r *Router) Handle(method, pat string, handlers ...Handler) {
	if len(handlers) == 0 {
		panic("router: Handle requires at least one handler")
	}
	compiled := r.compile(pat, false)
	methods := methodSet(method)
	for _, h := range handlers {
		r.addLayer(&layer{methods: methods, pat: compiled, handler: h})
	}
}

// All appends terminal layers matching every method.
func (r *Router) All(pat string, handlers ...Handler) {
	if len(handlers) == 0 {
		panic("router: All requires at least one handler")
	}
	compiled := r.compile(pat, false)
	for _, h := range handlers {
		r.addLayer(&layer{pat: compiled, handler: h})
	}
}

// GET registers handlers for GET requests on the given pattern.
func (r *Router) GET(pat string, handlers ...Handler) { r.Handle(http.MethodGet, pat, handlers...) }

// POST registers handlers for POST requests on the given pattern.
func (r *Router) POST(pat string, handlers ...Handler) { r.Handle(http.MethodPost, pat, handlers...) }

// PUT registers handlers for PUT requests on the given pattern.
func (r *Router) PUT(pat string, handlers ...Handler) { r.Handle(http.MethodPut, pat, handlers...) }

// DELETE registers handlers for DELETE requests on the given pattern.
func (r *Router) DELETE(pat string, handlers ...Handler) {
	r.Handle(http.MethodDelete, pat, handlers...)
}

// PATCH registers handlers for PATCH requests on the given pattern.
func (r *Router) PATCH(pat string, handlers ...Handler) {
	r.Handle(http.MethodPatch, pat, handlers...)
}

// HEAD registers handlers for HEAD requests on the given pattern.
func (r *Router) HEAD(pat string, handlers ...Handler) { r.Handle(http.MethodHead, pat, handlers...) }

// OPTIONS registers handlers for OPTIONS requests on the given pattern.
func (r *Router) OPTIONS(pat string, handlers ...Handler) {
	r.Handle(http.MethodOptions, pat, handlers...)
}

// Mount binds a sub-router at a path prefix. The sub-router is referenced,
// not copied: layers registered on it after mounting take effect. When the
// prefix matches, dispatch recurses into the sub-router with the consumed
// segments stripped from the path and any prefix parameters merged.
func (r *Router) Mount(prefix string, sub *Router) {
	if sub == nil {
		panic("router: Mount requires a sub-router")
	}
	r.addLayer(&layer{pat: r.compile(prefix, true), sub: sub})
}

// dispatch scans r's layers for c, calling parent to resume the enclosing
// router once this one's layers are exhausted. The return value is the
// pending dispatch error left unconsumed when control unwinds.
func (r *Router) dispatch(c *Context, parent func() error) error {
	layers := r.snapshot()
	limit := len(layers)
	basePath := c.path
	baseParams := len(c.params)
	index := 0

	var next func() error
	next = func() error {
		for index < limit {
			// Reset to this router's view; a previous layer's bindings do
			// not leak to its siblings.
			c.path = basePath
			c.params = c.params[:baseParams]

			l := layers[index]
			index++

			if !l.eligible(c.err != nil, c.Request.Method) {
				continue
			}
			m, ok := l.pat.Match(c.path)
			if !ok {
				continue
			}

			if l.sub != nil {
				c.params = append(c.params, m.Params...)
				c.path = m.Remaining
				return l.sub.dispatch(c, next)
			}

			c.params = append(c.params, m.Params...)

			prevNext := c.nextFn
			c.nextFn = next
			err := invoke(c, l)
			consumed := c.nextFn == nil
			c.nextFn = prevNext

			if err != nil {
				// Divert: only error-role layers are eligible from here,
				// outward through every enclosing router, until one
				// consumes the error.
				c.err = err
				continue
			}
			if consumed || c.Written() {
				return c.err
			}
			// Implicit continue.
		}
		return parent()
	}
	return next()
}

// invoke runs the layer's handler for its turn, converting a synchronous
// panic into a dispatch error. Only panics raised during the turn itself are
// observable here; a panic on another goroutine crashes the process as usual.
func invoke(c *Context, l *layer) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if c.logger != nil {
				c.logger.Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
					zap.String("method", c.Request.Method),
					zap.String("path", c.fullPath),
				)
			}
			if e, ok := rec.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("panic: %v", rec)
			}
		}
	}()

	if c.err != nil {
		pending := c.err
		c.err = nil
		return l.errFn(pending, c)
	}
	return l.handler(c)
}
