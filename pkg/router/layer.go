package router

import (
	"github.com/trailmux/trailmux/pkg/pattern"
)

// Handler processes a request during its layer's turn. It signals the engine
// through its return value and response writes:
//
//   - writing a response terminates the exchange;
//   - returning nil without writing continues dispatch at the next layer
//     (Context.Next does the same eagerly, for code that must run after
//     downstream completes);
//   - returning a non-nil error diverts dispatch to the next error-role
//     layer, outward through every enclosing router.
//
// Errors that arise after the handler's turn has ended (work it handed to
// another goroutine) are invisible to the engine; the handler must collect
// them and route them through its own return value.
type Handler func(*Context) error

// ErrorHandler runs while a dispatch error is pending. It receives the
// propagated error; returning nil consumes it (dispatch resumes with normal
// layers if the response was not written), and returning a non-nil error
// keeps dispatch diverted toward the next error-role layer.
type ErrorHandler func(error, *Context) error

// layer is the atomic dispatch unit: a method filter, a compiled path
// matcher, and exactly one of a normal handler, an error handler, or a
// mounted sub-router. Layers are immutable once appended to a router.
type layer struct {
	methods map[string]struct{} // nil matches every method
	pat     *pattern.Pattern
	handler Handler
	errFn   ErrorHandler
	sub     *Router
}

// eligible reports whether the layer may run given the pending-error state
// and request method. Mounted sub-routers are role-neutral: they are entered
// in both states and their inner layers are filtered individually.
func (l *layer) eligible(errPending bool, method string) bool {
	if l.methods != nil {
		if _, ok := l.methods[method]; !ok {
			return false
		}
	}
	if l.sub != nil {
		return true
	}
	if errPending {
		return l.errFn != nil
	}
	return l.handler != nil
}

func methodSet(methods ...string) map[string]struct{} {
	if len(methods) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return set
}
