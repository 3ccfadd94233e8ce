package router

import "net/http"

// Route is a fluent method multiplexer for a single path pattern. It is
// sugar over the router model: every registration appends ordinary sibling
// layers at the same path, so two registrations for the same method extend
// that method's chain rather than replacing it.
type Route struct {
	router *Router
	pat    string
}

// Route starts a fluent registration block for one exact path pattern.
//
//	r.Route("/articles/:id").
//		Get(showArticle).
//		Put(requireAuth, updateArticle).
//		Delete(requireAuth, deleteArticle)
func (r *Router) Route(pat string) *Route {
	// Compile eagerly so an invalid pattern fails at the Route call site.
	r.compile(pat, false)
	return &Route{router: r, pat: pat}
}

// Get appends handlers to the GET chain.
func (rt *Route) Get(handlers ...Handler) *Route {
	rt.router.Handle(http.MethodGet, rt.pat, handlers...)
	return rt
}

// Post appends handlers to the POST chain.
func (rt *Route) Post(handlers ...Handler) *Route {
	rt.router.Handle(http.MethodPost, rt.pat, handlers...)
	return rt
}

// Put appends handlers to the PUT chain.
func (rt *Route) Put(handlers ...Handler) *Route {
	rt.router.Handle(http.MethodPut, rt.pat, handlers...)
	return rt
}

// Delete appends handlers to the DELETE chain.
func (rt *Route) Delete(handlers ...Handler) *Route {
	rt.router.Handle(http.MethodDelete, rt.pat, handlers...)
	return rt
}

// Patch appends handlers to the PATCH chain.
func (rt *Route) Patch(handlers ...Handler) *Route {
	rt.router.Handle(http.MethodPatch, rt.pat, handlers...)
	return rt
}

// Head appends handlers to the HEAD chain.
func (rt *Route) Head(handlers ...Handler) *Route {
	rt.router.Handle(http.MethodHead, rt.pat, handlers...)
	return rt
}

// Options appends handlers to the OPTIONS chain.
func (rt *Route) Options(handlers ...Handler) *Route {
	rt.router.Handle(http.MethodOptions, rt.pat, handlers...)
	return rt
}

// All appends handlers to the every-method chain.
func (rt *Route) All(handlers ...Handler) *Route {
	rt.router.All(rt.pat, handlers...)
	return rt
}
