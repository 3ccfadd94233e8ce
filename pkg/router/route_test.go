package router

import (
	"net/http"
	"testing"
)

// TestRouteFluent tests method multiplexing on one path via the fluent Route
// surface.
func TestRouteFluent(t *testing.T) {
	e := NewEngine(Config{})

	e.Route("/articles/:id").
		Get(func(c *Context) error {
			return c.String(http.StatusOK, "read %s", c.Param("id"))
		}).
		Delete(func(c *Context) error {
			return c.Status(http.StatusNoContent)
		})

	rec := serve(e, http.MethodGet, "/articles/9")
	if rec.Code != http.StatusOK || rec.Body.String() != "read 9" {
		t.Errorf("GET = %d %q", rec.Code, rec.Body.String())
	}

	rec = serve(e, http.MethodDelete, "/articles/9")
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", rec.Code)
	}

	rec = serve(e, http.MethodPut, "/articles/9")
	if rec.Code != http.StatusNotFound {
		t.Errorf("PUT status = %d, want 404 (no PUT chain)", rec.Code)
	}
}

// TestRouteChainAppends tests that a second registration for the same
// (path, method) appends to the chain rather than replacing it.
func TestRouteChainAppends(t *testing.T) {
	e := NewEngine(Config{})

	var order []string
	rt := e.Route("/x")
	rt.Get(func(c *Context) error {
		order = append(order, "first")
		return nil
	})
	rt.Get(func(c *Context) error {
		order = append(order, "second")
		return c.Status(http.StatusOK)
	})

	rec := serve(e, http.MethodGet, "/x")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v, want [first second]", order)
	}
}

// TestRouteMultipleHandlersPerCall tests in-call handler chains.
func TestRouteMultipleHandlersPerCall(t *testing.T) {
	e := NewEngine(Config{})

	var order []string
	e.Route("/y").Post(
		func(c *Context) error {
			order = append(order, "validate")
			return nil
		},
		func(c *Context) error {
			order = append(order, "create")
			return c.Status(http.StatusCreated)
		},
	)

	rec := serve(e, http.MethodPost, "/y")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if len(order) != 2 || order[0] != "validate" || order[1] != "create" {
		t.Errorf("order = %v", order)
	}
}

// TestRouteAllMatchesEveryMethod tests the every-method chain.
func TestRouteAllMatchesEveryMethod(t *testing.T) {
	e := NewEngine(Config{})

	e.Route("/any").All(func(c *Context) error {
		return c.String(http.StatusOK, "%s", c.Method())
	})

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPatch} {
		rec := serve(e, method, "/any")
		if rec.Code != http.StatusOK || rec.Body.String() != method {
			t.Errorf("%s = %d %q", method, rec.Code, rec.Body.String())
		}
	}
}

// TestInvalidPatternPanics tests that registration rejects invalid input by
// panicking at setup time.
func TestInvalidPatternPanics(t *testing.T) {
	e := NewEngine(Config{})

	assertPanics := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s did not panic", name)
			}
		}()
		fn()
	}

	assertPanics("empty pattern", func() {
		e.GET("", func(c *Context) error { return nil })
	})
	assertPanics("no handlers", func() {
		e.GET("/ok")
	})
	assertPanics("duplicate params", func() {
		e.Route("/a/:id/b/:id")
	})
	assertPanics("nil mount", func() {
		e.Mount("/sub", nil)
	})
}
