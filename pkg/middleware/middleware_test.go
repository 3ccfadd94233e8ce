package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/trailmux/trailmux/pkg/router"
)

func serve(e *router.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// TestLoggingPassesThrough tests that the logging layer continues dispatch
// and preserves downstream results.
func TestLoggingPassesThrough(t *testing.T) {
	e := router.NewEngine(router.Config{})
	e.Use(Logging(zap.NewNop()))
	e.GET("/ok", func(c *router.Context) error {
		return c.String(http.StatusOK, "fine")
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "fine" {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
}

// TestLoggingPropagatesError tests that an unconsumed downstream error still
// reaches the engine's terminal handler through the logging layer.
func TestLoggingPropagatesError(t *testing.T) {
	e := router.NewEngine(router.Config{})
	e.Use(Logging(zap.NewNop()))
	e.GET("/bad", func(c *router.Context) error {
		return router.NewHTTPError(http.StatusBadRequest, "nope")
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/bad", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestMaxBodySize tests that oversized bodies fail downstream reads.
func TestMaxBodySize(t *testing.T) {
	e := router.NewEngine(router.Config{})
	e.Use(MaxBodySize(8))
	e.POST("/upload", func(c *router.Context) error {
		if _, err := router.Bind[map[string]string](c); err != nil {
			return router.NewHTTPError(http.StatusRequestEntityTooLarge, "too large")
		}
		return c.Status(http.StatusOK)
	})

	small := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{}`))
	if rec := serve(e, small); rec.Code != http.StatusOK {
		t.Errorf("small body status = %d, want 200", rec.Code)
	}

	big := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"k":"`+strings.Repeat("x", 64)+`"}`))
	if rec := serve(e, big); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("big body status = %d, want 413", rec.Code)
	}
}

// TestTimeoutExpires tests that a slow downstream handler is cut off with
// 408.
func TestTimeoutExpires(t *testing.T) {
	e := router.NewEngine(router.Config{})
	e.Use(Timeout(20*time.Millisecond, zap.NewNop()))

	release := make(chan struct{})
	defer close(release)
	e.GET("/slow", func(c *router.Context) error {
		select {
		case <-release:
		case <-c.Request.Context().Done():
		}
		return nil
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if rec.Code != http.StatusRequestTimeout {
		t.Errorf("status = %d, want 408", rec.Code)
	}
}

// TestTimeoutFastPath tests that fast handlers are unaffected.
func TestTimeoutFastPath(t *testing.T) {
	e := router.NewEngine(router.Config{})
	e.Use(Timeout(time.Second, zap.NewNop()))
	e.GET("/fast", func(c *router.Context) error {
		return c.String(http.StatusOK, "quick")
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/fast", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "quick" {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
}

// TestTimeoutWriterChain tests that the interposed guarded writer still
// reaches the transport when a handler writes through the Context writer
// directly: header, status, and body must all pass through without the
// wrappers feeding back into each other.
func TestTimeoutWriterChain(t *testing.T) {
	e := router.NewEngine(router.Config{})
	e.Use(Timeout(time.Second, zap.NewNop()))
	e.GET("/direct", func(c *router.Context) error {
		c.Writer().Header().Set("X-Layer", "direct")
		c.Writer().WriteHeader(http.StatusAccepted)
		_, err := c.Writer().Write([]byte("through"))
		return err
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/direct", nil))
	if rec.Code != http.StatusAccepted || rec.Body.String() != "through" {
		t.Errorf("response = %d %q, want 202 through", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Layer") != "direct" {
		t.Error("header did not propagate through the interposed writer")
	}
}

// TestBearerAuth tests acceptance and rejection paths.
func TestBearerAuth(t *testing.T) {
	e := router.NewEngine(router.Config{})
	e.Use(BearerAuth(func(_ context.Context, token string) bool {
		return token == "secret"
	}, zap.NewNop()))
	e.GET("/private", func(c *router.Context) error {
		return c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if rec := serve(e, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing header status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	if rec := serve(e, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer secret")
	if rec := serve(e, req); rec.Code != http.StatusOK {
		t.Errorf("good token status = %d, want 200", rec.Code)
	}
}
