package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/trailmux/trailmux/pkg/router"
)

// IPSourceType defines the source for client IP addresses.
type IPSourceType string

const (
	// IPSourceRemoteAddr uses the request's RemoteAddr field.
	IPSourceRemoteAddr IPSourceType = "remote_addr"

	// IPSourceXForwardedFor uses the X-Forwarded-For header.
	IPSourceXForwardedFor IPSourceType = "x_forwarded_for"

	// IPSourceXRealIP uses the X-Real-IP header.
	IPSourceXRealIP IPSourceType = "x_real_ip"

	// IPSourceCustomHeader uses a custom header specified in the configuration.
	IPSourceCustomHeader IPSourceType = "custom_header"
)

// IPConfig defines configuration for client IP extraction.
type IPConfig struct {
	// Source specifies where to extract the client IP from.
	Source IPSourceType

	// CustomHeader is the header to use when Source is IPSourceCustomHeader.
	CustomHeader string

	// TrustProxy determines whether to trust proxy headers. When false,
	// RemoteAddr is used regardless of the configured source.
	TrustProxy bool
}

// DefaultIPConfig returns the default IP configuration.
func DefaultIPConfig() *IPConfig {
	return &IPConfig{
		Source:     IPSourceXForwardedFor,
		TrustProxy: true,
	}
}

// clientIPKey is the context key for the extracted client IP.
type clientIPKey struct{}

// ClientIP extracts the client IP stored by the ClientIPMiddleware layer.
// Returns an empty string if the layer did not run.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// ClientIPMiddleware extracts the client IP from the configured source and
// stores it in the request context for downstream layers (logging, rate
// limiting).
func ClientIPMiddleware(config *IPConfig) router.Handler {
	if config == nil {
		config = DefaultIPConfig()
	}

	return func(c *router.Context) error {
		ip := extractIP(c.Request, config)
		ctx := context.WithValue(c.Request.Context(), clientIPKey{}, ip)
		c.Request = c.Request.WithContext(ctx)
		return nil
	}
}

// extractIP resolves the client IP according to the configuration, falling
// back to RemoteAddr whenever the configured source is absent or untrusted.
func extractIP(r *http.Request, config *IPConfig) string {
	if config.TrustProxy {
		switch config.Source {
		case IPSourceXForwardedFor:
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				// The first entry is the originating client.
				if i := strings.Index(xff, ","); i >= 0 {
					return strings.TrimSpace(xff[:i])
				}
				return strings.TrimSpace(xff)
			}
		case IPSourceXRealIP:
			if rip := r.Header.Get("X-Real-IP"); rip != "" {
				return strings.TrimSpace(rip)
			}
		case IPSourceCustomHeader:
			if config.CustomHeader != "" {
				if v := r.Header.Get(config.CustomHeader); v != "" {
					return strings.TrimSpace(v)
				}
			}
		}
	}
	return stripPort(r.RemoteAddr)
}

// stripPort removes the :port suffix host:port RemoteAddr values carry.
// Addresses without a port, such as a bare IPv6 literal, pass through
// unchanged.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
