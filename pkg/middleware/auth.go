package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/trailmux/trailmux/pkg/router"
)

// BearerAuth requires a valid bearer token on every request passing through
// it. The validate function receives the request context and the token;
// rejection diverts dispatch with a 401 HTTPError, so an application error
// layer may shape the response before the engine's terminal handler does.
func BearerAuth(validate func(context.Context, string) bool, logger *zap.Logger) router.Handler {
	return func(c *router.Context) error {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			logger.Warn("Authentication failed",
				zap.String("method", c.Method()),
				zap.String("path", c.FullPath()),
				zap.String("remote_addr", c.Request.RemoteAddr),
			)
			return router.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if !validate(c.Request.Context(), token) {
			logger.Warn("Authentication failed",
				zap.String("method", c.Method()),
				zap.String("path", c.FullPath()),
				zap.String("remote_addr", c.Request.RemoteAddr),
			)
			return router.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}

		logger.Debug("Authentication successful",
			zap.String("method", c.Method()),
			zap.String("path", c.FullPath()),
		)
		return nil
	}
}
