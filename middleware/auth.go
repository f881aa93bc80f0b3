// api/middleware/auth.go

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/session"
	"github.com/casaflow/api/util"
)

// AuthMiddleware validates the bearer token and places the asserted identity
// in the gin context for downstream handlers.
func AuthMiddleware(tokens *session.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			util.RespondWithError(c, http.StatusUnauthorized, "Missing authorization header", casaflow_errors.ErrUnauthorized)
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if tokenString == authHeader || tokenString == "" {
			util.RespondWithError(c, http.StatusUnauthorized, "Invalid authorization format", casaflow_errors.ErrUnauthorized)
			c.Abort()
			return
		}

		identity, err := tokens.Validate(tokenString)
		if err != nil {
			logger.Warn("Token validation failed",
				zap.Error(err),
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path))
			util.RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token", casaflow_errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set("identity", *identity)
		c.Next()
	}
}
