// api/util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message, "code": casaflow_errors.Code(err)})
}

// GetIdentityFromContext returns the authenticated identity placed in the gin
// context by the auth middleware.
func GetIdentityFromContext(c *gin.Context) (model.Identity, error) {
	val, exists := c.Get("identity")
	if !exists {
		return model.Identity{}, casaflow_errors.ErrUnauthorized
	}
	identity, ok := val.(model.Identity)
	if !ok {
		return model.Identity{}, casaflow_errors.ErrUnauthorized
	}
	return identity, nil
}
