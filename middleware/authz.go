// api/middleware/authz.go

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/casaflow/api/authz"
	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/registry"
	"github.com/casaflow/api/util"
)

// RequirePermission guards a route behind a single permission atom. Every
// guarded surface funnels through the same evaluator lookup; handlers never
// branch on role names.
func RequirePermission(evaluator *authz.Evaluator, atom registry.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := util.GetIdentityFromContext(c)
		if err != nil {
			util.RespondWithError(c, http.StatusUnauthorized, "Authentication required", err)
			c.Abort()
			return
		}

		if !evaluator.Can(c.Request.Context(), identity, identity.WorkspaceID, atom) {
			logger.Warn("Permission denied",
				zap.String("userID", identity.UserID),
				zap.String("workspaceID", identity.WorkspaceID),
				zap.String("permission", atom))
			util.RespondWithError(c, http.StatusForbidden, "You do not have permission to perform this action", casaflow_errors.ErrPermissionDenied)
			c.Abort()
			return
		}

		c.Next()
	}
}
