// api/controller/identity_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casaflow/api/authz"
	casaflow_errors "github.com/casaflow/api/errors"
	"github.com/casaflow/api/util"
)

// IdentityController serves the current-identity surface the web client
// bootstraps from: who am I, what role do I hold, what can I do.
type IdentityController struct {
	evaluator *authz.Evaluator
}

func NewIdentityController(evaluator *authz.Evaluator) *IdentityController {
	return &IdentityController{evaluator: evaluator}
}

// RegisterRoutes registers the current-identity routes.
func (ic *IdentityController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", ic.GetMe)
}

// GetMe endpoint
func (ic *IdentityController) GetMe(c *gin.Context) {
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	role, err := ic.evaluator.ResolveRole(c, identity, identity.WorkspaceID)
	if err != nil {
		if errors.Is(err, casaflow_errors.ErrMembershipNotFound) {
			util.RespondWithError(c, http.StatusForbidden, "No active membership in this workspace", casaflow_errors.ErrPermissionDenied)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to resolve membership", err)
		}
		return
	}

	permissions, err := ic.evaluator.EffectivePermissions(c, identity, identity.WorkspaceID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to resolve permissions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":      identity.UserID,
		"email":       identity.Email,
		"workspaceId": identity.WorkspaceID,
		"role":        role,
		"permissions": permissions,
	})
}
