// api/controller/role_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casaflow/api/authz"
	casaflow_errors "github.com/casaflow/api/errors"
	"github.com/casaflow/api/middleware"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/registry"
	"github.com/casaflow/api/service"
	"github.com/casaflow/api/util"
)

type RoleController struct {
	roleService service.IRoleService
	evaluator   *authz.Evaluator
}

func NewRoleController(roleService service.IRoleService, evaluator *authz.Evaluator) *RoleController {
	return &RoleController{
		roleService: roleService,
		evaluator:   evaluator,
	}
}

// RegisterRoutes registers the API routes for roles and the permission
// catalog.
func (rc *RoleController) RegisterRoutes(r *gin.RouterGroup) {
	canView := middleware.RequirePermission(rc.evaluator, registry.ViewTeam)
	canManage := middleware.RequirePermission(rc.evaluator, registry.ManageSettings)

	roles := r.Group("/roles")
	{
		roles.GET("", canView, rc.ListRoles)
		roles.GET("/:id", canView, rc.GetRole)
		roles.POST("", canManage, rc.CreateRole)
		roles.PUT("/:id", canManage, rc.UpdateRole)
		roles.PUT("/:id/permissions", canManage, rc.SetPermissions)
		roles.DELETE("/:id", canManage, rc.DeleteRole)
		roles.POST("/:id/assign", canManage, rc.AssignRole)
	}

	r.PUT("/members/:userId/status", canManage, rc.SetMembershipStatus)
	r.GET("/permissions", canView, rc.ListPermissions)
}

// CreateRole endpoint
func (rc *RoleController) CreateRole(c *gin.Context) {
	var role model.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", casaflow_errors.ErrInvalidRoleData)
		return
	}
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}
	role.WorkspaceID = identity.WorkspaceID

	createdRole, err := rc.roleService.CreateRole(c, role, identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, casaflow_errors.ErrDuplicateRoleName):
			util.RespondWithError(c, http.StatusConflict, "A role with this name already exists", err)
		case errors.Is(err, casaflow_errors.ErrEmptyPermissionSet),
			errors.Is(err, casaflow_errors.ErrUnknownPermission),
			errors.Is(err, casaflow_errors.ErrInvalidRoleData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create role", casaflow_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, createdRole)
}

// UpdateRole endpoint
func (rc *RoleController) UpdateRole(c *gin.Context) {
	roleID := c.Param("id")
	var update service.RoleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", casaflow_errors.ErrInvalidRoleData)
		return
	}
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	updatedRole, err := rc.roleService.UpdateRole(c, roleID, update, identity.UserID)
	if err != nil {
		rc.respondRoleMutationError(c, err, "Failed to update role")
		return
	}

	c.JSON(http.StatusOK, updatedRole)
}

// SetPermissions endpoint replaces a role's entire grant set.
func (rc *RoleController) SetPermissions(c *gin.Context) {
	roleID := c.Param("id")
	var body struct {
		Permissions []string `json:"permissions"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid permission data", casaflow_errors.ErrInvalidRoleData)
		return
	}
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	updatedRole, err := rc.roleService.SetPermissions(c, roleID, body.Permissions, identity.UserID)
	if err != nil {
		rc.respondRoleMutationError(c, err, "Failed to update permissions")
		return
	}

	c.JSON(http.StatusOK, updatedRole)
}

// DeleteRole endpoint
func (rc *RoleController) DeleteRole(c *gin.Context) {
	roleID := c.Param("id")
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	if err := rc.roleService.DeleteRole(c, roleID, identity.UserID); err != nil {
		switch {
		case errors.Is(err, casaflow_errors.ErrRoleNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		case errors.Is(err, casaflow_errors.ErrSystemRoleImmutable):
			util.RespondWithError(c, http.StatusForbidden, "System roles cannot be deleted", err)
		case errors.Is(err, casaflow_errors.ErrRoleInUse):
			util.RespondWithError(c, http.StatusConflict, "Role still has active members; reassign them first", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete role", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetRole endpoint
func (rc *RoleController) GetRole(c *gin.Context) {
	roleID := c.Param("id")

	role, err := rc.roleService.GetRole(c, roleID)
	if err != nil {
		if errors.Is(err, casaflow_errors.ErrRoleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve role", err)
		}
		return
	}

	c.JSON(http.StatusOK, role)
}

// ListRoles endpoint
func (rc *RoleController) ListRoles(c *gin.Context) {
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	roles, err := rc.roleService.ListRoles(c, identity.WorkspaceID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list roles", err)
		return
	}

	c.JSON(http.StatusOK, roles)
}

// AssignRole endpoint binds a workspace member to the role.
func (rc *RoleController) AssignRole(c *gin.Context) {
	roleID := c.Param("id")
	var body struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.UserID == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid assignment data", casaflow_errors.ErrInvalidRoleData)
		return
	}
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	if err := rc.roleService.AssignRole(c, identity.WorkspaceID, body.UserID, roleID, identity.UserID); err != nil {
		if errors.Is(err, casaflow_errors.ErrRoleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to assign role", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// SetMembershipStatus endpoint activates or deactivates a workspace member.
func (rc *RoleController) SetMembershipStatus(c *gin.Context) {
	userID := c.Param("userId")
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Status == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid status data", casaflow_errors.ErrInvalidRoleData)
		return
	}
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	if err := rc.roleService.SetMembershipStatus(c, identity.WorkspaceID, userID, model.MembershipStatus(body.Status), identity.UserID); err != nil {
		switch {
		case errors.Is(err, casaflow_errors.ErrMembershipNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Membership not found", err)
		case errors.Is(err, casaflow_errors.ErrInvalidRoleData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid status data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update membership status", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// ListPermissions endpoint returns the grouped permission catalog for the
// role editor.
func (rc *RoleController) ListPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"groups": registry.Groups()})
}

func (rc *RoleController) respondRoleMutationError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, casaflow_errors.ErrRoleNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
	case errors.Is(err, casaflow_errors.ErrSystemRoleImmutable):
		util.RespondWithError(c, http.StatusForbidden, "System roles cannot be modified", err)
	case errors.Is(err, casaflow_errors.ErrDuplicateRoleName):
		util.RespondWithError(c, http.StatusConflict, "A role with this name already exists", err)
	case errors.Is(err, casaflow_errors.ErrEmptyPermissionSet),
		errors.Is(err, casaflow_errors.ErrUnknownPermission),
		errors.Is(err, casaflow_errors.ErrInvalidRoleData):
		util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, fallback, err)
	}
}
