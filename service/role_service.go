// api/service/role_service.go
package service

import (
	"context"

	"go.uber.org/zap"

	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/util"
)

// IRoleService defines the interface for role operations
type IRoleService interface {
	CreateRole(ctx context.Context, role model.Role, creatorID string) (*model.Role, error)
	UpdateRole(ctx context.Context, roleID string, update RoleUpdate, updaterID string) (*model.Role, error)
	SetPermissions(ctx context.Context, roleID string, permissions []string, updaterID string) (*model.Role, error)
	DeleteRole(ctx context.Context, roleID string, deleterID string) error
	GetRole(ctx context.Context, roleID string) (*model.Role, error)
	ListRoles(ctx context.Context, workspaceID string) ([]*model.Role, error)
	AssignRole(ctx context.Context, workspaceID, userID, roleID string, actorID string) error
	SetMembershipStatus(ctx context.Context, workspaceID, userID string, status model.MembershipStatus, actorID string) error
}

// RoleUpdate carries the PATCHable fields of a role. Nil means "leave as is".
type RoleUpdate struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// RoleStore is the persistence surface the service needs from the role DAO.
type RoleStore interface {
	EnsureSystemRoles(ctx context.Context, workspaceID string) error
	CreateRole(ctx context.Context, role model.Role, actorID string) (string, error)
	UpdateRole(ctx context.Context, role model.Role, actorID string) (*model.Role, error)
	DeleteRole(ctx context.Context, roleID string, actorID string) error
	GetRole(ctx context.Context, roleID string) (*model.Role, error)
	ListRoles(ctx context.Context, workspaceID string) ([]*model.Role, error)
}

// MembershipStore is the persistence surface for workspace memberships.
type MembershipStore interface {
	GetMembership(ctx context.Context, userID, workspaceID string) (*model.Membership, error)
	AssignRole(ctx context.Context, workspaceID, userID, roleID string, actorID string) error
	ListMembersByRole(ctx context.Context, roleID string) ([]string, error)
	SetStatus(ctx context.Context, workspaceID, userID string, status model.MembershipStatus) error
}

// Invalidator drops cached authorization decisions. Called synchronously so a
// structural mutation is not reported complete while a stale decision could
// still be served by this instance.
type Invalidator interface {
	ApplyInvalidation(event model.AuthzEvent)
}

// RoleService handles business logic for role operations
type RoleService struct {
	roleStore       RoleStore
	membershipStore MembershipStore
	validationUtil  *util.ValidationUtil
	invalidator     Invalidator
	eventBus        *util.EventBus
}

var _ IRoleService = &RoleService{}

// NewRoleService creates a new instance of RoleService
func NewRoleService(roleStore RoleStore, membershipStore MembershipStore, validationUtil *util.ValidationUtil, invalidator Invalidator, eventBus *util.EventBus) *RoleService {
	return &RoleService{
		roleStore:       roleStore,
		membershipStore: membershipStore,
		validationUtil:  validationUtil,
		invalidator:     invalidator,
		eventBus:        eventBus,
	}
}

// CreateRole handles the creation of a new custom role.
func (s *RoleService) CreateRole(ctx context.Context, role model.Role, creatorID string) (*model.Role, error) {
	if err := s.validationUtil.ValidateNewRole(role); err != nil {
		return nil, err
	}

	role.IsSystem = false

	roleID, err := s.roleStore.CreateRole(ctx, role, creatorID)
	if err != nil {
		logger.Error("Error creating role", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	created, err := s.roleStore.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	s.publishRoleChanged(ctx, created.WorkspaceID, roleID, nil)

	logger.Info("Role created successfully", zap.String("roleID", roleID), zap.String("creatorID", creatorID))
	return created, nil
}

// UpdateRole handles PATCH updates to an existing non-system role.
func (s *RoleService) UpdateRole(ctx context.Context, roleID string, update RoleUpdate, updaterID string) (*model.Role, error) {
	existing, err := s.roleStore.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if existing.IsSystem {
		return nil, casaflow_errors.ErrSystemRoleImmutable
	}

	role := *existing
	if update.Name != nil {
		if *update.Name == "" {
			return nil, casaflow_errors.ErrInvalidRoleData
		}
		role.Name = *update.Name
	}
	if update.Description != nil {
		role.Description = *update.Description
	}
	if update.Permissions != nil {
		if len(update.Permissions) == 0 {
			return nil, casaflow_errors.ErrEmptyPermissionSet
		}
		if err := s.validationUtil.ValidatePermissions(update.Permissions); err != nil {
			return nil, err
		}
		role.Permissions = update.Permissions
	}

	updated, err := s.roleStore.UpdateRole(ctx, role, updaterID)
	if err != nil {
		logger.Error("Error updating role", zap.Error(err), zap.String("roleID", roleID), zap.String("updaterID", updaterID))
		return nil, err
	}

	s.invalidateRoleMembers(ctx, updated.WorkspaceID, roleID)

	logger.Info("Role updated successfully", zap.String("roleID", roleID), zap.String("updaterID", updaterID))
	return updated, nil
}

// SetPermissions replaces a role's entire grant set.
func (s *RoleService) SetPermissions(ctx context.Context, roleID string, permissions []string, updaterID string) (*model.Role, error) {
	if len(permissions) == 0 {
		return nil, casaflow_errors.ErrEmptyPermissionSet
	}
	return s.UpdateRole(ctx, roleID, RoleUpdate{Permissions: permissions}, updaterID)
}

// DeleteRole removes a custom role. The caller must reassign active members
// first; the store does not cascade.
func (s *RoleService) DeleteRole(ctx context.Context, roleID string, deleterID string) error {
	existing, err := s.roleStore.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return casaflow_errors.ErrSystemRoleImmutable
	}

	if err := s.roleStore.DeleteRole(ctx, roleID, deleterID); err != nil {
		logger.Error("Error deleting role", zap.Error(err), zap.String("roleID", roleID), zap.String("deleterID", deleterID))
		return err
	}

	s.invalidateRoleMembers(ctx, existing.WorkspaceID, roleID)

	logger.Info("Role deleted successfully", zap.String("roleID", roleID), zap.String("deleterID", deleterID))
	return nil
}

// GetRole retrieves a role by its ID
func (s *RoleService) GetRole(ctx context.Context, roleID string) (*model.Role, error) {
	return s.roleStore.GetRole(ctx, roleID)
}

// ListRoles retrieves all roles scoped to a workspace, seeding the system
// roles on a workspace's first touch.
func (s *RoleService) ListRoles(ctx context.Context, workspaceID string) ([]*model.Role, error) {
	if err := s.roleStore.EnsureSystemRoles(ctx, workspaceID); err != nil {
		logger.Error("Error seeding system roles", zap.Error(err), zap.String("workspaceID", workspaceID))
		return nil, err
	}

	roles, err := s.roleStore.ListRoles(ctx, workspaceID)
	if err != nil {
		logger.Error("Error listing roles", zap.Error(err), zap.String("workspaceID", workspaceID))
		return nil, err
	}
	return roles, nil
}

// AssignRole upserts the membership's role pointer, then drops the cached
// decision for the affected pair.
func (s *RoleService) AssignRole(ctx context.Context, workspaceID, userID, roleID string, actorID string) error {
	if err := s.membershipStore.AssignRole(ctx, workspaceID, userID, roleID, actorID); err != nil {
		logger.Error("Error assigning role",
			zap.Error(err),
			zap.String("roleID", roleID),
			zap.String("userID", userID),
			zap.String("actorID", actorID))
		return err
	}

	event := model.AuthzEvent{WorkspaceID: workspaceID, UserIDs: []string{userID}}
	s.invalidator.ApplyInvalidation(event)
	s.eventBus.Publish(ctx, model.EventMembershipChanged, event)

	logger.Info("Role assigned",
		zap.String("roleID", roleID),
		zap.String("userID", userID),
		zap.String("workspaceID", workspaceID))
	return nil
}

// SetMembershipStatus moves a membership between active and inactive. The
// cached decision for the pair is dropped immediately; a deactivated member's
// next guarded action is denied.
func (s *RoleService) SetMembershipStatus(ctx context.Context, workspaceID, userID string, status model.MembershipStatus, actorID string) error {
	switch status {
	case model.MembershipActive, model.MembershipInactive, model.MembershipPending:
	default:
		return casaflow_errors.ErrInvalidRoleData
	}

	if err := s.membershipStore.SetStatus(ctx, workspaceID, userID, status); err != nil {
		logger.Error("Error updating membership status",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("workspaceID", workspaceID))
		return err
	}

	event := model.AuthzEvent{WorkspaceID: workspaceID, UserIDs: []string{userID}}
	s.invalidator.ApplyInvalidation(event)
	s.eventBus.Publish(ctx, model.EventMembershipChanged, event)

	logger.Info("Membership status updated",
		zap.String("userID", userID),
		zap.String("workspaceID", workspaceID),
		zap.String("status", string(status)),
		zap.String("actorID", actorID))
	return nil
}

// invalidateRoleMembers drops cached decisions for everyone pointing at the
// role, locally first and then via the bus for the other instances.
func (s *RoleService) invalidateRoleMembers(ctx context.Context, workspaceID, roleID string) {
	userIDs, err := s.membershipStore.ListMembersByRole(ctx, roleID)
	if err != nil {
		logger.Warn("Failed to resolve members for invalidation; dropping by role",
			zap.Error(err),
			zap.String("roleID", roleID))
	}
	s.publishRoleChanged(ctx, workspaceID, roleID, userIDs)
}

func (s *RoleService) publishRoleChanged(ctx context.Context, workspaceID, roleID string, userIDs []string) {
	event := model.AuthzEvent{WorkspaceID: workspaceID, RoleID: roleID, UserIDs: userIDs}
	s.invalidator.ApplyInvalidation(event)
	s.eventBus.Publish(ctx, model.EventRoleChanged, event)
}
