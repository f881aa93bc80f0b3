// api/util/validation_util.go

package util

import (
	"fmt"

	casaflow_errors "github.com/casaflow/api/errors"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/registry"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

// ValidateNewRole checks the domain rules for role creation. Name uniqueness
// is enforced by the store; everything checkable without I/O lives here.
func (v *ValidationUtil) ValidateNewRole(role model.Role) error {
	if role.WorkspaceID == "" {
		return fmt.Errorf("%w: workspace id cannot be empty", casaflow_errors.ErrInvalidRoleData)
	}
	if role.Name == "" {
		return fmt.Errorf("%w: role name cannot be empty", casaflow_errors.ErrInvalidRoleData)
	}
	if role.Name == model.OwnerRoleName {
		return fmt.Errorf("%w: %q is reserved", casaflow_errors.ErrInvalidRoleData, model.OwnerRoleName)
	}
	if len(role.Permissions) == 0 {
		return casaflow_errors.ErrEmptyPermissionSet
	}
	return v.ValidatePermissions(role.Permissions)
}

// ValidatePermissions rejects atoms that are not in the registry.
func (v *ValidationUtil) ValidatePermissions(atoms []string) error {
	for _, p := range atoms {
		if !registry.Known(p) {
			return fmt.Errorf("%w: %s", casaflow_errors.ErrUnknownPermission, p)
		}
	}
	return nil
}

// ValidateNotification checks the fields a server-side trigger must supply.
func (v *ValidationUtil) ValidateNotification(n model.Notification) error {
	if n.WorkspaceID == "" {
		return fmt.Errorf("%w: workspace id cannot be empty", casaflow_errors.ErrInvalidNotificationData)
	}
	if n.RecipientUserID == "" {
		return fmt.Errorf("%w: recipient cannot be empty", casaflow_errors.ErrInvalidNotificationData)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", casaflow_errors.ErrInvalidNotificationData)
	}
	switch n.Priority {
	case "", model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityUrgent:
	default:
		return fmt.Errorf("%w: unknown priority %q", casaflow_errors.ErrInvalidNotificationData, n.Priority)
	}
	return nil
}
