// api/errors/auth_errors.go
package errors

import "errors"

var (
	ErrRoleNotFound        = errors.New("role not found")
	ErrDuplicateRoleName   = errors.New("role name already exists in workspace")
	ErrEmptyPermissionSet  = errors.New("role must have at least one permission")
	ErrUnknownPermission   = errors.New("unknown permission atom")
	ErrInvalidRoleData     = errors.New("invalid role data")
	ErrSystemRoleImmutable = errors.New("system role cannot be modified")
	ErrRoleInUse           = errors.New("role is still assigned to active memberships")

	ErrMembershipNotFound = errors.New("workspace membership not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnauthorized       = errors.New("unauthorized")
)
