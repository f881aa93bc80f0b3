// api/model/role.go
package model

import "time"

// OwnerRoleName is the reserved name of the system role that implicitly holds
// the full permission catalog. The canonical owner predicate is
// Role.IsOwner(); nothing else compares against this constant directly.
const OwnerRoleName = "Owner"

// Role is a workspace-scoped named bundle of permission atoms.
type Role struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsSystem    bool      `json:"is_system"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsOwner reports whether this role short-circuits permission checks. Both the
// flag and the name must match; either alone is not sufficient.
func (r *Role) IsOwner() bool {
	return r.IsSystem && r.Name == OwnerRoleName
}

// HasPermission reports whether the role's stored grant set contains the atom.
// Owner roles are handled by the evaluator short-circuit and never reach this.
func (r *Role) HasPermission(atom string) bool {
	for _, p := range r.Permissions {
		if p == atom {
			return true
		}
	}
	return false
}

// MembershipStatus is the lifecycle state of a workspace membership.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipActive   MembershipStatus = "active"
	MembershipInactive MembershipStatus = "inactive"
)

// Membership binds a user to a workspace with exactly one role. The workspace
// owns the record; the user side is a lookup reference only.
type Membership struct {
	UserID      string           `json:"user_id"`
	WorkspaceID string           `json:"workspace_id"`
	RoleID      string           `json:"role_id"`
	Status      MembershipStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
