// api/audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

// Actions recorded for authorization-relevant mutations.
const (
	ActionRoleCreated  = "ROLE_CREATED"
	ActionRoleUpdated  = "ROLE_UPDATED"
	ActionRoleDeleted  = "ROLE_DELETED"
	ActionRoleAssigned = "ROLE_ASSIGNED"
)

type AuditLog struct {
	Timestamp     time.Time       `json:"timestamp"`
	UserID        string          `json:"user_id"`
	WorkspaceID   string          `json:"workspace_id"`
	Action        string          `json:"action"`
	ResourceID    string          `json:"resource_id"`
	AccessGranted bool            `json:"access_granted"`
	ChangeDetails json.RawMessage `json:"change_details,omitempty"`
}
