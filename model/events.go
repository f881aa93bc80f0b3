// api/model/events.go
package model

import "time"

// Domain event types published on the in-process event bus. The realtime hub
// translates these into wire events; the client cache consumes them directly,
// so neither side depends on the other's naming.
const (
	EventNotificationCreated  = "notification.created"
	EventNotificationRead     = "notification.read"
	EventNotificationArchived = "notification.archived"
	EventNotificationDeleted  = "notification.deleted"

	EventRoleChanged       = "role.changed"
	EventMembershipChanged = "membership.changed"
)

// NotificationEvent is the payload for all notification lifecycle events.
// Notification is populated only for EventNotificationCreated; the others
// carry just the identifying fields.
type NotificationEvent struct {
	WorkspaceID     string        `json:"workspace_id"`
	RecipientUserID string        `json:"recipient_user_id"`
	NotificationID  string        `json:"notification_id"`
	Notification    *Notification `json:"notification,omitempty"`
	OccurredAt      time.Time     `json:"occurred_at"`
}

// AuthzEvent signals that cached authorization decisions for the affected
// pairs must be dropped before the triggering mutation is reported complete.
type AuthzEvent struct {
	WorkspaceID string   `json:"workspace_id"`
	RoleID      string   `json:"role_id,omitempty"`
	UserIDs     []string `json:"user_ids,omitempty"`
}
