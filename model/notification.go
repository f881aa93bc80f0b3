// api/model/notification.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationStatus is the lifecycle state of a notification. Transitions are
// monotonic: unread -> read -> archived, or a hard delete from any state.
type NotificationStatus string

const (
	NotificationUnread   NotificationStatus = "unread"
	NotificationRead     NotificationStatus = "read"
	NotificationArchived NotificationStatus = "archived"
)

// NotificationPriority orders notifications for UI emphasis.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// ActionButton is a labeled link rendered with a notification.
type ActionButton struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ActionButtons is stored as a JSON column.
type ActionButtons []ActionButton

func (a ActionButtons) Value() (driver.Value, error) {
	if len(a) == 0 {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *ActionButtons) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for action buttons: %T", value)
	}
	return json.Unmarshal(raw, a)
}

// Metadata is a flat string map stored as a JSON column.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for metadata: %T", value)
	}
	return json.Unmarshal(raw, m)
}

// Notification is the authoritative per-recipient record. Invariant:
// IsRead == true exactly when Status is read or archived.
type Notification struct {
	ID                string               `json:"id" gorm:"type:uuid;primaryKey"`
	WorkspaceID       string               `json:"workspace_id" gorm:"type:uuid;not null;index:idx_notif_recipient"`
	RecipientUserID   string               `json:"recipient_user_id" gorm:"type:uuid;not null;index:idx_notif_recipient"`
	Type              string               `json:"type" gorm:"type:varchar(50);not null"`
	Category          string               `json:"category" gorm:"type:varchar(50);not null"`
	Priority          NotificationPriority `json:"priority" gorm:"type:varchar(10);not null;default:'medium'"`
	Title             string               `json:"title" gorm:"type:varchar(255);not null"`
	Message           string               `json:"message" gorm:"type:text;not null"`
	IsRead            bool                 `json:"is_read" gorm:"not null;default:false;index"`
	Status            NotificationStatus   `json:"status" gorm:"type:varchar(10);not null;default:'unread';index"`
	TriggeredByUserID string               `json:"triggered_by_user_id,omitempty" gorm:"type:uuid"`
	ActionButtons     ActionButtons        `json:"action_buttons,omitempty" gorm:"type:jsonb"`
	Metadata          Metadata             `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt         time.Time            `json:"created_at" gorm:"not null;index"`
	ReadAt            *time.Time           `json:"read_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationFilter narrows list queries. Zero values mean "no constraint".
type NotificationFilter struct {
	Type     string
	Category string
	Priority NotificationPriority
	Status   NotificationStatus
	IsRead   *bool
	Limit    int
	Offset   int
}

// NotificationStats are the aggregate counts shown in the notification bell.
type NotificationStats struct {
	Total      int64            `json:"total"`
	Unread     int64            `json:"unread"`
	ByCategory map[string]int64 `json:"by_category"`
	ByPriority map[string]int64 `json:"by_priority"`
}
