// api/realtime/protocol.go
package realtime

import (
	"encoding/json"
	"time"

	"github.com/casaflow/api/model"
)

// Wire event types pushed to connected clients.
const (
	WireNewNotification  = "new_notification"
	WireNotificationRead = "notification_marked_read"
	WireNotificationGone = "notification_removed"
	WireUserOnline       = "user_online"
	WireUserOffline      = "user_offline"
)

// Inbound message types accepted from clients.
const (
	InboundNotificationRead = "notification_read"
	InboundMarkAllRead      = "mark_all_read"
)

// WireEvent is the envelope for every frame pushed over the channel.
type WireEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// InboundMessage is the envelope for frames received from clients.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ReadAckPayload acknowledges a single notification.
type ReadAckPayload struct {
	NotificationID string `json:"notificationId"`
}

// NotificationRefPayload references a notification by id in a pushed event.
type NotificationRefPayload struct {
	NotificationID string `json:"notificationId"`
}

// NotificationReadPayload confirms a read transition. The timestamp is the
// server's read time, so every tab of the recipient lands on the same ReadAt.
type NotificationReadPayload struct {
	NotificationID string    `json:"notificationId"`
	Timestamp      time.Time `json:"timestamp"`
}

// PresencePayload announces a presence change in the workspace.
type PresencePayload struct {
	UserID string `json:"userId"`
}

func newNotificationEvent(n *model.Notification) WireEvent {
	return WireEvent{Type: WireNewNotification, Payload: n}
}

func notificationReadEvent(id string, at time.Time) WireEvent {
	return WireEvent{Type: WireNotificationRead, Payload: NotificationReadPayload{NotificationID: id, Timestamp: at}}
}

func notificationGoneEvent(id string) WireEvent {
	return WireEvent{Type: WireNotificationGone, Payload: NotificationRefPayload{NotificationID: id}}
}

func presenceEvent(eventType, userID string) WireEvent {
	return WireEvent{Type: eventType, Payload: PresencePayload{UserID: userID}}
}
