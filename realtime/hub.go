// api/realtime/hub.go
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/util"
)

// Presence tracks which users hold at least one live connection, shared
// across instances. Best-effort: a presence failure never tears down the
// connection it was recording.
type Presence interface {
	Add(ctx context.Context, workspaceID, userID string) (bool, error)
	Remove(ctx context.Context, workspaceID, userID string) (bool, error)
}

// Options tune the per-connection websocket behavior.
type Options struct {
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	SendBufferSize int
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 64
	}
	return o
}

// Hub fans domain events out to the websocket connections of their
// recipients. It consumes transport-agnostic events from the bus and owns the
// translation to wire frames; nothing upstream of the hub knows the wire
// names. A user may hold any number of simultaneous connections (tabs,
// devices); every one of them receives every event addressed to the user.
type Hub struct {
	opts     Options
	presence Presence

	mu    sync.RWMutex
	conns map[string]map[*Client]struct{} // workspaceID -> clients
}

func NewHub(presence Presence, opts Options) *Hub {
	return &Hub{
		opts:     opts.withDefaults(),
		presence: presence,
		conns:    make(map[string]map[*Client]struct{}),
	}
}

// BindEvents subscribes the hub to the domain events it delivers. All
// lifecycle events share one subscription so a connection sees them in
// store-commit order; a read confirmation can never overtake the creation it
// acknowledges.
func (h *Hub) BindEvents(eventBus *util.EventBus) {
	eventBus.SubscribeAll(h.onNotificationEvent,
		model.EventNotificationCreated,
		model.EventNotificationRead,
		model.EventNotificationArchived,
		model.EventNotificationDeleted)
}

func (h *Hub) onNotificationEvent(ctx context.Context, event util.Event) error {
	payload, ok := event.Payload.(model.NotificationEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for event %s", event.Payload, event.Type)
	}

	var wire WireEvent
	switch event.Type {
	case model.EventNotificationCreated:
		wire = newNotificationEvent(payload.Notification)
	case model.EventNotificationRead:
		wire = notificationReadEvent(payload.NotificationID, payload.OccurredAt)
	case model.EventNotificationArchived, model.EventNotificationDeleted:
		// Clients drop archived and deleted records the same way.
		wire = notificationGoneEvent(payload.NotificationID)
	default:
		return nil
	}

	h.SendToUser(payload.WorkspaceID, payload.RecipientUserID, wire)
	return nil
}

// SendToUser delivers a wire event to every connection the user holds in the
// workspace on this instance.
func (h *Hub) SendToUser(workspaceID, userID string, event WireEvent) {
	frame, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal wire event", zap.Error(err), zap.String("type", event.Type))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.conns[workspaceID] {
		if client.userID == userID {
			client.enqueue(frame)
		}
	}
}

// Broadcast delivers a wire event to every connection in the workspace.
func (h *Hub) Broadcast(workspaceID string, event WireEvent) {
	frame, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal wire event", zap.Error(err), zap.String("type", event.Type))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.conns[workspaceID] {
		client.enqueue(frame)
	}
}

func (h *Hub) register(ctx context.Context, client *Client) {
	h.mu.Lock()
	clients, ok := h.conns[client.workspaceID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.conns[client.workspaceID] = clients
	}
	clients[client] = struct{}{}
	remaining := h.countLocked(client.workspaceID, client.userID)
	h.mu.Unlock()

	logger.Info("Realtime connection registered",
		zap.String("userID", client.userID),
		zap.String("workspaceID", client.workspaceID))

	if h.presence == nil || remaining > 1 {
		return
	}
	first, err := h.presence.Add(ctx, client.workspaceID, client.userID)
	if err != nil {
		logger.Warn("Failed to record presence", zap.Error(err), zap.String("userID", client.userID))
		return
	}
	if first {
		h.Broadcast(client.workspaceID, presenceEvent(WireUserOnline, client.userID))
	}
}

func (h *Hub) unregister(ctx context.Context, client *Client) {
	h.mu.Lock()
	clients, ok := h.conns[client.workspaceID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, registered := clients[client]; !registered {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.conns, client.workspaceID)
	}
	remaining := h.countLocked(client.workspaceID, client.userID)
	h.mu.Unlock()

	client.closeSend()

	logger.Info("Realtime connection unregistered",
		zap.String("userID", client.userID),
		zap.String("workspaceID", client.workspaceID))

	if h.presence == nil || remaining > 0 {
		return
	}
	removed, err := h.presence.Remove(ctx, client.workspaceID, client.userID)
	if err != nil {
		logger.Warn("Failed to clear presence", zap.Error(err), zap.String("userID", client.userID))
		return
	}
	if removed {
		h.Broadcast(client.workspaceID, presenceEvent(WireUserOffline, client.userID))
	}
}

// countLocked counts the user's live connections in the workspace. Callers
// hold h.mu.
func (h *Hub) countLocked(workspaceID, userID string) int {
	n := 0
	for client := range h.conns[workspaceID] {
		if client.userID == userID {
			n++
		}
	}
	return n
}

// Connections reports the number of live connections a user holds in the
// workspace on this instance.
func (h *Hub) Connections(workspaceID, userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked(workspaceID, userID)
}

// Shutdown closes every connection. Used during graceful server shutdown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	var all []*Client
	for _, clients := range h.conns {
		for client := range clients {
			all = append(all, client)
		}
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, client := range all {
		client.closeSend()
	}
}
