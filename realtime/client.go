// api/realtime/client.go
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
)

const maxInboundMessageSize = 4096

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NotificationAcker is the slice of the notification service the channel
// needs for inbound acknowledgements.
type NotificationAcker interface {
	Get(ctx context.Context, id string) (*model.Notification, error)
	MarkRead(ctx context.Context, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, workspaceID, recipientUserID string) (int64, error)
}

// Client is one live websocket connection bound to a (user, workspace) pair.
// Outbound frames go through a bounded buffer; a consumer that cannot keep up
// is disconnected and recovers through reconnect reconciliation rather than
// unbounded buffering.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	acker NotificationAcker

	userID      string
	workspaceID string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, identity model.Identity, acker NotificationAcker) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		acker:       acker,
		userID:      identity.UserID,
		workspaceID: identity.WorkspaceID,
		send:        make(chan []byte, hub.opts.SendBufferSize),
	}
}

// ServeWS upgrades the request and runs the connection until either side
// closes it. The caller must have authenticated the identity and verified the
// workspace membership before calling.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, identity model.Identity, acker NotificationAcker) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := newClient(h, conn, identity, acker)
	h.register(r.Context(), client)

	go client.writePump()
	go client.readPump()
	return nil
}

// enqueue hands a frame to the write pump without blocking. On overflow the
// connection is dropped; the client reconciles on reconnect.
func (c *Client) enqueue(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		logger.Warn("Dropping slow realtime consumer",
			zap.String("userID", c.userID),
			zap.String("workspaceID", c.workspaceID))
		c.closed = true
		close(c.send)
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(context.Background(), c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongTimeout))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Unexpected websocket close",
					zap.Error(err),
					zap.String("userID", c.userID))
			}
			return
		}
		c.handleInbound(context.Background(), raw)
	}
}

func (c *Client) writePump() {
	pingPeriod := c.hub.opts.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleInbound processes one frame from the client. Malformed frames and
// acknowledgements for records the client does not own are dropped, never
// fatal: a buggy tab must not be able to tear down the channel or touch
// another user's records.
func (c *Client) handleInbound(ctx context.Context, raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Warn("Dropping malformed inbound frame", zap.Error(err), zap.String("userID", c.userID))
		return
	}

	switch msg.Type {
	case InboundNotificationRead:
		var payload ReadAckPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.NotificationID == "" {
			logger.Warn("Dropping malformed read acknowledgement", zap.String("userID", c.userID))
			return
		}
		notification, err := c.acker.Get(ctx, payload.NotificationID)
		if err != nil {
			return
		}
		if notification.RecipientUserID != c.userID || notification.WorkspaceID != c.workspaceID {
			logger.Warn("Ignoring acknowledgement for foreign notification",
				zap.String("userID", c.userID),
				zap.String("notificationID", payload.NotificationID))
			return
		}
		if _, err := c.acker.MarkRead(ctx, payload.NotificationID); err != nil {
			logger.Warn("Failed to acknowledge notification",
				zap.Error(err),
				zap.String("notificationID", payload.NotificationID))
		}

	case InboundMarkAllRead:
		if _, err := c.acker.MarkAllRead(ctx, c.workspaceID, c.userID); err != nil {
			logger.Warn("Failed to mark all read",
				zap.Error(err),
				zap.String("userID", c.userID))
		}

	default:
		logger.Warn("Dropping inbound frame of unknown type",
			zap.String("type", msg.Type),
			zap.String("userID", c.userID))
	}
}
