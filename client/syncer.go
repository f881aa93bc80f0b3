// api/client/syncer.go
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/realtime"
	"github.com/casaflow/api/session"
)

// ConnState is the lifecycle of the channel as the client sees it.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnected
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// SyncerOptions tune the connection loop.
type SyncerOptions struct {
	// ReconcileInterval bounds how stale the cache can get even while the
	// socket looks healthy. Zero picks a default.
	ReconcileInterval time.Duration
	// ReconnectBackoff is the initial wait after a failed or dropped
	// connection; it doubles up to a cap.
	ReconnectBackoff time.Duration
}

func (o SyncerOptions) withDefaults() SyncerOptions {
	if o.ReconcileInterval <= 0 {
		o.ReconcileInterval = 30 * time.Second
	}
	if o.ReconnectBackoff <= 0 {
		o.ReconnectBackoff = time.Second
	}
	return o
}

const maxReconnectBackoff = 30 * time.Second

// Syncer keeps a Cache converged with the server: it holds the websocket
// open, applies pushed events, reconciles on every (re)connect, and
// re-reconciles on a bounded interval regardless of connection health. Tokens
// are obtained through a refresh gate, so a burst of reconnects runs the
// token exchange once and shares the result.
type Syncer struct {
	url     string
	tokens  session.RefreshFunc
	gate    *session.RefreshGate
	cache   *Cache
	fetcher Fetcher
	opts    SyncerOptions

	dialer *websocket.Dialer
	state  atomic.Int32

	mu   sync.Mutex // guards conn for writes
	conn *websocket.Conn
}

func NewSyncer(url string, tokens session.RefreshFunc, cache *Cache, fetcher Fetcher, opts SyncerOptions) *Syncer {
	s := &Syncer{
		url:     url,
		tokens:  tokens,
		gate:    session.NewRefreshGate(),
		cache:   cache,
		fetcher: fetcher,
		opts:    opts.withDefaults(),
		dialer:  websocket.DefaultDialer,
	}
	s.state.Store(int32(StateDisconnected))
	return s
}

// State returns the current connection state.
func (s *Syncer) State() ConnState {
	return ConnState(s.state.Load())
}

// Run drives the connection until ctx is cancelled. Errors are absorbed into
// the state machine and retried; Run only returns on cancellation.
func (s *Syncer) Run(ctx context.Context) {
	backoff := s.opts.ReconnectBackoff
	for {
		if ctx.Err() != nil {
			s.state.Store(int32(StateDisconnected))
			return
		}

		s.state.Store(int32(StateConnecting))
		conn, err := s.dial(ctx)
		if err != nil {
			s.state.Store(int32(StateError))
			logger.Warn("Realtime dial failed", zap.Error(err), zap.Duration("retryIn", backoff))
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = s.opts.ReconnectBackoff
		s.setConn(conn)
		s.state.Store(int32(StateConnected))

		// Everything missed while disconnected is absorbed here; the event
		// stream only has to be correct from this point forward.
		if err := s.cache.Reconcile(ctx, s.fetcher); err != nil {
			logger.Warn("Reconcile on connect failed", zap.Error(err))
		}

		s.consume(ctx, conn)

		s.setConn(nil)
		conn.Close()
		if ctx.Err() != nil {
			s.state.Store(int32(StateDisconnected))
			return
		}
		s.state.Store(int32(StateDisconnected))
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// dial refreshes the bearer token through the gate and opens the socket.
func (s *Syncer) dial(ctx context.Context) (*websocket.Conn, error) {
	token, err := s.gate.Refresh(ctx, s.tokens)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := s.dialer.DialContext(ctx, s.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// consume applies pushed events until the connection breaks or ctx ends. A
// periodic reconcile runs alongside so silent gaps in the stream are bounded
// by the reconcile interval.
func (s *Syncer) consume(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(s.opts.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.cache.Reconcile(ctx, s.fetcher); err != nil {
					logger.Warn("Periodic reconcile failed", zap.Error(err))
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("Realtime connection lost", zap.Error(err))
			}
			return
		}
		s.apply(frame)
	}
}

func (s *Syncer) apply(frame []byte) {
	var event realtime.InboundMessage
	if err := json.Unmarshal(frame, &event); err != nil {
		logger.Warn("Dropping malformed pushed frame", zap.Error(err))
		return
	}

	switch event.Type {
	case realtime.WireNewNotification:
		var notification model.Notification
		if err := json.Unmarshal(event.Payload, &notification); err != nil {
			logger.Warn("Dropping malformed pushed notification", zap.Error(err))
			return
		}
		s.cache.ApplyPush(notification)

	case realtime.WireNotificationRead:
		var ref realtime.NotificationReadPayload
		if err := json.Unmarshal(event.Payload, &ref); err != nil {
			return
		}
		s.cache.ApplyReadAck(ref.NotificationID, ref.Timestamp)

	case realtime.WireNotificationGone:
		var ref realtime.NotificationRefPayload
		if err := json.Unmarshal(event.Payload, &ref); err != nil {
			return
		}
		s.cache.ApplyRemoval(ref.NotificationID)

	case realtime.WireUserOnline, realtime.WireUserOffline:
		// Presence is surfaced elsewhere; nothing cached here.

	default:
		logger.Debug("Ignoring pushed frame of unknown type", zap.String("type", event.Type))
	}
}

// SendReadAck tells the server the user read a notification. The server's
// confirmation comes back as a pushed event; the cache is not touched here.
func (s *Syncer) SendReadAck(id string) error {
	payload, _ := json.Marshal(realtime.ReadAckPayload{NotificationID: id})
	frame, _ := json.Marshal(realtime.InboundMessage{
		Type:    realtime.InboundNotificationRead,
		Payload: payload,
	})
	return s.write(frame)
}

// SendMarkAllRead asks the server to acknowledge everything unread.
func (s *Syncer) SendMarkAllRead() error {
	frame, _ := json.Marshal(realtime.InboundMessage{Type: realtime.InboundMarkAllRead})
	return s.write(frame)
}

var errNotConnected = errors.New("realtime channel is not connected")

func (s *Syncer) write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return errNotConnected
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Syncer) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxReconnectBackoff {
		next = maxReconnectBackoff
	}
	return next
}
