// api/controller/realtime_controller_test.go
package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/casaflow/api/controller"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/realtime"
	"github.com/casaflow/api/test/mock"
	"github.com/casaflow/api/util"
)

func startRealtimeServer(t *testing.T, role *model.Role, mockService *mock.MockNotificationService) (*httptest.Server, *realtime.Hub, *util.EventBus) {
	t.Helper()

	hub := realtime.NewHub(nil, realtime.Options{})
	eventBus := util.NewEventBus()
	hub.BindEvents(eventBus)

	rc := controller.NewRealtimeController(hub, evaluatorWithRole(role), mockService)
	router := setupRouter(testIdentity(), rc.RegisterRoutes)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Shutdown()
		server.Close()
	})
	return server, hub, eventBus
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWireEvent(t *testing.T, conn *websocket.Conn) realtime.WireEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var event realtime.WireEvent
	require.NoError(t, json.Unmarshal(frame, &event))
	return event
}

func TestRealtimeHandshakeRejectedWithoutMembership(t *testing.T) {
	server, _, _ := startRealtimeServer(t, nil, new(mock.MockNotificationService))

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// Every connection a user holds receives every event addressed to the user.
func TestRealtimeFanOutToAllTabs(t *testing.T) {
	server, _, eventBus := startRealtimeServer(t, managerRole(), new(mock.MockNotificationService))

	tabOne := dialWS(t, server)
	tabTwo := dialWS(t, server)

	notification := &model.Notification{
		ID:              "n-1",
		WorkspaceID:     "ws-1",
		RecipientUserID: "user-1",
		Title:           "New lead assigned",
		Status:          model.NotificationUnread,
	}
	// Registration is asynchronous with respect to the dial returning.
	time.Sleep(100 * time.Millisecond)
	eventBus.Publish(context.Background(), model.EventNotificationCreated, model.NotificationEvent{
		WorkspaceID:     "ws-1",
		RecipientUserID: "user-1",
		NotificationID:  "n-1",
		Notification:    notification,
	})

	for _, conn := range []*websocket.Conn{tabOne, tabTwo} {
		event := readWireEvent(t, conn)
		assert.Equal(t, realtime.WireNewNotification, event.Type)
	}
}

func TestRealtimeInboundReadAck(t *testing.T) {
	mockService := new(mock.MockNotificationService)
	server, _, _ := startRealtimeServer(t, managerRole(), mockService)

	record := ownNotification("n-1")
	read := *record
	read.Status = model.NotificationRead
	read.IsRead = true

	acked := make(chan struct{}, 1)
	mockService.On("Get", testify_mock.Anything, "n-1").Return(record, nil).Once()
	mockService.On("MarkRead", testify_mock.Anything, "n-1").
		Run(func(testify_mock.Arguments) { acked <- struct{}{} }).
		Return(&read, nil).Once()

	conn := dialWS(t, server)
	payload, _ := json.Marshal(realtime.ReadAckPayload{NotificationID: "n-1"})
	frame, _ := json.Marshal(realtime.InboundMessage{Type: realtime.InboundNotificationRead, Payload: payload})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	select {
	case <-acked:
	case <-time.After(2 * time.Second):
		t.Fatal("read acknowledgement never reached the service")
	}
	mockService.AssertExpectations(t)
}

func TestRealtimeInboundForeignAckIgnored(t *testing.T) {
	mockService := new(mock.MockNotificationService)
	server, _, _ := startRealtimeServer(t, managerRole(), mockService)

	foreign := ownNotification("n-2")
	foreign.RecipientUserID = "someone-else"

	fetched := make(chan struct{}, 1)
	mockService.On("Get", testify_mock.Anything, "n-2").
		Run(func(testify_mock.Arguments) { fetched <- struct{}{} }).
		Return(foreign, nil).Once()

	conn := dialWS(t, server)
	payload, _ := json.Marshal(realtime.ReadAckPayload{NotificationID: "n-2"})
	frame, _ := json.Marshal(realtime.InboundMessage{Type: realtime.InboundNotificationRead, Payload: payload})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("acknowledgement never reached the service")
	}
	time.Sleep(50 * time.Millisecond)
	mockService.AssertNotCalled(t, "MarkRead", testify_mock.Anything, "n-2")
}
