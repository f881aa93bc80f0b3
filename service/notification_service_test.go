// api/service/notification_service_test.go
package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/casaflow/api/dao"
	"github.com/casaflow/api/db"
	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/util"
)

func TestMain(m *testing.M) {
	logger.InitLogger("../logging")
	os.Exit(m.Run())
}

func newNotificationService(t *testing.T) (*NotificationService, *util.EventBus) {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	eventBus := util.NewEventBus()
	svc := NewNotificationService(dao.NewNotificationDAO(gormDB), util.NewValidationUtil(), eventBus)
	return svc, eventBus
}

func seedNotification(workspaceID, recipientID string) model.Notification {
	return model.Notification{
		WorkspaceID:     workspaceID,
		RecipientUserID: recipientID,
		Type:            "lead_assigned",
		Category:        "leads",
		Title:           "New lead assigned",
		Message:         "You have been assigned lead #42",
	}
}

func TestNotificationCreateDefaults(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()
	wsID, userID := uuid.New().String(), uuid.New().String()

	input := seedNotification(wsID, userID)
	input.Metadata = model.Metadata{"leadId": "42"}
	input.ActionButtons = model.ActionButtons{{Label: "Open lead", URL: "/leads/42"}}

	created, err := svc.Create(ctx, input)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.NotificationUnread, created.Status)
	assert.False(t, created.IsRead)
	assert.Nil(t, created.ReadAt)
	assert.Equal(t, model.PriorityMedium, created.Priority)

	fetched, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Metadata{"leadId": "42"}, fetched.Metadata)
	require.Len(t, fetched.ActionButtons, 1)
	assert.Equal(t, "/leads/42", fetched.ActionButtons[0].URL)
}

func TestNotificationCreateValidation(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()

	missingTitle := seedNotification(uuid.New().String(), uuid.New().String())
	missingTitle.Title = ""
	_, err := svc.Create(ctx, missingTitle)
	assert.ErrorIs(t, err, casaflow_errors.ErrInvalidNotificationData)

	badPriority := seedNotification(uuid.New().String(), uuid.New().String())
	badPriority.Priority = "critical"
	_, err = svc.Create(ctx, badPriority)
	assert.ErrorIs(t, err, casaflow_errors.ErrInvalidNotificationData)
}

func TestNotificationCreatePublishesEvent(t *testing.T) {
	svc, eventBus := newNotificationService(t)
	ctx := context.Background()
	wsID, userID := uuid.New().String(), uuid.New().String()

	received := make(chan model.NotificationEvent, 1)
	eventBus.Subscribe(model.EventNotificationCreated, func(_ context.Context, ev util.Event) error {
		received <- ev.Payload.(model.NotificationEvent)
		return nil
	})

	created, err := svc.Create(ctx, seedNotification(wsID, userID))
	require.NoError(t, err)

	select {
	case ev := <-received:
		assert.Equal(t, created.ID, ev.NotificationID)
		assert.Equal(t, wsID, ev.WorkspaceID)
		assert.Equal(t, userID, ev.RecipientUserID)
		require.NotNil(t, ev.Notification)
		assert.Equal(t, created.Title, ev.Notification.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("no created event published")
	}
}

func TestNotificationMarkReadIdempotent(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, seedNotification(uuid.New().String(), uuid.New().String()))
	require.NoError(t, err)

	first, err := svc.MarkRead(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationRead, first.Status)
	assert.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)

	second, err := svc.MarkRead(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationRead, second.Status)
	require.NotNil(t, second.ReadAt)
	assert.True(t, second.ReadAt.Equal(*first.ReadAt), "repeat acknowledgement must not move readAt")
}

func TestNotificationMarkReadMissing(t *testing.T) {
	svc, _ := newNotificationService(t)

	_, err := svc.MarkRead(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, casaflow_errors.ErrNotificationNotFound)
}

func TestNotificationLifecycleMonotonic(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, seedNotification(uuid.New().String(), uuid.New().String()))
	require.NoError(t, err)

	archived, err := svc.Archive(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationArchived, archived.Status)
	assert.True(t, archived.IsRead)
	require.NotNil(t, archived.ReadAt)

	// Acknowledging an archived record must not regress it to read.
	after, err := svc.MarkRead(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationArchived, after.Status)

	again, err := svc.Archive(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, again.ReadAt.Equal(*archived.ReadAt))
}

func TestNotificationMarkAllRead(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()
	wsID, userID := uuid.New().String(), uuid.New().String()

	var ids []string
	for i := 0; i < 3; i++ {
		created, err := svc.Create(ctx, seedNotification(wsID, userID))
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	_, err := svc.MarkRead(ctx, ids[0])
	require.NoError(t, err)

	// A different recipient's unread record must not be touched.
	other, err := svc.Create(ctx, seedNotification(wsID, uuid.New().String()))
	require.NoError(t, err)

	count, err := svc.MarkAllRead(ctx, wsID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	for _, id := range ids {
		fetched, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, fetched.IsRead)
	}

	untouched, err := svc.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, untouched.IsRead)

	// Converged: a second sweep finds nothing.
	count, err = svc.MarkAllRead(ctx, wsID, userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationMarkManyRead(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()
	wsID, userID := uuid.New().String(), uuid.New().String()

	a, err := svc.Create(ctx, seedNotification(wsID, userID))
	require.NoError(t, err)
	b, err := svc.Create(ctx, seedNotification(wsID, userID))
	require.NoError(t, err)
	_, err = svc.MarkRead(ctx, b.ID)
	require.NoError(t, err)

	count, err := svc.MarkManyRead(ctx, []string{a.ID, b.ID, uuid.New().String()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "already-read and unknown ids are skipped")

	count, err = svc.MarkManyRead(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// The bulk read paths must report exactly the records they transitioned, so a
// record acknowledged through the per-id path is never counted by both.
func TestNotificationBulkReadReportsOnlyTransitionedIDs(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()
	wsID, userID := uuid.New().String(), uuid.New().String()

	first, err := svc.Create(ctx, seedNotification(wsID, userID))
	require.NoError(t, err)
	second, err := svc.Create(ctx, seedNotification(wsID, userID))
	require.NoError(t, err)
	_, err = svc.MarkRead(ctx, first.ID)
	require.NoError(t, err)

	ids, err := svc.store.MarkAllRead(ctx, wsID, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, ids)

	ids, err = svc.store.MarkManyRead(ctx, []string{first.ID, second.ID, uuid.New().String()})
	require.NoError(t, err)
	assert.Empty(t, ids, "everything already read; nothing to report")
}

func TestNotificationDelete(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, seedNotification(uuid.New().String(), uuid.New().String()))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, casaflow_errors.ErrNotificationNotFound)

	err = svc.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, casaflow_errors.ErrNotificationNotFound)
}

func TestNotificationListFilters(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()
	wsID, userID := uuid.New().String(), uuid.New().String()

	lead := seedNotification(wsID, userID)
	deal := seedNotification(wsID, userID)
	deal.Type = "deal_stage_changed"
	deal.Category = "deals"
	deal.Priority = model.PriorityHigh

	createdLead, err := svc.Create(ctx, lead)
	require.NoError(t, err)
	_, err = svc.Create(ctx, deal)
	require.NoError(t, err)
	_, err = svc.MarkRead(ctx, createdLead.ID)
	require.NoError(t, err)

	byCategory, err := svc.List(ctx, wsID, userID, model.NotificationFilter{Category: "deals"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "deal_stage_changed", byCategory[0].Type)

	unreadOnly := false
	unread, err := svc.List(ctx, wsID, userID, model.NotificationFilter{IsRead: &unreadOnly})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "deals", unread[0].Category)

	all, err := svc.List(ctx, wsID, userID, model.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := svc.List(ctx, wsID, uuid.New().String(), model.NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNotificationStats(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()
	wsID, userID := uuid.New().String(), uuid.New().String()

	first, err := svc.Create(ctx, seedNotification(wsID, userID))
	require.NoError(t, err)

	urgent := seedNotification(wsID, userID)
	urgent.Category = "deals"
	urgent.Priority = model.PriorityUrgent
	_, err = svc.Create(ctx, urgent)
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, first.ID)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, wsID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Unread)
	assert.Equal(t, int64(1), stats.ByCategory["leads"])
	assert.Equal(t, int64(1), stats.ByCategory["deals"])
	assert.Equal(t, int64(1), stats.ByPriority[string(model.PriorityMedium)])
	assert.Equal(t, int64(1), stats.ByPriority[string(model.PriorityUrgent)])
}
