// api/service/notification_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/util"
)

// INotificationService defines the interface for notification operations
type INotificationService interface {
	Create(ctx context.Context, notification model.Notification) (*model.Notification, error)
	Get(ctx context.Context, id string) (*model.Notification, error)
	MarkRead(ctx context.Context, id string) (*model.Notification, error)
	MarkManyRead(ctx context.Context, ids []string) (int64, error)
	MarkAllRead(ctx context.Context, workspaceID, recipientUserID string) (int64, error)
	Archive(ctx context.Context, id string) (*model.Notification, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, workspaceID, recipientUserID string, filter model.NotificationFilter) ([]model.Notification, error)
	Stats(ctx context.Context, workspaceID, recipientUserID string) (*model.NotificationStats, error)
}

// NotificationStore is the persistence surface the service needs from the
// notification DAO.
type NotificationStore interface {
	Create(ctx context.Context, notification model.Notification) (*model.Notification, error)
	Get(ctx context.Context, id string) (*model.Notification, error)
	MarkRead(ctx context.Context, id string) (*model.Notification, error)
	MarkManyRead(ctx context.Context, ids []string) ([]string, error)
	MarkAllRead(ctx context.Context, workspaceID, recipientUserID string) ([]string, error)
	Archive(ctx context.Context, id string) (*model.Notification, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, workspaceID, recipientUserID string, filter model.NotificationFilter) ([]model.Notification, error)
	Stats(ctx context.Context, workspaceID, recipientUserID string) (*model.NotificationStats, error)
}

// NotificationService owns the notification lifecycle. Domain events are
// published on the bus after the store commit, so realtime delivery can never
// block or roll back a transition. The store stays the single source of
// truth: everything pushed over the channel is reproducible by a fetch.
type NotificationService struct {
	store    NotificationStore
	validate *util.ValidationUtil
	eventBus *util.EventBus
}

var _ INotificationService = &NotificationService{}

// NewNotificationService creates a new instance of NotificationService
func NewNotificationService(store NotificationStore, validate *util.ValidationUtil, eventBus *util.EventBus) *NotificationService {
	return &NotificationService{
		store:    store,
		validate: validate,
		eventBus: eventBus,
	}
}

// Create persists a notification on behalf of a triggering server-side action
// and publishes it for realtime delivery.
func (s *NotificationService) Create(ctx context.Context, notification model.Notification) (*model.Notification, error) {
	if err := s.validate.ValidateNotification(notification); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, notification)
	if err != nil {
		logger.Error("Error creating notification",
			zap.Error(err),
			zap.String("workspaceID", notification.WorkspaceID),
			zap.String("recipientUserID", notification.RecipientUserID))
		return nil, err
	}

	s.eventBus.Publish(ctx, model.EventNotificationCreated, model.NotificationEvent{
		WorkspaceID:     created.WorkspaceID,
		RecipientUserID: created.RecipientUserID,
		NotificationID:  created.ID,
		Notification:    created,
		OccurredAt:      created.CreatedAt,
	})

	logger.Info("Notification created",
		zap.String("notificationID", created.ID),
		zap.String("recipientUserID", created.RecipientUserID),
		zap.String("type", created.Type))
	return created, nil
}

// Get retrieves a single notification.
func (s *NotificationService) Get(ctx context.Context, id string) (*model.Notification, error) {
	return s.store.Get(ctx, id)
}

// MarkRead acknowledges a notification. Idempotent: acknowledging a record
// that is already read or archived changes nothing, and the confirmation is
// still broadcast so every tab of the recipient converges.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*model.Notification, error) {
	updated, err := s.store.MarkRead(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishRead(ctx, updated)
	return updated, nil
}

// MarkManyRead acknowledges a batch of ids, ignoring ones already read.
func (s *NotificationService) MarkManyRead(ctx context.Context, ids []string) (int64, error) {
	transitioned, err := s.store.MarkManyRead(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.publishReadIDs(ctx, transitioned)
	return int64(len(transitioned)), nil
}

// MarkAllRead acknowledges every unread record for a recipient.
func (s *NotificationService) MarkAllRead(ctx context.Context, workspaceID, recipientUserID string) (int64, error) {
	transitioned, err := s.store.MarkAllRead(ctx, workspaceID, recipientUserID)
	if err != nil {
		return 0, err
	}
	s.publishReadIDs(ctx, transitioned)

	logger.Info("Marked all notifications read",
		zap.String("workspaceID", workspaceID),
		zap.String("recipientUserID", recipientUserID),
		zap.Int("count", len(transitioned)))
	return int64(len(transitioned)), nil
}

// Archive moves a notification to its terminal visible state. Clients drop
// archived records from their caches entirely.
func (s *NotificationService) Archive(ctx context.Context, id string) (*model.Notification, error) {
	updated, err := s.store.Archive(ctx, id)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, model.EventNotificationArchived, model.NotificationEvent{
		WorkspaceID:     updated.WorkspaceID,
		RecipientUserID: updated.RecipientUserID,
		NotificationID:  updated.ID,
		OccurredAt:      time.Now().UTC(),
	})
	return updated, nil
}

// Delete removes a notification outright.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.eventBus.Publish(ctx, model.EventNotificationDeleted, model.NotificationEvent{
		WorkspaceID:     existing.WorkspaceID,
		RecipientUserID: existing.RecipientUserID,
		NotificationID:  id,
		OccurredAt:      time.Now().UTC(),
	})
	return nil
}

// List returns a recipient's notifications newest first.
func (s *NotificationService) List(ctx context.Context, workspaceID, recipientUserID string, filter model.NotificationFilter) ([]model.Notification, error) {
	return s.store.List(ctx, workspaceID, recipientUserID, filter)
}

// Stats returns a recipient's aggregate counts.
func (s *NotificationService) Stats(ctx context.Context, workspaceID, recipientUserID string) (*model.NotificationStats, error) {
	return s.store.Stats(ctx, workspaceID, recipientUserID)
}

func (s *NotificationService) publishRead(ctx context.Context, notification *model.Notification) {
	occurredAt := time.Now().UTC()
	if notification.ReadAt != nil {
		occurredAt = *notification.ReadAt
	}
	s.eventBus.Publish(ctx, model.EventNotificationRead, model.NotificationEvent{
		WorkspaceID:     notification.WorkspaceID,
		RecipientUserID: notification.RecipientUserID,
		NotificationID:  notification.ID,
		OccurredAt:      occurredAt,
	})
}

func (s *NotificationService) publishReadIDs(ctx context.Context, ids []string) {
	for _, id := range ids {
		notification, err := s.store.Get(ctx, id)
		if err != nil {
			logger.Warn("Skipping read broadcast for missing notification", zap.String("notificationID", id))
			continue
		}
		s.publishRead(ctx, notification)
	}
}
