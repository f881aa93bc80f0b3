// api/dao/notification_dao.go
package dao

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
)

// NotificationDAO persists notification records. Lifecycle transitions are
// expressed as conditional UPDATEs so concurrent idempotent writers converge
// without a workspace-global lock.
type NotificationDAO struct {
	DB *gorm.DB
}

func NewNotificationDAO(gormDB *gorm.DB) *NotificationDAO {
	return &NotificationDAO{DB: gormDB}
}

// Create persists a new record in the unread state and returns it for
// immediate publication.
func (dao *NotificationDAO) Create(ctx context.Context, notification model.Notification) (*model.Notification, error) {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	notification.Status = model.NotificationUnread
	notification.IsRead = false
	notification.ReadAt = nil
	notification.CreatedAt = time.Now().UTC()
	if notification.Priority == "" {
		notification.Priority = model.PriorityMedium
	}

	if err := dao.DB.WithContext(ctx).Create(&notification).Error; err != nil {
		logger.Error("Failed to create notification",
			zap.Error(err),
			zap.String("workspaceID", notification.WorkspaceID),
			zap.String("recipientUserID", notification.RecipientUserID))
		return nil, casaflow_errors.ErrDatabaseOperation
	}
	return &notification, nil
}

// Get retrieves a notification by id.
func (dao *NotificationDAO) Get(ctx context.Context, id string) (*model.Notification, error) {
	var notification model.Notification
	err := dao.DB.WithContext(ctx).First(&notification, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, casaflow_errors.ErrNotificationNotFound
	}
	if err != nil {
		return nil, casaflow_errors.ErrDatabaseOperation
	}
	return &notification, nil
}

// MarkRead transitions unread -> read. Calling it on a record that is already
// read or archived is a no-op; the transition count tells both apart.
func (dao *NotificationDAO) MarkRead(ctx context.Context, id string) (*model.Notification, error) {
	now := time.Now().UTC()
	result := dao.DB.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND status = ?", id, model.NotificationUnread).
		Updates(map[string]interface{}{
			"is_read": true,
			"status":  model.NotificationRead,
			"read_at": now,
		})
	if result.Error != nil {
		return nil, casaflow_errors.ErrDatabaseOperation
	}
	// RowsAffected == 0 covers both "already read" and "missing"; only the
	// latter is an error.
	return dao.Get(ctx, id)
}

// MarkManyRead applies MarkRead to a set of ids, skipping already-read and
// unknown ids silently, and returns the ids it transitioned. Duplicate client
// acknowledgements after a reconnect replay must not surface as failures.
func (dao *NotificationDAO) MarkManyRead(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return dao.markReadWhere(ctx, "id IN ? AND status = ?", ids, model.NotificationUnread)
}

// MarkAllRead is the bulk variant restricted to a recipient's unread records,
// returning the transitioned ids.
func (dao *NotificationDAO) MarkAllRead(ctx context.Context, workspaceID, recipientUserID string) ([]string, error) {
	return dao.markReadWhere(ctx, "workspace_id = ? AND recipient_user_id = ? AND status = ?",
		workspaceID, recipientUserID, model.NotificationUnread)
}

// markReadWhere transitions every matching unread record with one conditional
// UPDATE and returns the ids the statement actually changed, via RETURNING. A
// record claimed concurrently by the per-id path no longer matches the unread
// condition here, so the two paths never report the same transition twice.
func (dao *NotificationDAO) markReadWhere(ctx context.Context, cond string, args ...interface{}) ([]string, error) {
	var transitioned []model.Notification
	result := dao.DB.WithContext(ctx).
		Model(&transitioned).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where(cond, args...).
		Updates(map[string]interface{}{
			"is_read": true,
			"status":  model.NotificationRead,
			"read_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, casaflow_errors.ErrDatabaseOperation
	}

	ids := make([]string, 0, len(transitioned))
	for _, notification := range transitioned {
		ids = append(ids, notification.ID)
	}
	return ids, nil
}

// Archive transitions unread or read -> archived. Archived is terminal short
// of deletion; re-archiving is a no-op.
func (dao *NotificationDAO) Archive(ctx context.Context, id string) (*model.Notification, error) {
	now := time.Now().UTC()
	result := dao.DB.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND status <> ?", id, model.NotificationArchived).
		Updates(map[string]interface{}{
			"is_read": true,
			"status":  model.NotificationArchived,
			"read_at": gorm.Expr("COALESCE(read_at, ?)", now),
		})
	if result.Error != nil {
		return nil, casaflow_errors.ErrDatabaseOperation
	}
	return dao.Get(ctx, id)
}

// Delete removes the record outright, from any prior state.
func (dao *NotificationDAO) Delete(ctx context.Context, id string) error {
	result := dao.DB.WithContext(ctx).Delete(&model.Notification{}, "id = ?", id)
	if result.Error != nil {
		return casaflow_errors.ErrDatabaseOperation
	}
	if result.RowsAffected == 0 {
		return casaflow_errors.ErrNotificationNotFound
	}
	return nil
}

// List returns a recipient's notifications newest first, narrowed by filter.
func (dao *NotificationDAO) List(ctx context.Context, workspaceID, recipientUserID string, filter model.NotificationFilter) ([]model.Notification, error) {
	query := dao.DB.WithContext(ctx).
		Where("workspace_id = ? AND recipient_user_id = ?", workspaceID, recipientUserID)

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.IsRead != nil {
		query = query.Where("is_read = ?", *filter.IsRead)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var notifications []model.Notification
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&notifications).Error
	if err != nil {
		logger.Error("Failed to list notifications",
			zap.Error(err),
			zap.String("workspaceID", workspaceID),
			zap.String("recipientUserID", recipientUserID))
		return nil, casaflow_errors.ErrDatabaseOperation
	}
	return notifications, nil
}

// Stats aggregates a recipient's counts for the notification bell.
func (dao *NotificationDAO) Stats(ctx context.Context, workspaceID, recipientUserID string) (*model.NotificationStats, error) {
	stats := &model.NotificationStats{
		ByCategory: make(map[string]int64),
		ByPriority: make(map[string]int64),
	}

	base := dao.DB.WithContext(ctx).
		Model(&model.Notification{}).
		Where("workspace_id = ? AND recipient_user_id = ?", workspaceID, recipientUserID)

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, casaflow_errors.ErrDatabaseOperation
	}
	if err := base.Session(&gorm.Session{}).Where("is_read = ?", false).Count(&stats.Unread).Error; err != nil {
		return nil, casaflow_errors.ErrDatabaseOperation
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byCategory []bucket
	err := base.Session(&gorm.Session{}).
		Select("category as key, count(*) as count").
		Group("category").
		Scan(&byCategory).Error
	if err != nil {
		return nil, casaflow_errors.ErrDatabaseOperation
	}
	for _, b := range byCategory {
		stats.ByCategory[b.Key] = b.Count
	}

	var byPriority []bucket
	err = base.Session(&gorm.Session{}).
		Select("priority as key, count(*) as count").
		Group("priority").
		Scan(&byPriority).Error
	if err != nil {
		return nil, casaflow_errors.ErrDatabaseOperation
	}
	for _, b := range byPriority {
		stats.ByPriority[b.Key] = b.Count
	}

	return stats, nil
}
