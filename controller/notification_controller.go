// api/controller/notification_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	casaflow_errors "github.com/casaflow/api/errors"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/service"
	"github.com/casaflow/api/util"
	helper_util "github.com/casaflow/api/util/helper"
)

type NotificationController struct {
	notificationService service.INotificationService
}

func NewNotificationController(notificationService service.INotificationService) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
	}
}

// RegisterRoutes registers the API routes for notifications. Every route is
// recipient-scoped: a caller only ever sees and mutates their own records.
func (nc *NotificationController) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", nc.ListNotifications)
		notifications.GET("/stats", nc.GetStats)
		notifications.GET("/:id", nc.GetNotification)
		notifications.POST("", nc.CreateNotification)
		notifications.PATCH("/:id/read", nc.MarkRead)
		notifications.PATCH("/read", nc.MarkManyRead)
		notifications.PATCH("/read-all", nc.MarkAllRead)
		notifications.PATCH("/:id/archive", nc.Archive)
		notifications.DELETE("/:id", nc.DeleteNotification)
	}
}

// ListNotifications endpoint
func (nc *NotificationController) ListNotifications(c *gin.Context) {
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	filter, err := helper_util.GetNotificationFilter(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid filter parameters", casaflow_errors.ErrInvalidPagination)
		return
	}

	notifications, err := nc.notificationService.List(c, identity.WorkspaceID, identity.UserID, filter)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// GetStats endpoint
func (nc *NotificationController) GetStats(c *gin.Context) {
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	stats, err := nc.notificationService.Stats(c, identity.WorkspaceID, identity.UserID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to compute stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetNotification endpoint
func (nc *NotificationController) GetNotification(c *gin.Context) {
	notification, ok := nc.ownedNotification(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, notification)
}

// CreateNotification endpoint. The workspace and triggering user always come
// from the authenticated identity, never from the body.
func (nc *NotificationController) CreateNotification(c *gin.Context) {
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	var notification model.Notification
	if err := c.ShouldBindJSON(&notification); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid notification data", casaflow_errors.ErrInvalidNotificationData)
		return
	}
	notification.WorkspaceID = identity.WorkspaceID
	notification.TriggeredByUserID = identity.UserID

	created, err := nc.notificationService.Create(c, notification)
	if err != nil {
		if errors.Is(err, casaflow_errors.ErrInvalidNotificationData) {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid notification data", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create notification", err)
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}

// MarkRead endpoint
func (nc *NotificationController) MarkRead(c *gin.Context) {
	notification, ok := nc.ownedNotification(c)
	if !ok {
		return
	}

	updated, err := nc.notificationService.MarkRead(c, notification.ID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to mark notification read", err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// MarkManyRead endpoint acknowledges a batch of ids.
func (nc *NotificationController) MarkManyRead(c *gin.Context) {
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.IDs) == 0 {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid notification ids", casaflow_errors.ErrInvalidNotificationData)
		return
	}

	// Drop ids the caller does not own before the bulk transition.
	owned := make([]string, 0, len(body.IDs))
	for _, id := range body.IDs {
		notification, err := nc.notificationService.Get(c, id)
		if err != nil {
			continue
		}
		if notification.RecipientUserID == identity.UserID && notification.WorkspaceID == identity.WorkspaceID {
			owned = append(owned, id)
		}
	}

	count, err := nc.notificationService.MarkManyRead(c, owned)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to mark notifications read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": count})
}

// MarkAllRead endpoint
func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	count, err := nc.notificationService.MarkAllRead(c, identity.WorkspaceID, identity.UserID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to mark notifications read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": count})
}

// Archive endpoint
func (nc *NotificationController) Archive(c *gin.Context) {
	notification, ok := nc.ownedNotification(c)
	if !ok {
		return
	}

	updated, err := nc.notificationService.Archive(c, notification.ID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to archive notification", err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteNotification endpoint
func (nc *NotificationController) DeleteNotification(c *gin.Context) {
	notification, ok := nc.ownedNotification(c)
	if !ok {
		return
	}

	if err := nc.notificationService.Delete(c, notification.ID); err != nil {
		if errors.Is(err, casaflow_errors.ErrNotificationNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Notification not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete notification", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// ownedNotification loads the :id record and verifies it belongs to the
// caller. Records of other recipients answer not-found, never forbidden, so
// ids cannot be probed across users.
func (nc *NotificationController) ownedNotification(c *gin.Context) (*model.Notification, bool) {
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return nil, false
	}

	notification, err := nc.notificationService.Get(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, casaflow_errors.ErrNotificationNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Notification not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve notification", err)
		}
		return nil, false
	}
	if notification.RecipientUserID != identity.UserID || notification.WorkspaceID != identity.WorkspaceID {
		util.RespondWithError(c, http.StatusNotFound, "Notification not found", casaflow_errors.ErrNotificationNotFound)
		return nil, false
	}
	return notification, true
}
