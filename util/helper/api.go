package helper_util

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/casaflow/api/model"
)

func GetPaginationParams(c *gin.Context) (limit int, offset int, err error) {
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		return 0, 0, err
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// GetNotificationFilter builds a store filter from list query parameters.
func GetNotificationFilter(c *gin.Context) (model.NotificationFilter, error) {
	limit, offset, err := GetPaginationParams(c)
	if err != nil {
		return model.NotificationFilter{}, err
	}

	filter := model.NotificationFilter{
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Priority: model.NotificationPriority(c.Query("priority")),
		Status:   model.NotificationStatus(c.Query("status")),
		Limit:    limit,
		Offset:   offset,
	}

	if raw := c.Query("isRead"); raw != "" {
		isRead, err := strconv.ParseBool(raw)
		if err != nil {
			return model.NotificationFilter{}, err
		}
		filter.IsRead = &isRead
	}

	return filter, nil
}
