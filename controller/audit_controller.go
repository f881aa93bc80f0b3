// api/controller/audit_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/casaflow/api/audit"
	"github.com/casaflow/api/authz"
	casaflow_errors "github.com/casaflow/api/errors"
	"github.com/casaflow/api/middleware"
	"github.com/casaflow/api/registry"
	"github.com/casaflow/api/util"
	helper_util "github.com/casaflow/api/util/helper"
)

type AuditController struct {
	auditService audit.Service
	evaluator    *authz.Evaluator
}

func NewAuditController(auditService audit.Service, evaluator *authz.Evaluator) *AuditController {
	return &AuditController{
		auditService: auditService,
		evaluator:    evaluator,
	}
}

// RegisterRoutes registers the audit query routes.
func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup) {
	canManage := middleware.RequirePermission(ac.evaluator, registry.ManageSettings)
	r.GET("/audit/logs", canManage, ac.QueryLogs)
}

// QueryLogs endpoint. Defaults to the last 24 hours when no range is given.
func (ac *AuditController) QueryLogs(c *gin.Context) {
	to := time.Now()
	from := to.Add(-24 * time.Hour)

	if raw := c.Query("from"); raw != "" {
		parsed, err := helper_util.ParseTime(raw)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' timestamp", casaflow_errors.ErrInvalidPagination)
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := helper_util.ParseTime(raw)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' timestamp", casaflow_errors.ErrInvalidPagination)
			return
		}
		to = parsed
	}

	logs, err := ac.auditService.QueryLogs(c, from, to, c.Query("userId"), c.Query("resourceId"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit logs", err)
		return
	}

	c.JSON(http.StatusOK, logs)
}
