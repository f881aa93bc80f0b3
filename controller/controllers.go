// api/controller/controllers.go
package controller

import (
	"github.com/casaflow/api/audit"
	"github.com/casaflow/api/realtime"
	"github.com/casaflow/api/service"
)

type Controllers struct {
	Role         *RoleController
	Notification *NotificationController
	Identity     *IdentityController
	Realtime     *RealtimeController
	Audit        *AuditController
}

func InitializeControllers(services *service.Services, hub *realtime.Hub, auditService audit.Service) *Controllers {
	return &Controllers{
		Role:         NewRoleController(services.Role, services.Evaluator),
		Notification: NewNotificationController(services.Notification),
		Identity:     NewIdentityController(services.Evaluator),
		Realtime:     NewRealtimeController(hub, services.Evaluator, services.Notification),
		Audit:        NewAuditController(auditService, services.Evaluator),
	}
}
