// api/service/services.go
package service

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"gorm.io/gorm"

	"github.com/casaflow/api/audit"
	"github.com/casaflow/api/authz"
	"github.com/casaflow/api/dao"
	"github.com/casaflow/api/util"
)

type Services struct {
	Role         IRoleService
	Notification INotificationService
	Evaluator    *authz.Evaluator
}

func InitializeServices(
	driver neo4j.Driver,
	gormDB *gorm.DB,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	eventBus *util.EventBus,
) (*Services, error) {
	roleDAO := dao.NewRoleDAO(driver, auditService)
	membershipDAO := dao.NewMembershipDAO(driver, auditService)
	notificationDAO := dao.NewNotificationDAO(gormDB)

	evaluator := authz.NewEvaluator(membershipDAO, roleDAO)

	services := &Services{
		Role:         NewRoleService(roleDAO, membershipDAO, validationUtil, evaluator, eventBus),
		Notification: NewNotificationService(notificationDAO, validationUtil, eventBus),
		Evaluator:    evaluator,
	}

	return services, nil
}
