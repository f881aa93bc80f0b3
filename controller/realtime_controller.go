// api/controller/realtime_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/casaflow/api/authz"
	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/realtime"
	"github.com/casaflow/api/service"
	"github.com/casaflow/api/util"
)

// RealtimeController owns the websocket handshake. Membership is verified
// before the upgrade: a caller without an active membership in the token's
// workspace is rejected at handshake time, not after connecting.
type RealtimeController struct {
	hub                 *realtime.Hub
	evaluator           *authz.Evaluator
	notificationService service.INotificationService
}

func NewRealtimeController(hub *realtime.Hub, evaluator *authz.Evaluator, notificationService service.INotificationService) *RealtimeController {
	return &RealtimeController{
		hub:                 hub,
		evaluator:           evaluator,
		notificationService: notificationService,
	}
}

// RegisterRoutes registers the websocket route.
func (rc *RealtimeController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", rc.Connect)
}

// Connect endpoint
func (rc *RealtimeController) Connect(c *gin.Context) {
	identity, err := util.GetIdentityFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", casaflow_errors.ErrUnauthorized)
		return
	}

	if !rc.evaluator.HasActiveMembership(c, identity.UserID, identity.WorkspaceID) {
		logger.Warn("Rejecting realtime handshake",
			zap.String("userID", identity.UserID),
			zap.String("workspaceID", identity.WorkspaceID))
		util.RespondWithError(c, http.StatusForbidden, "No active membership in this workspace", casaflow_errors.ErrHandshakeRejected)
		return
	}

	if err := rc.hub.ServeWS(c.Writer, c.Request, identity, rc.notificationService); err != nil {
		// Upgrade failures have already written their response.
		logger.Warn("Websocket upgrade failed",
			zap.Error(err),
			zap.String("userID", identity.UserID))
	}
}
