// api/router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/casaflow/api/controller"
	"github.com/casaflow/api/middleware"
	"github.com/casaflow/api/session"
)

func SetupRouter(
	controllers *controller.Controllers,
	tokens *session.TokenManager,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(tokens))

	controllers.Role.RegisterRoutes(api)
	controllers.Notification.RegisterRoutes(api)
	controllers.Identity.RegisterRoutes(api)
	controllers.Realtime.RegisterRoutes(api)
	controllers.Audit.RegisterRoutes(api)

	return router
}
