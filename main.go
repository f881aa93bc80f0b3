package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/casaflow/api/audit"
	"github.com/casaflow/api/config"
	"github.com/casaflow/api/controller"
	"github.com/casaflow/api/db"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/realtime"
	"github.com/casaflow/api/router"
	"github.com/casaflow/api/service"
	"github.com/casaflow/api/session"
	"github.com/casaflow/api/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Neo4j
	if err := db.InitNeo4j(); err != nil {
		logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
	}
	defer db.CloseNeo4j()

	// Initialize Postgres
	if err := db.InitPostgres(); err != nil {
		logger.Fatal("Failed to initialize Postgres", zap.Error(err))
	}
	defer db.ClosePostgres()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Initialize services and utilities
	validationUtil := util.NewValidationUtil()
	auditRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize Elasticsearch", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository)

	services, err := service.InitializeServices(db.Neo4jDriver, db.Postgres, auditService, validationUtil, eventBus)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	// Fan authorization invalidations out across instances. Local mutations
	// are applied synchronously in the service layer; the bus and Redis carry
	// them to everyone else.
	db.SubscribeAuthzInvalidations(ctx, services.Evaluator.ApplyInvalidation)
	publishInvalidation := func(ctx context.Context, event util.Event) error {
		authzEvent, ok := event.Payload.(model.AuthzEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T for event %s", event.Payload, event.Type)
		}
		return db.PublishAuthzInvalidation(ctx, authzEvent)
	}
	eventBus.SubscribeAll(publishInvalidation, model.EventRoleChanged, model.EventMembershipChanged)

	// Initialize the realtime hub
	hub := realtime.NewHub(realtime.RedisPresence{}, realtime.Options{
		WriteTimeout:   config.GetDuration("realtime.writeTimeout"),
		PongTimeout:    config.GetDuration("realtime.pongTimeout"),
		SendBufferSize: config.GetInt("realtime.sendBufferSize"),
	})
	hub.BindEvents(eventBus)

	// Initialize session tokens and controllers
	tokens := session.NewTokenManager(config.GetString("auth.jwtSecret"), config.GetDuration("auth.tokenTTL"))
	controllers := controller.InitializeControllers(services, hub, auditService)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	engine := router.SetupRouter(controllers, tokens, 100, time.Minute)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engine,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	hub.Shutdown()

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
