package main

import (
	"context"
	"os"
	"time"

	_ "erp-backend/api/swagger" // swagger docs
	"erp-backend/internal/database"
	"erp-backend/internal/handler"
	"erp-backend/internal/middleware"
	"erp-backend/internal/repository"
	"erp-backend/internal/service"
	"erp-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// @title           Construction ERP Workflow API
// @version         1.0
// @description     Approval workflow engine for construction ERP records.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if err := godotenv.Load("configs/.env"); err != nil {
		log.Debug().Msg("no configs/.env file found")
	}

	dsn := "postgres://" + envOr("DB_USER", "postgres") +
		":" + envOr("DB_PASSWORD", "postgres") +
		"@" + envOr("DB_HOST", "localhost") +
		":" + envOr("DB_PORT", "5432") +
		"/" + envOr("DB_NAME", "postgres") +
		"?sslmode=" + envOr("DB_SSLMODE", "disable")

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to PostgreSQL")

	if err := database.Seed(context.Background(), db, log); err != nil {
		log.Fatal().Err(err).Msg("database seeding failed")
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	entityRepo := repository.NewEntityRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	flowRepo := repository.NewFlowRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)

	permissionService := service.NewPermissionService(permRepo, log)
	entityService := service.NewEntityService(txManager, entityRepo, auditRepo, log)
	approvalService := service.NewApprovalService(txManager, entityRepo, approvalRepo, flowRepo, auditRepo, permissionService, wsHub, log)
	inboxService := service.NewInboxService(approvalRepo, flowRepo, permissionService)
	settingsService := service.NewSettingsService(txManager, permRepo, flowRepo, auditRepo, permissionService, log)
	userService := service.NewUserService(userRepo, permissionService)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	entityHandler := handler.NewEntityHandler(entityService, approvalService, permissionService)
	approvalHandler := handler.NewApprovalHandler(approvalService, inboxService)
	settingsHandler := handler.NewSettingsHandler(settingsService, permissionService)
	userHandler := handler.NewUserHandler(userService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	entityHandler.RegisterRoutes(router.Group(""))
	approvalHandler.RegisterRoutes(router.Group(""))
	settingsHandler.RegisterRoutes(router.Group(""))
	userHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")
	log.Info().Str("port", port).Msg("server listening")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
