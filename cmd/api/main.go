package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/plumbdesk/plumbdesk-api/api/swagger"
	"github.com/plumbdesk/plumbdesk-api/internal/handler"
	"github.com/plumbdesk/plumbdesk-api/internal/middleware"
	"github.com/plumbdesk/plumbdesk-api/internal/models"
	"github.com/plumbdesk/plumbdesk-api/internal/repository"
	"github.com/plumbdesk/plumbdesk-api/internal/service"
	"github.com/plumbdesk/plumbdesk-api/pkg/cache"
	"github.com/plumbdesk/plumbdesk-api/pkg/config"
	"github.com/plumbdesk/plumbdesk-api/pkg/database"
	"github.com/plumbdesk/plumbdesk-api/pkg/export"
	"github.com/plumbdesk/plumbdesk-api/pkg/logger"
	corsmiddleware "github.com/plumbdesk/plumbdesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/plumbdesk/plumbdesk-api/pkg/middleware/requestid"
)

// @title PlumbDesk API
// @version 1.0.0
// @description Job tracking and messaging API for a plumbing business
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, analytics caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	jobRepo := repository.NewJobRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "plumbdesk-api",
		SingleSession:      cfg.JWT.SingleSession,
	})
	employeeSvc := service.NewEmployeeService(userRepo, validate, logr)
	jobSvc := service.NewJobService(jobRepo, userRepo, cacheSvc, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	messageSvc := service.NewMessageService(messageRepo, userRepo, jobRepo, validate, logr, cfg.Messages.MaxContentLength)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metricsSvc, logr)
	exportSvc := service.NewExportService(jobRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	authHandler := handler.NewAuthHandler(authSvc)
	jobHandler := handler.NewJobHandler(jobSvc, employeeSvc, exportSvc)
	employeeHandler := handler.NewEmployeeHandler(employeeSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.Auth(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.Auth(authSvc), authHandler.Me)
		auth.PATCH("/updateUser", middleware.Auth(authSvc), authHandler.UpdateProfile)
	}

	jobs := api.Group("/jobs", middleware.Auth(authSvc))
	{
		jobs.GET("", jobHandler.List)
		jobs.POST("", jobHandler.Create)
		jobs.GET("/stats", jobHandler.Stats)
		jobs.GET("/contractors", jobHandler.Contractors)
		jobs.GET("/export", jobHandler.Export)
		jobs.GET("/:id", jobHandler.Get)
		jobs.PATCH("/:id", jobHandler.Update)
		jobs.DELETE("/:id", jobHandler.Delete)
		jobs.PATCH("/:id/accept", middleware.RequireRoles(models.RoleContractor), jobHandler.Accept)
		jobs.PATCH("/:id/reject", middleware.RequireRoles(models.RoleContractor), jobHandler.Reject)
	}

	employees := api.Group("/employees", middleware.Auth(authSvc))
	{
		employees.GET("/messaging", employeeHandler.MessagingDirectory)
		employees.GET("", middleware.RequireRoles(models.RoleAdmin), employeeHandler.List)
		employees.POST("", middleware.RequireRoles(models.RoleAdmin), employeeHandler.Create)
		employees.GET("/:id", middleware.RequireRoles(models.RoleAdmin), employeeHandler.Get)
		employees.PATCH("/:id", middleware.RequireRoles(models.RoleAdmin), employeeHandler.Update)
		employees.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), employeeHandler.Delete)
	}

	messages := api.Group("/messages", middleware.Auth(authSvc))
	{
		messages.POST("", messageHandler.Send)
		messages.GET("/job/:jobId", messageHandler.JobMessages)
		messages.GET("/receptionist", messageHandler.Inbox)
		messages.GET("/contractor", messageHandler.Sent)
		messages.GET("/direct", messageHandler.Direct)
		messages.GET("/conversation/:userId", messageHandler.Conversation)
		messages.DELETE("/:id", messageHandler.Delete)
	}

	notifications := api.Group("/notifications", middleware.Auth(authSvc))
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.PATCH("/mark-all-read", notificationHandler.MarkAllRead)
		notifications.PATCH("/:id", notificationHandler.MarkRead)
		notifications.DELETE("/:id", notificationHandler.Delete)
	}

	analytics := api.Group("/analytics", middleware.Auth(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		analytics.GET("/job-status", analyticsHandler.JobStatus)
		analytics.GET("/assignment-status", analyticsHandler.AssignmentStatus)
		analytics.GET("/contractor-workload", analyticsHandler.ContractorWorkload)
		analytics.GET("/jobs-by-date", analyticsHandler.JobsByDate)
		analytics.GET("/jobs-for-date", analyticsHandler.JobsForDate)
		analytics.GET("/system", analyticsHandler.System)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
