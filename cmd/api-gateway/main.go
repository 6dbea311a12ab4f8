package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/report-workflow-api/api/swagger"
	"github.com/noah-isme/report-workflow-api/internal/handler"
	"github.com/noah-isme/report-workflow-api/internal/middleware"
	"github.com/noah-isme/report-workflow-api/internal/models"
	"github.com/noah-isme/report-workflow-api/internal/repository"
	"github.com/noah-isme/report-workflow-api/internal/service"
	"github.com/noah-isme/report-workflow-api/pkg/cache"
	"github.com/noah-isme/report-workflow-api/pkg/config"
	"github.com/noah-isme/report-workflow-api/pkg/database"
	"github.com/noah-isme/report-workflow-api/pkg/logger"
	"github.com/noah-isme/report-workflow-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/report-workflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/report-workflow-api/pkg/middleware/requestid"
	"github.com/noah-isme/report-workflow-api/pkg/storage"
)

// @title Report Workflow API
// @version 1.0.0
// @description Role-based academic report submission and review workflow
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metricsService := service.NewMetricsService()

	// Redis is optional: without it dashboards recompute on every request.
	var cacheService *service.CacheService
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Dashboard.CacheTTL, logr, true)
	}

	uploadStore, err := storage.NewUploadStore(cfg.Uploads.StorageDir, cfg.Uploads.PublicPrefix)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	notificationService := service.NewNotificationService(
		mailer.New(mailer.Config{
			Enabled:  cfg.Mail.Enabled,
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}),
		cfg.Mail.Workers, cfg.Mail.BufferSize, logr,
	)
	notificationService.Start(context.Background())
	defer notificationService.Stop()

	authService := service.NewAuthService(userRepo, activityRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "report-workflow-api",
	})
	userService := service.NewUserService(userRepo, activityRepo, validate, logr)
	reportService := service.NewReportService(reportRepo, userRepo, uploadStore, activityRepo, notificationService, service.ReportConfig{
		MaxFileSizeBytes:  cfg.Uploads.MaxFileSizeBytes,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
	}, validate, logr)
	assignmentService := service.NewAssignmentService(assignmentRepo, userRepo, activityRepo, validate, logr)
	feedbackService := service.NewFeedbackService(feedbackRepo, reportRepo, activityRepo, notificationService, validate, logr)
	fileService := service.NewFileService(uploadStore, reportRepo, activityRepo, service.FileConfig{
		MaxFileSizeBytes:   cfg.Files.MaxFileSizeBytes,
		EditableExtensions: cfg.Files.EditableExtensions,
		PreviewExtensions:  cfg.Files.PreviewExtensions,
	}, logr)
	statsService := service.NewStatsService(statsRepo, assignmentRepo, activityRepo, feedbackRepo, reportRepo, cacheService, cfg.Dashboard.CacheTTL, logr)
	activityService := service.NewActivityService(activityRepo, logr)
	exportService := service.NewExportService(reportRepo, logr)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	reportHandler := handler.NewReportHandler(reportService, feedbackService, exportService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	fileHandler := handler.NewFileHandler(fileService)
	dashboardHandler := handler.NewDashboardHandler(statsService, activityService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

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

	student := string(models.RoleStudent)
	supervisor := string(models.RoleSupervisor)
	coordinator := string(models.RoleLevelCoordinator)
	hod := string(models.RoleHOD)
	admin := string(models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
		auth.PUT("/password", middleware.JWT(authService), authHandler.ChangePassword)
	}

	users := api.Group("/users", middleware.JWT(authService))
	{
		users.POST("", middleware.RBAC(admin), userHandler.Create)
		users.GET("", middleware.RBAC(admin), userHandler.List)
		users.GET("/:id", middleware.RBAC(admin, "SELF"), userHandler.Get)
		users.PUT("/:id", middleware.RBAC(admin), userHandler.Update)
		users.DELETE("/:id", middleware.RBAC(admin), userHandler.Delete)
	}

	reports := api.Group("/reports", middleware.JWT(authService))
	{
		reports.POST("", middleware.RBAC(student), reportHandler.Submit)
		reports.GET("/mine", middleware.RBAC(student), reportHandler.ListMine)
		reports.GET("/history", middleware.RBAC(student), reportHandler.History)
		reports.PUT("/:id/reupload", middleware.RBAC(student), reportHandler.Reupload)
		reports.GET("", middleware.RBAC(supervisor, hod, admin), reportHandler.List)
		reports.GET("/export", middleware.RBAC(supervisor, hod, admin), reportHandler.Export)
		reports.GET("/:id", reportHandler.Get)
		reports.POST("/:id/feedback", middleware.RBAC(supervisor), reportHandler.PostFeedback)
		reports.POST("/:id/next-stage", middleware.RBAC(supervisor), reportHandler.AdvanceStage)
		reports.POST("/:id/hod-feedback", middleware.RBAC(hod), reportHandler.PostHODFeedback)
	}

	assignments := api.Group("/assignments", middleware.JWT(authService))
	{
		assignments.POST("", middleware.RBAC(coordinator), assignmentHandler.Create)
		assignments.DELETE("/:id", middleware.RBAC(coordinator), assignmentHandler.Delete)
		assignments.GET("", middleware.RBAC(coordinator, supervisor, hod, admin), assignmentHandler.List)
		assignments.GET("/history", middleware.RBAC(coordinator, hod, admin), assignmentHandler.History)
	}

	files := api.Group("/files", middleware.JWT(authService))
	{
		files.GET("/:id", fileHandler.Info)
		files.GET("/:id/download", fileHandler.Download)
		files.GET("/:id/preview", fileHandler.Preview)
		files.GET("/:id/content", middleware.RBAC(supervisor, admin), fileHandler.Content)
		files.PUT("/:id/content", middleware.RBAC(supervisor, admin), fileHandler.UpdateContent)
	}

	api.GET("/supervisors/available", middleware.JWT(authService), middleware.RBAC(coordinator, hod, admin), dashboardHandler.AvailableSupervisors)

	if cfg.Dashboard.Enabled {
		dashboard := api.Group("/dashboard", middleware.JWT(authService))
		{
			dashboard.GET("/admin", middleware.RBAC(admin), dashboardHandler.Admin)
			dashboard.GET("/supervisor", middleware.RBAC(supervisor), dashboardHandler.Supervisor)
			dashboard.GET("/coordinator", middleware.RBAC(coordinator), dashboardHandler.Coordinator)
			dashboard.GET("/hod", middleware.RBAC(hod), dashboardHandler.HOD)
		}
	}

	activity := api.Group("/activity", middleware.JWT(authService))
	{
		activity.GET("", middleware.RBAC(admin), dashboardHandler.Activity)
		activity.GET("/:id", middleware.RBAC(admin, "SELF"), dashboardHandler.UserActivity)
	}

	api.GET("/metrics/snapshot", middleware.JWT(authService), middleware.RBAC(admin), metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
