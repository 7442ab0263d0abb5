package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fleetworks/motorpool-api/api/swagger"
	"github.com/fleetworks/motorpool-api/internal/handler"
	"github.com/fleetworks/motorpool-api/internal/middleware"
	"github.com/fleetworks/motorpool-api/internal/models"
	"github.com/fleetworks/motorpool-api/internal/repository"
	"github.com/fleetworks/motorpool-api/internal/service"
	"github.com/fleetworks/motorpool-api/pkg/cache"
	"github.com/fleetworks/motorpool-api/pkg/config"
	"github.com/fleetworks/motorpool-api/pkg/database"
	"github.com/fleetworks/motorpool-api/pkg/jobs"
	"github.com/fleetworks/motorpool-api/pkg/logger"
	corsmiddleware "github.com/fleetworks/motorpool-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fleetworks/motorpool-api/pkg/middleware/requestid"
)

// @title Motorpool API
// @version 1.0.0
// @description Fleet trip request and approval workflow service
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
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	requestRepo := repository.NewRequestRepository(db, cfg.Approvals.LockTimeout)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(notificationRepo, logr)

	queue := jobs.NewQueue("notifications", notificationSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
		OnDepth:    metricsSvc.SetQueueDepth,
	})
	queue.Start(ctx)
	notificationSvc.Bind(queue)

	store := service.RequestStoreFunc(func(ctx context.Context) (service.RequestTx, error) {
		return requestRepo.Begin(ctx)
	})

	approvalSvc := service.NewApprovalService(store, userRepo, notificationSvc, logr,
		service.WithApprovalMetrics(metricsSvc))
	tripSvc := service.NewTripService(store, userRepo, notificationSvc, logr)
	requestSvc := service.NewRequestService(requestRepo, logr)
	conflictSvc := service.NewConflictService(requestRepo, logr)
	reportSvc := service.NewReportService(reportRepo, redisClient, cfg.Reports.CacheTTL, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "motorpool-api",
	})

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc, conflictSvc)
	requestHandler := handler.NewRequestHandler(requestSvc, tripSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	reportHandler := handler.NewReportHandler(reportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/requests", requestHandler.List)
		protected.GET("/requests/:id", requestHandler.Get)
		protected.POST("/requests/:id/cancel", approvalHandler.Cancel)

		protected.POST("/requests/:id/approval",
			middleware.RequireRoles(models.RoleApprover, models.RoleMotorpool, models.RoleAdmin),
			approvalHandler.Process)

		protected.POST("/requests/:id/dispatch",
			middleware.RequireRoles(models.RoleGuard, models.RoleAdmin),
			requestHandler.Dispatch)
		protected.POST("/requests/:id/arrival",
			middleware.RequireRoles(models.RoleGuard, models.RoleAdmin),
			requestHandler.Arrival)

		protected.GET("/conflicts",
			middleware.RequireRoles(models.RoleApprover, models.RoleMotorpool, models.RoleAdmin),
			approvalHandler.CheckConflicts)

		protected.GET("/notifications", notificationHandler.List)
		protected.POST("/notifications/:id/read", notificationHandler.MarkRead)

		if cfg.Reports.Enabled {
			protected.GET("/reports/usage",
				middleware.RequireRoles(models.RoleMotorpool, models.RoleAdmin),
				middleware.Audit(userRepo, "REPORT_VIEW", "report"),
				reportHandler.Usage)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown error", "error", err)
	}
	// Drain in-flight notification jobs before exiting.
	queue.Stop()
}
