package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Pyrogramic/test-event-website/api/swagger"
	"github.com/Pyrogramic/test-event-website/internal/handler"
	"github.com/Pyrogramic/test-event-website/internal/middleware"
	"github.com/Pyrogramic/test-event-website/internal/models"
	"github.com/Pyrogramic/test-event-website/internal/repository"
	"github.com/Pyrogramic/test-event-website/internal/service"
	"github.com/Pyrogramic/test-event-website/pkg/cache"
	"github.com/Pyrogramic/test-event-website/pkg/config"
	"github.com/Pyrogramic/test-event-website/pkg/database"
	"github.com/Pyrogramic/test-event-website/pkg/logger"
	"github.com/Pyrogramic/test-event-website/pkg/mailer"
	corsmiddleware "github.com/Pyrogramic/test-event-website/pkg/middleware/cors"
	reqidmiddleware "github.com/Pyrogramic/test-event-website/pkg/middleware/requestid"
	"github.com/Pyrogramic/test-event-website/pkg/storage"
)

// @title Campus Events API
// @version 1.0.0
// @description Event registration and review service
// @BasePath /api
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			redisClient.Close() //nolint:errcheck
		}
	}()

	var notifier service.Notifier
	if m, err := mailer.New(cfg.SMTP); err != nil {
		logr.Sugar().Warnw("mailer unavailable, approval emails disabled", "error", err)
	} else {
		notifier = m
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, 5*time.Minute, logr, redisClient != nil)

	eventRepo := repository.NewEventRepository(db)
	regRepo := repository.NewRegistrationRepository(db)
	userRepo := repository.NewUserRepository(db)

	eventSvc := service.NewEventService(eventRepo, cacheSvc, validate, logr, cfg.Events.CacheTTL)
	regSvc := service.NewRegistrationService(eventRepo, regRepo, validate, logr)
	approvalSvc := service.NewApprovalService(regRepo, notifier, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)

	var dashboardSvc *service.DashboardService
	if cfg.Dashboard.Enabled {
		dashboardSvc = service.NewDashboardService(eventRepo, regRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(eventRepo, regRepo, store, signer, logr, service.ExportServiceConfig{
			WorkerConcurrency: cfg.Exports.WorkerConcurrency,
			WorkerRetries:     cfg.Exports.WorkerRetries,
			CleanupInterval:   cfg.Exports.CleanupInterval,
			FileTTL:           cfg.Exports.SignedURLTTL,
			DownloadBasePath:  cfg.APIPrefix + "/exports/download",
		})
		exportSvc.Start(ctx)
		defer exportSvc.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	regHandler := handler.NewRegistrationHandler(regSvc, metrics)
	approvalHandler := handler.NewApprovalHandler(approvalSvc, metrics)
	userHandler := handler.NewUserHandler(userSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/events", eventHandler.PublicList)
		api.GET("/events/:id", eventHandler.Get)
		api.POST("/registrations", regHandler.Register)
		api.POST("/admin/login", authHandler.Login)

		admin := api.Group("/admin", middleware.JWT(authSvc))
		{
			admin.GET("/verify", authHandler.Verify)

			admin.GET("/events", eventHandler.List)
			admin.POST("/events", eventHandler.Create)
			admin.PUT("/events/:id", eventHandler.Update)
			admin.DELETE("/events/:id", eventHandler.Delete)

			admin.GET("/registrations", regHandler.List)
			admin.PATCH("/registrations/:id/status", approvalHandler.UpdateStatus)
			admin.POST("/registrations/:id/resend", approvalHandler.Resend)

			if dashboardSvc != nil {
				admin.GET("/dashboard/stats", handler.NewDashboardHandler(dashboardSvc).Stats)
			}

			owner := admin.Group("", middleware.RequireRoles(models.RoleOwner))
			{
				owner.GET("/admins", userHandler.List)
				owner.POST("/admins", userHandler.Create)
				owner.PATCH("/admins/:id/toggle", userHandler.Toggle)
			}
		}

		if exportSvc != nil {
			exportHandler := handler.NewExportHandler(exportSvc)
			admin.POST("/events/:id/export", exportHandler.Request)
			admin.GET("/exports/:id", exportHandler.Status)
			api.GET("/exports/download", exportHandler.Download)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
