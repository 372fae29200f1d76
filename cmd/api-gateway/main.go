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

	_ "github.com/r2suporte/interalpha-api/api/swagger"
	"github.com/r2suporte/interalpha-api/internal/handler"
	"github.com/r2suporte/interalpha-api/internal/middleware"
	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/internal/repository"
	"github.com/r2suporte/interalpha-api/internal/service"
	"github.com/r2suporte/interalpha-api/pkg/cache"
	"github.com/r2suporte/interalpha-api/pkg/config"
	"github.com/r2suporte/interalpha-api/pkg/database"
	"github.com/r2suporte/interalpha-api/pkg/jobs"
	"github.com/r2suporte/interalpha-api/pkg/logger"
	corsmiddleware "github.com/r2suporte/interalpha-api/pkg/middleware/cors"
	reqidmiddleware "github.com/r2suporte/interalpha-api/pkg/middleware/requestid"
	"github.com/r2suporte/interalpha-api/pkg/notify"
	"github.com/r2suporte/interalpha-api/pkg/storage"
)

// @title InterAlpha API
// @version 1.0.0
// @description Repair shop management API with audit, security and retention tooling
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
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	securityRepo := repository.NewSecurityEventRepository(db)
	retentionRepo := repository.NewRetentionPolicyRepository(db)
	alertRuleRepo := repository.NewAlertRuleRepository(db)
	reportRepo := repository.NewReportRepository(db)
	clientRepo := repository.NewClientRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	partRepo := repository.NewPartRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	metricsSvc := service.NewMetricsService()

	// Alert delivery runs through a worker queue; the handler closure binds
	// to the service constructed right after the queue.
	var alertSvc *service.AlertService
	alertQueue := jobs.NewQueue("alerts", func(ctx context.Context, job jobs.Job) error {
		return alertSvc.HandleJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Alerts.WorkerConcurrency,
		MaxRetries: cfg.Alerts.WorkerRetries,
		RetryDelay: cfg.Alerts.RetryDelay,
		Logger:     logr,
	})
	alertSvc = service.NewAlertService(alertQueue, notify.NewLogTransport(logr), redisClient, logr, cfg.Alerts)
	alertSvc.AttachMetrics(metricsSvc)

	// The audit service and the security pipeline reference each other
	// through the detector, so the detector binds after both exist.
	auditSvc := service.NewAuditService(auditRepo, nil, logr)
	securitySvc := service.NewSecurityService(securityRepo, alertRuleRepo, alertSvc, auditSvc, redisClient, logr, cfg.Security)
	securitySvc.AttachMetrics(metricsSvc)
	detector := service.NewDetector(auditRepo, securitySvc, logr, cfg.Security)
	auditSvc.AttachDetector(detector)

	retentionSvc := service.NewRetentionService(retentionRepo, map[models.RetentionDataType]service.RetentionTarget{
		models.RetentionAuditLogs:      service.NewAuditEntriesTarget(auditRepo),
		models.RetentionAccessLogs:     service.NewAccessLogsTarget(auditRepo),
		models.RetentionSecurityEvents: securityRepo,
	}, auditSvc, logr)
	retentionSvc.AttachMetrics(metricsSvc)

	alertRuleSvc := service.NewAlertRuleService(alertRuleRepo, logr)

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	var reportSvc *service.ReportService
	reportQueue := jobs.NewQueue("reports", func(ctx context.Context, job jobs.Job) error {
		return reportSvc.HandleJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc = service.NewReportService(reportRepo, auditRepo, securityRepo, retentionRepo, reportQueue, reportStore, signer, logr)

	authSvc := service.NewAuthService(userRepo, auditSvc, securitySvc, validator.New(), logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: "interalpha-api",
	})

	clientSvc := service.NewClientService(clientRepo, auditSvc, logr)
	partSvc := service.NewPartService(partRepo, auditSvc, logr)
	orderSvc := service.NewOrderService(orderRepo, clientSvc, partSvc, paymentRepo, auditSvc, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, orderSvc, auditSvc, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, redisClient, logr, cfg.Dashboard.CacheTTL)

	alertQueue.Start(ctx)
	defer alertQueue.Stop()
	reportQueue.Start(ctx)
	defer reportQueue.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	securityHandler := handler.NewSecurityHandler(securitySvc)
	retentionHandler := handler.NewRetentionHandler(retentionSvc)
	alertHandler := handler.NewAlertHandler(alertRuleSvc, alertSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	clientHandler := handler.NewClientHandler(clientSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	partHandler := handler.NewPartHandler(partSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
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

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	if cfg.Reports.Enabled {
		// Download auth is the signed token itself.
		api.GET("/reports/download", reportHandler.Download)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.GET("/auth/me", authHandler.Me)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/audit/entries", auditHandler.Record)
		admin.GET("/audit/entries", auditHandler.ListEntries)
		admin.GET("/audit/access-logs", auditHandler.ListAccessLogs)

		admin.POST("/security/events", securityHandler.Record)
		admin.GET("/security/events", securityHandler.List)
		admin.GET("/security/events/:id", securityHandler.Get)
		admin.POST("/security/events/:id/resolve", securityHandler.Resolve)

		admin.GET("/alerts/rules", alertHandler.List)
		admin.GET("/alerts/rules/:id", alertHandler.Get)
		admin.POST("/alerts/rules", middleware.Audit(auditSvc, "alert_rule.create", "alert_rule"), alertHandler.Create)
		admin.PUT("/alerts/rules/:id", middleware.Audit(auditSvc, "alert_rule.update", "alert_rule"), alertHandler.Update)
		admin.DELETE("/alerts/rules/:id", middleware.Audit(auditSvc, "alert_rule.delete", "alert_rule"), alertHandler.Delete)
		admin.POST("/alerts/test", alertHandler.SendTest)

		admin.GET("/metrics/summary", metricsHandler.Snapshot)

		if cfg.Retention.Enabled {
			admin.POST("/retention/policies", middleware.Audit(auditSvc, "retention_policy.create", "data_retention_policy"), retentionHandler.Create)
			admin.GET("/retention/policies", retentionHandler.List)
			admin.GET("/retention/policies/:id", retentionHandler.Get)
			admin.PUT("/retention/policies/:id", middleware.Audit(auditSvc, "retention_policy.update", "data_retention_policy"), retentionHandler.Update)
			admin.DELETE("/retention/policies/:id", middleware.Audit(auditSvc, "retention_policy.delete", "data_retention_policy"), retentionHandler.Delete)
			admin.POST("/retention/policies/:id/execute", retentionHandler.Execute)
		}

		if cfg.Reports.Enabled {
			admin.POST("/reports", reportHandler.Generate)
			admin.GET("/reports", reportHandler.List)
			admin.GET("/reports/:id", reportHandler.Get)
			admin.GET("/reports/:id/findings", reportHandler.ListFindings)
			admin.PATCH("/reports/findings/:findingId", reportHandler.UpdateFindingStatus)
		}

		if cfg.Dashboard.Enabled {
			admin.GET("/dashboard", dashboardHandler.Overview)
		}
	}

	front := authed.Group("")
	front.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleReception))
	{
		front.POST("/clients", clientHandler.Create)
		front.GET("/clients", clientHandler.List)
		front.GET("/clients/:id", clientHandler.Get)
		front.PUT("/clients/:id", clientHandler.Update)
		front.DELETE("/clients/:id", clientHandler.Delete)

		front.POST("/payments", paymentHandler.Create)
		front.GET("/payments", paymentHandler.List)
	}

	shop := authed.Group("")
	shop.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTechnician, models.RoleReception))
	{
		shop.POST("/orders", orderHandler.Create)
		shop.GET("/orders", orderHandler.List)
		shop.GET("/orders/:id", orderHandler.Get)
		shop.PUT("/orders/:id", orderHandler.Update)
		shop.PATCH("/orders/:id/status", orderHandler.Transition)
		shop.POST("/orders/:id/parts", orderHandler.AddPart)
	}

	inventory := authed.Group("")
	inventory.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTechnician))
	{
		inventory.POST("/parts", partHandler.Create)
		inventory.GET("/parts", partHandler.List)
		inventory.GET("/parts/:id", partHandler.Get)
		inventory.PUT("/parts/:id", partHandler.Update)
		inventory.PATCH("/parts/:id/stock", partHandler.AdjustStock)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
