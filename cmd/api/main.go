package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/config"
	"github.com/straye-as/status-api/internal/database"
	"github.com/straye-as/status-api/internal/http/handler"
	"github.com/straye-as/status-api/internal/http/middleware"
	"github.com/straye-as/status-api/internal/http/router"
	"github.com/straye-as/status-api/internal/jobs"
	"github.com/straye-as/status-api/internal/logger"
	"github.com/straye-as/status-api/internal/metrics"
	"github.com/straye-as/status-api/internal/notification"
	"github.com/straye-as/status-api/internal/repository"
	"github.com/straye-as/status-api/internal/service"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Basic configuration first, for the logger
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Environment variables in development, Azure Key Vault in staging/production
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate || cfg.Database.Driver == "sqlite" {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Database schema migrated", zap.String("driver", cfg.Database.Driver))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	statusRepo := repository.NewProjectStatusRepository(db)
	respRepo := repository.NewResponsibilityRepository(db)
	escalationRepo := repository.NewEscalationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	resetRepo := repository.NewPasswordResetRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	reportRepo := repository.NewReportRepository(db)

	m := metrics.New()

	dispatcher := notification.NewDispatcher(
		notification.NewMailer(&cfg.Email, log),
		notification.DispatcherConfig{
			Async:           cfg.Notification.Async,
			Workers:         cfg.Notification.Workers,
			QueueSize:       cfg.Notification.QueueSize,
			Timeout:         cfg.Email.TimeoutDuration(),
			MaxRetryElapsed: cfg.Email.MaxRetryElapsedDuration(),
			From:            cfg.Email.From,
		},
		m,
		log,
	)

	// Services
	tokens := auth.NewTokenManager(&cfg.Auth)
	auditLogService := service.NewAuditLogService(auditRepo, log)
	workflow := service.NewEscalationWorkflow(escalationRepo, notificationRepo, dispatcher, m, cfg.App.FrontendURL, log)

	projectService := service.NewProjectService(db, projectRepo, userRepo, auditLogService, log)
	statusService := service.NewStatusService(db, statusRepo, projectRepo, respRepo, auditLogService, log)
	responsibilityService := service.NewResponsibilityService(db, respRepo, statusRepo, projectRepo, userRepo, workflow, auditLogService, log)
	escalationService := service.NewEscalationService(db, escalationRepo, respRepo, projectRepo, notificationRepo, workflow, auditLogService, m, log)
	reportService := service.NewReportService(reportRepo, respRepo, escalationRepo, log)
	userService := service.NewUserService(db, userRepo, auditLogService, cfg.Auth.BcryptCost, log)
	notificationService := service.NewNotificationService(notificationRepo, log)
	authService := service.NewAuthService(userRepo, resetRepo, tokens, dispatcher, service.AuthConfig{
		BcryptCost:  cfg.Auth.BcryptCost,
		ResetTTL:    cfg.Auth.PasswordResetDuration(),
		FrontendURL: cfg.App.FrontendURL,
	}, log)

	// Middleware and handlers
	authMiddleware := auth.NewMiddleware(tokens, userRepo, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	handlers := router.Handlers{
		Auth:           handler.NewAuthHandler(authService, log),
		Project:        handler.NewProjectHandler(projectService, statusService, log),
		Status:         handler.NewStatusHandler(statusService, log),
		Responsibility: handler.NewResponsibilityHandler(responsibilityService, log),
		Escalation:     handler.NewEscalationHandler(escalationService, log),
		User:           handler.NewUserHandler(userService, log),
		Notification:   handler.NewNotificationHandler(notificationService, log),
		Report:         handler.NewReportHandler(reportService, router.APIPrefix+"/reports", log),
		Audit:          handler.NewAuditHandler(auditLogService, log),
	}

	rt := router.NewRouter(cfg, log, db, m, authMiddleware, rateLimiter, handlers)

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterCleanupJobs(scheduler, authService, notificationService, jobs.CleanupSchedule{
			TokenCron:             cfg.Jobs.TokenCleanupCron,
			NotificationCron:      cfg.Jobs.NotificationCleanupCron,
			NotificationRetention: time.Duration(cfg.Jobs.NotificationRetention) * 24 * time.Hour,
		}, log); err != nil {
			return fmt.Errorf("failed to register jobs: %w", err)
		}
		scheduler.Start()
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
		ErrorLog:     zap.NewStdLog(log.Named("http")),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
		_ = srv.Close()
	}

	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			log.Warn("Scheduled jobs still running at shutdown deadline")
		}
	}

	// Pending notifications were queued by requests that already committed
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("Notification dispatcher did not drain", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("Server stopped")
	return nil
}
