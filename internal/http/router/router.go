package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/config"
	"github.com/straye-as/status-api/internal/database"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/http/handler"
	"github.com/straye-as/status-api/internal/http/middleware"
	"github.com/straye-as/status-api/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIPrefix is where the versioned JSON API is mounted
const APIPrefix = "/api/v1"

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth           *handler.AuthHandler
	Project        *handler.ProjectHandler
	Status         *handler.StatusHandler
	Responsibility *handler.ResponsibilityHandler
	Escalation     *handler.EscalationHandler
	User           *handler.UserHandler
	Notification   *handler.NotificationHandler
	Report         *handler.ReportHandler
	Audit          *handler.AuditHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	metrics        *metrics.Metrics
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	m *metrics.Metrics,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		metrics:        m,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Metrics(rt.metrics))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))

	// Liveness
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, rt.cfg.Metrics.Path, rt.metrics.Handler())
	}

	h := rt.handlers
	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(rt.rateLimiter.LimitByIP)
		if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
			r.Use(chimiddleware.Timeout(timeout))
		}

		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Use(rt.rateLimiter.LimitAuth)
			r.Post("/register", h.Auth.Register)
			r.Post("/token", h.Auth.Token)
			r.Post("/token/refresh", h.Auth.Refresh)
			r.Post("/password-reset", h.Auth.RequestPasswordReset)
			r.Post("/password-reset/confirm", h.Auth.ConfirmPasswordReset)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", h.Project.List)
				r.Post("/", h.Project.Create)
				r.Get("/check-code", h.Project.CheckCode)
				r.Get("/{id}", h.Project.GetByID)
				r.Put("/{id}", h.Project.Update)
				r.Delete("/{id}", h.Project.Delete)
				r.Get("/{id}/status", h.Project.LatestStatus)
			})

			r.Route("/statuses", func(r chi.Router) {
				r.Get("/", h.Status.List)
				r.Post("/", h.Status.Create)
				r.Get("/{id}", h.Status.GetByID)
				r.Put("/{id}", h.Status.Update)
				r.Delete("/{id}", h.Status.Delete)
				r.Post("/{id}/save_baseline", h.Status.SaveBaseline)
				r.Post("/{id}/save_final", h.Status.SaveFinal)
				r.Post("/{id}/clone_previous", h.Status.ClonePrevious)
			})

			r.Route("/responsibilities", func(r chi.Router) {
				r.Get("/", h.Responsibility.List)
				r.Post("/", h.Responsibility.Create)
				r.Get("/{id}", h.Responsibility.GetByID)
				r.Put("/{id}", h.Responsibility.Update)
				r.Delete("/{id}", h.Responsibility.Delete)
			})

			r.Route("/escalations", func(r chi.Router) {
				r.Get("/", h.Escalation.List)
				r.Post("/", h.Escalation.Create)
				r.Get("/by_project", h.Escalation.ByProject)
				r.Get("/{id}", h.Escalation.GetByID)
				r.Post("/{id}/resolve_escalation", h.Escalation.Resolve)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.User.List)
				r.Post("/", h.User.Create)
				r.Get("/me", h.User.Me)
				r.Put("/update_password", h.User.UpdatePassword)
				r.Get("/{id}", h.User.GetByID)
				r.Put("/{id}", h.User.Update)
				r.Delete("/{id}", h.User.Delete)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Get("/unread-count", h.Notification.GetUnreadCount)
				r.Put("/read-all", h.Notification.MarkAllAsRead)
				r.Put("/{id}/read", h.Notification.MarkAsRead)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", h.Report.Index)
				r.Get("/project_summary", h.Report.ProjectSummary)
				r.Get("/user_responsibilities", h.Report.UserResponsibilities)
				r.Get("/escalation_report", h.Report.EscalationReport)
			})

			r.Route("/audit", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireRole(domain.RoleAdministrator))
				r.Get("/", h.Audit.List)
				r.Get("/entity/{entityType}/{entityId}", h.Audit.GetByEntity)
			})
		})
	})

	return r
}

// databaseHealth is the readiness probe with pool statistics
func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	stats, err := database.HealthCheckWithStats(ctx, rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}

// readiness checks every dependency the API cannot serve without
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]interface{})
	status := http.StatusOK

	if err := database.HealthCheck(ctx, rt.db); err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = map[string]interface{}{"status": "healthy"}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
