package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/config"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/http/handler"
	"github.com/straye-as/status-api/internal/metrics"
	"github.com/straye-as/status-api/internal/notification"
	"github.com/straye-as/status-api/internal/repository"
	"github.com/straye-as/status-api/internal/service"
	"github.com/straye-as/status-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type nopMailer struct{}

func (nopMailer) Send(context.Context, notification.Message) error { return nil }

type handlers struct {
	db *gorm.DB

	auth           *handler.AuthHandler
	project        *handler.ProjectHandler
	status         *handler.StatusHandler
	responsibility *handler.ResponsibilityHandler
	escalation     *handler.EscalationHandler
	user           *handler.UserHandler
	notification   *handler.NotificationHandler
	report         *handler.ReportHandler
	audit          *handler.AuditHandler
}

func setupHandlers(t *testing.T) *handlers {
	t.Helper()

	db := testutil.SetupTestDB(t)
	log := zap.NewNop()
	m := metrics.New()

	dispatcher := notification.NewDispatcher(nopMailer{}, notification.DispatcherConfig{
		Workers:         1,
		Timeout:         200 * time.Millisecond,
		MaxRetryElapsed: 300 * time.Millisecond,
		From:            "noreply@example.com",
	}, m, log)
	t.Cleanup(func() { _ = dispatcher.Close(context.Background()) })

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	statusRepo := repository.NewProjectStatusRepository(db)
	respRepo := repository.NewResponsibilityRepository(db)
	escalationRepo := repository.NewEscalationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), log)
	workflow := service.NewEscalationWorkflow(escalationRepo, notificationRepo, dispatcher, m, "https://status.example.com", log)
	tokens := auth.NewTokenManager(&config.AuthConfig{
		JWTSecret:       "test-secret",
		Issuer:          "status-api-test",
		AccessTokenTTL:  60,
		RefreshTokenTTL: 1440,
	})

	projectSvc := service.NewProjectService(db, projectRepo, userRepo, audit, log)
	statusSvc := service.NewStatusService(db, statusRepo, projectRepo, respRepo, audit, log)
	authSvc := service.NewAuthService(userRepo, repository.NewPasswordResetRepository(db), tokens, dispatcher, service.AuthConfig{
		BcryptCost:  4,
		ResetTTL:    time.Hour,
		FrontendURL: "https://status.example.com",
	}, log)

	return &handlers{
		db:      db,
		auth:    handler.NewAuthHandler(authSvc, log),
		project: handler.NewProjectHandler(projectSvc, statusSvc, log),
		status:  handler.NewStatusHandler(statusSvc, log),
		responsibility: handler.NewResponsibilityHandler(
			service.NewResponsibilityService(db, respRepo, statusRepo, projectRepo, userRepo, workflow, audit, log), log),
		escalation: handler.NewEscalationHandler(
			service.NewEscalationService(db, escalationRepo, respRepo, projectRepo, notificationRepo, workflow, audit, m, log), log),
		user:         handler.NewUserHandler(service.NewUserService(db, userRepo, audit, 4, log), log),
		notification: handler.NewNotificationHandler(service.NewNotificationService(notificationRepo, log), log),
		report: handler.NewReportHandler(
			service.NewReportService(repository.NewReportRepository(db), respRepo, escalationRepo, log), "/api/v1/reports", log),
		audit: handler.NewAuditHandler(audit, log),
	}
}

// call runs fn against a request carrying the given user and chi URL params
func call(t *testing.T, fn http.HandlerFunc, method, target string, body interface{}, user *domain.User, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if user != nil {
		ctx = auth.WithUserContext(ctx, testutil.UserContext(user))
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	rr := httptest.NewRecorder()
	fn(rr, req.WithContext(ctx))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), target), rr.Body.String())
}

func id(v interface{ String() string }) map[string]string {
	return map[string]string{"id": v.String()}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, s)
	require.NoError(t, err)
	return d
}
