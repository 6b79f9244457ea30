package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/config"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/metrics"
	"github.com/straye-as/status-api/internal/notification"
	"github.com/straye-as/status-api/internal/repository"
	"github.com/straye-as/status-api/internal/service"
	"github.com/straye-as/status-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []notification.Message
	fail bool
}

func (f *fakeMailer) Send(_ context.Context, msg notification.Message) error {
	if f.fail {
		return errors.New("smtp: connection refused")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) Sent() []notification.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification.Message(nil), f.sent...)
}

// harness wires the services the way cmd/api does, over an in-memory
// database and a synchronous dispatcher.
type harness struct {
	db      *gorm.DB
	mailer  *fakeMailer
	metrics *metrics.Metrics

	users         *repository.UserRepository
	escalations   *repository.EscalationRepository
	notifications *repository.NotificationRepository

	projectSvc        *service.ProjectService
	statusSvc         *service.StatusService
	responsibilitySvc *service.ResponsibilityService
	escalationSvc     *service.EscalationService
	reportSvc         *service.ReportService
	userSvc           *service.UserService
	authSvc           *service.AuthService
	notificationSvc   *service.NotificationService
	auditSvc          *service.AuditLogService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := testutil.SetupTestDB(t)
	log := zap.NewNop()
	m := metrics.New()
	mailer := &fakeMailer{}

	dispatcher := notification.NewDispatcher(mailer, notification.DispatcherConfig{
		Async:           false,
		Workers:         2,
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
	resetRepo := repository.NewPasswordResetRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	reportRepo := repository.NewReportRepository(db)

	audit := service.NewAuditLogService(auditRepo, log)
	workflow := service.NewEscalationWorkflow(escalationRepo, notificationRepo, dispatcher, m, "https://status.example.com", log)
	tokens := auth.NewTokenManager(&config.AuthConfig{
		JWTSecret:       "test-secret",
		Issuer:          "status-api-test",
		AccessTokenTTL:  60,
		RefreshTokenTTL: 1440,
	})

	return &harness{
		db:            db,
		mailer:        mailer,
		metrics:       m,
		users:         userRepo,
		escalations:   escalationRepo,
		notifications: notificationRepo,

		projectSvc:        service.NewProjectService(db, projectRepo, userRepo, audit, log),
		statusSvc:         service.NewStatusService(db, statusRepo, projectRepo, respRepo, audit, log),
		responsibilitySvc: service.NewResponsibilityService(db, respRepo, statusRepo, projectRepo, userRepo, workflow, audit, log),
		escalationSvc:     service.NewEscalationService(db, escalationRepo, respRepo, projectRepo, notificationRepo, workflow, audit, m, log),
		reportSvc:         service.NewReportService(reportRepo, respRepo, escalationRepo, log),
		userSvc:           service.NewUserService(db, userRepo, audit, 4, log),
		authSvc: service.NewAuthService(userRepo, resetRepo, tokens, dispatcher, service.AuthConfig{
			BcryptCost:  4,
			ResetTTL:    time.Hour,
			FrontendURL: "https://status.example.com",
		}, log),
		notificationSvc: service.NewNotificationService(notificationRepo, log),
		auditSvc:        audit,
	}
}

func as(u *domain.User) context.Context {
	return auth.WithUserContext(context.Background(), testutil.UserContext(u))
}

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
