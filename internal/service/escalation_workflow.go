package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/escalation"
	"github.com/straye-as/status-api/internal/logger"
	"github.com/straye-as/status-api/internal/metrics"
	"github.com/straye-as/status-api/internal/notification"
	"github.com/straye-as/status-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Escalation triggers, used as a metric label
const (
	TriggerAutomatic = "automatic"
	TriggerManual    = "manual"
)

// Notifier accepts a message for delivery after the transaction committed
type Notifier interface {
	Submit(ctx context.Context, msg notification.Message)
}

// PendingEscalation is an escalation written inside a transaction whose
// notice has not been handed to the notifier yet.
type PendingEscalation struct {
	Escalation *domain.Escalation
	Message    notification.Message
	trigger    string
}

// EscalationWorkflow turns an escalate verdict into an escalation row, inbox
// notifications for the assignees and, after commit, one outbound notice.
type EscalationWorkflow struct {
	escalationRepo   *repository.EscalationRepository
	notificationRepo *repository.NotificationRepository
	notifier         Notifier
	metrics          *metrics.Metrics
	frontendURL      string
	logger           *zap.Logger
}

// NewEscalationWorkflow creates the workflow
func NewEscalationWorkflow(
	escalationRepo *repository.EscalationRepository,
	notificationRepo *repository.NotificationRepository,
	notifier Notifier,
	m *metrics.Metrics,
	frontendURL string,
	logger *zap.Logger,
) *EscalationWorkflow {
	return &EscalationWorkflow{
		escalationRepo:   escalationRepo,
		notificationRepo: notificationRepo,
		notifier:         notifier,
		metrics:          m,
		frontendURL:      frontendURL,
		logger:           logger,
	}
}

// Record writes the escalation and the inbox notifications using tx. resp
// must have its snapshot, project and assignees loaded.
func (w *EscalationWorkflow) Record(
	ctx context.Context,
	tx *gorm.DB,
	resp *domain.Responsibility,
	actorID uuid.UUID,
	reason string,
	trigger string,
) (*PendingEscalation, error) {
	esc := &domain.Escalation{
		ResponsibilityID: resp.ID,
		Reason:           reason,
		CreatedByID:      actorID,
	}
	if err := w.escalationRepo.WithTx(tx).Create(ctx, esc); err != nil {
		return nil, fmt.Errorf("failed to create escalation: %w", err)
	}

	project := resp.ProjectStatus.Project
	notices := make([]*domain.Notification, 0, 2)
	for _, userID := range assigneeIDs(resp) {
		escalationID := esc.ID
		notices = append(notices, &domain.Notification{
			UserID:     userID,
			Type:       string(domain.NotificationTypeEscalation),
			Title:      "ESCALATION: " + project.Name,
			Message:    truncate(fmt.Sprintf("%s on %s is %s: %s", resp.Title, project.Code, resp.Status.Label(), reason), 500),
			EntityID:   &escalationID,
			EntityType: EntityEscalation,
		})
	}
	if err := w.notificationRepo.WithTx(tx).CreateBatch(ctx, notices); err != nil {
		return nil, fmt.Errorf("failed to create escalation notifications: %w", err)
	}

	rendered := escalation.Compose(project, resp, reason, w.frontendURL)
	return &PendingEscalation{
		Escalation: esc,
		Message: notification.Message{
			To:      escalation.Recipients(resp),
			Subject: rendered.Subject,
			Body:    rendered.Body,
		},
		trigger: trigger,
	}, nil
}

// Dispatch hands the notice of a committed escalation to the notifier.
// Delivery problems never reach the caller.
func (w *EscalationWorkflow) Dispatch(ctx context.Context, pending *PendingEscalation) {
	if pending == nil {
		return
	}
	if w.metrics != nil {
		w.metrics.RecordEscalation(pending.trigger)
	}

	logger.WithContext(ctx, w.logger).Info("escalation created",
		zap.String("escalation_id", pending.Escalation.ID.String()),
		zap.String("responsibility_id", pending.Escalation.ResponsibilityID.String()),
		zap.String("trigger", pending.trigger),
		zap.Int("recipients", len(pending.Message.To)),
	)

	w.notifier.Submit(ctx, pending.Message)
}

func assigneeIDs(resp *domain.Responsibility) []uuid.UUID {
	var ids []uuid.UUID
	if resp.ResponsibleID != nil {
		ids = append(ids, *resp.ResponsibleID)
	}
	if resp.DeputyID != nil && (resp.ResponsibleID == nil || *resp.DeputyID != *resp.ResponsibleID) {
		ids = append(ids, *resp.DeputyID)
	}
	return ids
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
