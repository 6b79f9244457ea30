package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/logger"
	"github.com/straye-as/status-api/internal/mapper"
	"github.com/straye-as/status-api/internal/metrics"
	"github.com/straye-as/status-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EscalationService handles manual escalations, listings and resolution
type EscalationService struct {
	db               *gorm.DB
	escalationRepo   *repository.EscalationRepository
	respRepo         *repository.ResponsibilityRepository
	projectRepo      *repository.ProjectRepository
	notificationRepo *repository.NotificationRepository
	workflow         *EscalationWorkflow
	audit            *AuditLogService
	metrics          *metrics.Metrics
	logger           *zap.Logger
}

// NewEscalationService creates a new escalation service
func NewEscalationService(
	db *gorm.DB,
	escalationRepo *repository.EscalationRepository,
	respRepo *repository.ResponsibilityRepository,
	projectRepo *repository.ProjectRepository,
	notificationRepo *repository.NotificationRepository,
	workflow *EscalationWorkflow,
	audit *AuditLogService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *EscalationService {
	return &EscalationService{
		db:               db,
		escalationRepo:   escalationRepo,
		respRepo:         respRepo,
		projectRepo:      projectRepo,
		notificationRepo: notificationRepo,
		workflow:         workflow,
		audit:            audit,
		metrics:          m,
		logger:           logger,
	}
}

// Create records a manual escalation. The escalation policy is not
// consulted: a manual request always produces a row and a notice.
func (s *EscalationService) Create(ctx context.Context, req *domain.CreateEscalationRequest) (*domain.EscalationDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var pending *PendingEscalation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resp, err := s.respRepo.WithTx(tx).GetByID(ctx, req.ResponsibilityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.FieldErrors{"responsibility": "Responsibility not found"}
			}
			return err
		}
		if err := authorize(userCtx, auth.ActionEscalationCreate, auth.RelationToResponsibility(userCtx.UserID, resp)); err != nil {
			return err
		}

		pending, err = s.workflow.Record(ctx, tx, resp, userCtx.UserID, req.Reason, TriggerManual)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.workflow.Dispatch(ctx, pending)
	s.audit.Record(ctx, domain.AuditActionEscalate, EntityEscalation, pending.Escalation.ID, map[string]interface{}{
		"responsibilityId": req.ResponsibilityID,
		"trigger":          TriggerManual,
	})

	return s.load(ctx, pending.Escalation.ID)
}

// GetByID returns an escalation visible to the caller
func (s *EscalationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.EscalationDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	esc, err := s.escalationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrEscalationNotFound)
	}
	visible, err := projectVisible(ctx, s.projectRepo, userCtx, esc.Responsibility.ProjectStatus.ProjectID, auth.ActionEscalationListAll)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrEscalationNotFound
	}

	dto := mapper.ToEscalationDTO(esc)
	return &dto, nil
}

// List returns escalations visible to the caller, newest first
func (s *EscalationService) List(ctx context.Context, filters *domain.EscalationFilters, page, pageSize int) (*domain.PaginatedResponse, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	page, pageSize = normalizePagination(page, pageSize)

	escalations, total, err := s.escalationRepo.List(ctx, filters, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}

	dtos := make([]domain.EscalationDTO, len(escalations))
	for i := range escalations {
		dtos[i] = mapper.ToEscalationDTO(&escalations[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// ByProject lists every escalation of one project. The project reference
// is either a UUID or a project code.
func (s *EscalationService) ByProject(ctx context.Context, project string, filters *domain.EscalationFilters) ([]domain.EscalationDTO, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	if project == "" {
		return nil, domain.FieldErrors{"project": "project parameter is required"}
	}

	scoped := domain.EscalationFilters{}
	if filters != nil {
		scoped = *filters
	}
	ApplyProjectReference(&scoped, project)

	escalations, err := s.escalationRepo.ListAll(ctx, &scoped)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}

	dtos := make([]domain.EscalationDTO, len(escalations))
	for i := range escalations {
		dtos[i] = mapper.ToEscalationDTO(&escalations[i])
	}
	return dtos, nil
}

// Resolve closes an open escalation exactly once and tells its creator
func (s *EscalationService) Resolve(ctx context.Context, id uuid.UUID) (*domain.EscalationDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(userCtx, auth.ActionEscalationResolve, auth.RelationNone); err != nil {
		return nil, err
	}

	esc, err := s.escalationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrEscalationNotFound)
	}
	if esc.Resolved {
		return nil, ErrAlreadyResolved
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resolved, err := s.escalationRepo.WithTx(tx).Resolve(ctx, id, userCtx.UserID, now)
		if err != nil {
			return err
		}
		if !resolved {
			return ErrAlreadyResolved
		}
		if esc.CreatedByID == userCtx.UserID {
			return nil
		}

		entityID := esc.ID
		title := "Escalation resolved"
		if esc.Responsibility != nil {
			title = "Escalation resolved: " + esc.Responsibility.Title
		}
		return s.notificationRepo.WithTx(tx).Create(ctx, &domain.Notification{
			UserID:     esc.CreatedByID,
			Type:       string(domain.NotificationTypeEscalationResolved),
			Title:      truncate(title, 200),
			Message:    truncate(fmt.Sprintf("%s resolved the escalation: %s", userCtx.Username, esc.Reason), 500),
			EntityID:   &entityID,
			EntityType: EntityEscalation,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordResolution()
	}
	s.audit.Record(ctx, domain.AuditActionResolve, EntityEscalation, id, map[string]interface{}{
		"resolvedAt": now.Format(time.RFC3339),
	})
	logger.WithContext(ctx, s.logger).Info("escalation resolved",
		zap.String("escalation_id", id.String()),
		zap.String("resolved_by", userCtx.UserID.String()),
	)

	return s.load(ctx, id)
}

func (s *EscalationService) load(ctx context.Context, id uuid.UUID) (*domain.EscalationDTO, error) {
	esc, err := s.escalationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrEscalationNotFound)
	}
	dto := mapper.ToEscalationDTO(esc)
	return &dto, nil
}

// ApplyProjectReference sets the project filter from a UUID or, failing
// that, a project code.
func ApplyProjectReference(filters *domain.EscalationFilters, project string) {
	if project == "" {
		return
	}
	if id, err := uuid.Parse(project); err == nil {
		filters.ProjectID = &id
		filters.ProjectCode = ""
		return
	}
	filters.ProjectID = nil
	filters.ProjectCode = project
}
