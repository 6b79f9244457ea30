package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/escalation"
	"github.com/straye-as/status-api/internal/logger"
	"github.com/straye-as/status-api/internal/mapper"
	"github.com/straye-as/status-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ResponsibilityService handles responsibility updates and the automatic
// escalation that follows a degrading change.
type ResponsibilityService struct {
	db          *gorm.DB
	respRepo    *repository.ResponsibilityRepository
	statusRepo  *repository.ProjectStatusRepository
	projectRepo *repository.ProjectRepository
	userRepo    *repository.UserRepository
	workflow    *EscalationWorkflow
	audit       *AuditLogService
	logger      *zap.Logger
}

// NewResponsibilityService creates a new responsibility service
func NewResponsibilityService(
	db *gorm.DB,
	respRepo *repository.ResponsibilityRepository,
	statusRepo *repository.ProjectStatusRepository,
	projectRepo *repository.ProjectRepository,
	userRepo *repository.UserRepository,
	workflow *EscalationWorkflow,
	audit *AuditLogService,
	logger *zap.Logger,
) *ResponsibilityService {
	return &ResponsibilityService{
		db:          db,
		respRepo:    respRepo,
		statusRepo:  statusRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		workflow:    workflow,
		audit:       audit,
		logger:      logger,
	}
}

// Create adds a responsibility to a snapshot. Creation is not a tracked
// update, so no escalation is evaluated.
func (s *ResponsibilityService) Create(ctx context.Context, req *domain.CreateResponsibilityRequest) (*domain.ResponsibilityDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(userCtx, auth.ActionResponsibilityCreate, auth.RelationNone); err != nil {
		return nil, err
	}

	if _, err := s.statusRepo.GetByID(ctx, req.ProjectStatusID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.FieldErrors{"projectStatus": "Status not found"}
		}
		return nil, err
	}
	if err := validateAssignees(ctx, s.userRepo, map[string]*uuid.UUID{
		"responsibleId": req.ResponsibleID,
		"deputyId":      req.DeputyID,
	}); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.HealthGreen
	}
	resp := &domain.Responsibility{
		ProjectStatusID: req.ProjectStatusID,
		Title:           req.Title,
		Status:          status,
		NeedsEscalation: req.NeedsEscalation,
		Progress:        req.Progress,
		ResponsibleID:   req.ResponsibleID,
		DeputyID:        req.DeputyID,
		Comments:        req.Comments,
	}
	if err := s.respRepo.Create(ctx, resp); err != nil {
		return nil, fmt.Errorf("failed to create responsibility: %w", err)
	}

	s.audit.Record(ctx, domain.AuditActionCreate, EntityResponsibility, resp.ID, map[string]interface{}{
		"title":  resp.Title,
		"status": resp.Status,
	})
	return s.load(ctx, resp.ID)
}

// GetByID returns a responsibility of a project visible to the caller
func (s *ResponsibilityService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ResponsibilityDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.respRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrResponsibilityNotFound)
	}
	visible, err := projectVisible(ctx, s.projectRepo, userCtx, resp.ProjectStatus.ProjectID, auth.ActionProjectListAll)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrResponsibilityNotFound
	}

	dto := mapper.ToResponsibilityDTO(resp)
	return &dto, nil
}

// List returns responsibilities of visible projects, optionally for one snapshot
func (s *ResponsibilityService) List(ctx context.Context, statusID *uuid.UUID, page, pageSize int) (*domain.PaginatedResponse, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	page, pageSize = normalizePagination(page, pageSize)

	resps, total, err := s.respRepo.List(ctx, statusID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list responsibilities: %w", err)
	}

	dtos := make([]domain.ResponsibilityDTO, len(resps))
	for i := range resps {
		dtos[i] = mapper.ToResponsibilityDTO(&resps[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// Update saves the responsibility and, when the status or the escalation
// flag changed into a degraded state, records an escalation in the same
// transaction. The notice goes out only after commit and its failure never
// fails the update.
func (s *ResponsibilityService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateResponsibilityRequest) (*domain.ResponsibilityUpdateResultDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var (
		updated *domain.Responsibility
		changes escalation.FieldChanges
		pending *PendingEscalation
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resps := s.respRepo.WithTx(tx)

		resp, err := resps.GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrResponsibilityNotFound)
		}
		if err := authorize(userCtx, auth.ActionResponsibilityUpdate, auth.RelationToResponsibility(userCtx.UserID, resp)); err != nil {
			return err
		}
		if err := validateAssignees(ctx, s.userRepo.WithTx(tx), map[string]*uuid.UUID{
			"responsibleId": req.ResponsibleID,
			"deputyId":      req.DeputyID,
		}); err != nil {
			return err
		}

		// shadow of the persisted values, scoped to this call
		changes = escalation.Track(resp, req.Status, req.NeedsEscalation)

		resp.Title = req.Title
		resp.Status = req.Status
		resp.NeedsEscalation = req.NeedsEscalation
		resp.Progress = req.Progress
		resp.ResponsibleID = req.ResponsibleID
		resp.DeputyID = req.DeputyID
		resp.Comments = req.Comments
		resp.ProjectStatus = nil
		resp.Responsible = nil
		resp.Deputy = nil

		if err := resps.Update(ctx, resp); err != nil {
			return fmt.Errorf("failed to update responsibility: %w", err)
		}

		updated, err = resps.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if escalation.Evaluate(changes) == escalation.Escalate {
			pending, err = s.workflow.Record(ctx, tx, updated, userCtx.UserID, escalation.AutomaticReason(updated.Title), TriggerAutomatic)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.workflow.Dispatch(ctx, pending)

	if changes.Any() {
		s.audit.Record(ctx, domain.AuditActionUpdate, EntityResponsibility, id, changes.Map())
	}

	result := &domain.ResponsibilityUpdateResultDTO{
		Responsibility: mapper.ToResponsibilityDTO(updated),
	}
	if pending != nil {
		escalationID := pending.Escalation.ID
		result.Escalated = true
		result.EscalationID = &escalationID
		s.audit.Record(ctx, domain.AuditActionEscalate, EntityEscalation, escalationID, map[string]interface{}{
			"responsibilityId": id,
			"trigger":          TriggerAutomatic,
		})
	}

	logger.WithContext(ctx, s.logger).Debug("responsibility updated",
		zap.String("responsibility_id", id.String()),
		zap.Bool("status_changed", changes.HasChanged(escalation.FieldStatus)),
		zap.Bool("flag_changed", changes.HasChanged(escalation.FieldNeedsEscalation)),
		zap.Bool("escalated", result.Escalated),
	)
	return result, nil
}

// Delete removes the responsibility together with its escalations
func (s *ResponsibilityService) Delete(ctx context.Context, id uuid.UUID) error {
	userCtx, err := caller(ctx)
	if err != nil {
		return err
	}
	if err := authorize(userCtx, auth.ActionResponsibilityDelete, auth.RelationNone); err != nil {
		return err
	}

	if _, err := s.respRepo.GetByID(ctx, id); err != nil {
		return notFound(err, ErrResponsibilityNotFound)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.respRepo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete responsibility: %w", err)
	}

	s.audit.Record(ctx, domain.AuditActionDelete, EntityResponsibility, id, nil)
	return nil
}

func (s *ResponsibilityService) load(ctx context.Context, id uuid.UUID) (*domain.ResponsibilityDTO, error) {
	resp, err := s.respRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrResponsibilityNotFound)
	}
	dto := mapper.ToResponsibilityDTO(resp)
	return &dto, nil
}
