package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/logger"
	"github.com/straye-as/status-api/internal/mapper"
	"github.com/straye-as/status-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultResponsibilityTitles are seeded on the first snapshot of a project
var DefaultResponsibilityTitles = []string{
	"Project Estimate",
	"Quality Planning",
	"Supply Chain",
	"Customer Approval",
	"Production Readiness",
}

// StatusService manages the lifecycle of dated project status snapshots
type StatusService struct {
	db          *gorm.DB
	statusRepo  *repository.ProjectStatusRepository
	projectRepo *repository.ProjectRepository
	respRepo    *repository.ResponsibilityRepository
	audit       *AuditLogService
	logger      *zap.Logger
}

// NewStatusService creates a new status service
func NewStatusService(
	db *gorm.DB,
	statusRepo *repository.ProjectStatusRepository,
	projectRepo *repository.ProjectRepository,
	respRepo *repository.ResponsibilityRepository,
	audit *AuditLogService,
	logger *zap.Logger,
) *StatusService {
	return &StatusService{
		db:          db,
		statusRepo:  statusRepo,
		projectRepo: projectRepo,
		respRepo:    respRepo,
		audit:       audit,
		logger:      logger,
	}
}

// Create adds a snapshot, writes its phase onto the project and seeds the
// default responsibilities when it is the project's first snapshot. All of
// it commits together or not at all.
func (s *StatusService) Create(ctx context.Context, req *domain.CreateProjectStatusRequest) (*domain.ProjectStatusDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(userCtx, auth.ActionStatusCreate, auth.RelationNone); err != nil {
		return nil, err
	}
	if req.ProjectID == nil {
		return nil, domain.FieldErrors{"project_id": "project_id query parameter is required."}
	}

	statusDate := today()
	if req.StatusDate != "" {
		errs := domain.FieldErrors{}
		statusDate = parseDate("statusDate", req.StatusDate, errs)
		if len(errs) > 0 {
			return nil, errs
		}
	}

	creatorID := userCtx.UserID
	status := &domain.ProjectStatus{
		ProjectID:   *req.ProjectID,
		StatusDate:  statusDate,
		Phase:       req.Phase,
		Notes:       req.Notes,
		CreatedByID: &creatorID,
	}
	seeded := 0

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projects := s.projectRepo.WithTx(tx)
		statuses := s.statusRepo.WithTx(tx)

		// the lock serializes concurrent first snapshots of one project
		if _, err := projects.LockForUpdate(ctx, *req.ProjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.FieldErrors{"project_id": "Project not found."}
			}
			return err
		}

		existing, err := statuses.CountByProject(ctx, *req.ProjectID)
		if err != nil {
			return err
		}

		if err := statuses.Create(ctx, status); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateStatusDate
			}
			return fmt.Errorf("failed to create status: %w", err)
		}

		if err := projects.UpdatePhase(ctx, *req.ProjectID, req.Phase); err != nil {
			return fmt.Errorf("failed to update project phase: %w", err)
		}

		if existing > 0 {
			return nil
		}

		defaults := make([]*domain.Responsibility, len(DefaultResponsibilityTitles))
		for i, title := range DefaultResponsibilityTitles {
			defaults[i] = &domain.Responsibility{
				ProjectStatusID: status.ID,
				Title:           title,
				Status:          domain.HealthGreen,
				ResponsibleID:   &creatorID,
			}
		}
		if err := s.respRepo.WithTx(tx).CreateBatch(ctx, defaults); err != nil {
			return fmt.Errorf("failed to seed responsibilities: %w", err)
		}
		seeded = len(defaults)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditActionCreate, EntityProjectStatus, status.ID, map[string]interface{}{
		"projectId":  status.ProjectID,
		"statusDate": status.StatusDate.Format(domain.DateLayout),
		"phase":      status.Phase,
		"seeded":     seeded,
	})
	logger.WithContext(ctx, s.logger).Info("status created",
		zap.String("status_id", status.ID.String()),
		zap.String("project_id", status.ProjectID.String()),
		zap.Int("seeded", seeded),
	)

	return s.load(ctx, status.ID)
}

// GetByID returns a snapshot of a project visible to the caller
func (s *StatusService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProjectStatusDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	status, err := s.statusRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStatusNotFound)
	}
	visible, err := projectVisible(ctx, s.projectRepo, userCtx, status.ProjectID, auth.ActionProjectListAll)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrStatusNotFound
	}

	dto := mapper.ToProjectStatusDTO(status)
	return &dto, nil
}

// Latest returns the most recent snapshot of a project
func (s *StatusService) Latest(ctx context.Context, projectID uuid.UUID) (*domain.ProjectStatusDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	visible, err := projectVisible(ctx, s.projectRepo, userCtx, projectID, auth.ActionProjectListAll)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrProjectNotFound
	}

	status, err := s.statusRepo.Latest(ctx, projectID)
	if err != nil {
		return nil, notFound(err, ErrStatusNotFound)
	}
	dto := mapper.ToProjectStatusDTO(status)
	return &dto, nil
}

// List returns snapshots of visible projects, newest first
func (s *StatusService) List(ctx context.Context, projectID *uuid.UUID, page, pageSize int) (*domain.PaginatedResponse, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	page, pageSize = normalizePagination(page, pageSize)

	statuses, total, err := s.statusRepo.List(ctx, projectID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}

	dtos := make([]domain.ProjectStatusDTO, len(statuses))
	for i := range statuses {
		dtos[i] = mapper.ToProjectStatusDTO(&statuses[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// Update changes phase and notes. The status date never changes after
// creation. The phase is written back onto the project as well.
func (s *StatusService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateProjectStatusRequest) (*domain.ProjectStatusDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(userCtx, auth.ActionStatusUpdate, auth.RelationNone); err != nil {
		return nil, err
	}

	status, err := s.statusRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStatusNotFound)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.statusRepo.WithTx(tx).UpdateDetails(ctx, id, req.Phase, req.Notes); err != nil {
			return err
		}
		return s.projectRepo.WithTx(tx).UpdatePhase(ctx, status.ProjectID, req.Phase)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	s.audit.Record(ctx, domain.AuditActionUpdate, EntityProjectStatus, id, map[string]interface{}{
		"phase": map[string]interface{}{"before": status.Phase, "after": req.Phase},
	})
	return s.load(ctx, id)
}

// SaveBaseline marks the snapshot as baseline. Repeating it succeeds.
func (s *StatusService) SaveBaseline(ctx context.Context, id uuid.UUID) (*domain.ProjectStatusDTO, error) {
	return s.mark(ctx, id, auth.ActionStatusBaseline, domain.AuditActionBaseline, s.statusRepo.MarkBaseline)
}

// SaveFinal marks the snapshot as final. Repeating it succeeds.
func (s *StatusService) SaveFinal(ctx context.Context, id uuid.UUID) (*domain.ProjectStatusDTO, error) {
	return s.mark(ctx, id, auth.ActionStatusFinal, domain.AuditActionFinal, s.statusRepo.MarkFinal)
}

func (s *StatusService) mark(
	ctx context.Context,
	id uuid.UUID,
	action auth.Action,
	auditAction domain.AuditAction,
	set func(context.Context, uuid.UUID) error,
) (*domain.ProjectStatusDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(userCtx, action, auth.RelationNone); err != nil {
		return nil, err
	}

	status, err := s.statusRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStatusNotFound)
	}

	already := status.IsBaseline
	if auditAction == domain.AuditActionFinal {
		already = status.IsFinal
	}
	if !already {
		if err := set(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to update status flag: %w", err)
		}
		s.audit.Record(ctx, auditAction, EntityProjectStatus, id, nil)
	}

	return s.load(ctx, id)
}

// ClonePrevious copies the responsibilities of the chronologically previous
// snapshot into this one. It is a bulk copy: no escalation is evaluated.
func (s *StatusService) ClonePrevious(ctx context.Context, id uuid.UUID) (*domain.CloneResultDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(userCtx, auth.ActionStatusClone, auth.RelationNone); err != nil {
		return nil, err
	}

	target, err := s.statusRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStatusNotFound)
	}

	previous, err := s.statusRepo.FindPrevious(ctx, target.ProjectID, target.StatusDate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPreviousStatus
		}
		return nil, err
	}

	provenance := "Cloned from " + previous.StatusDate.Format(domain.DateLayout)
	clones := make([]*domain.Responsibility, len(previous.Responsibilities))
	for i, src := range previous.Responsibilities {
		clones[i] = &domain.Responsibility{
			ProjectStatusID: target.ID,
			Title:           src.Title,
			Status:          src.Status,
			Progress:        src.Progress,
			ResponsibleID:   src.ResponsibleID,
			DeputyID:        src.DeputyID,
			Comments:        provenance,
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.respRepo.WithTx(tx).CreateBatch(ctx, clones)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clone responsibilities: %w", err)
	}

	s.audit.Record(ctx, domain.AuditActionClone, EntityProjectStatus, id, map[string]interface{}{
		"sourceId": previous.ID,
		"created":  len(clones),
	})

	return &domain.CloneResultDTO{
		Status:  "previous responsibilities cloned",
		Created: len(clones),
	}, nil
}

// Delete removes the snapshot with its responsibilities and escalations
func (s *StatusService) Delete(ctx context.Context, id uuid.UUID) error {
	userCtx, err := caller(ctx)
	if err != nil {
		return err
	}
	if err := authorize(userCtx, auth.ActionStatusDelete, auth.RelationNone); err != nil {
		return err
	}

	if _, err := s.statusRepo.GetByID(ctx, id); err != nil {
		return notFound(err, ErrStatusNotFound)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.statusRepo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}

	s.audit.Record(ctx, domain.AuditActionDelete, EntityProjectStatus, id, nil)
	return nil
}

func (s *StatusService) load(ctx context.Context, id uuid.UUID) (*domain.ProjectStatusDTO, error) {
	status, err := s.statusRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStatusNotFound)
	}
	dto := mapper.ToProjectStatusDTO(status)
	return &dto, nil
}
