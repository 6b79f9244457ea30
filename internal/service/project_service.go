package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/mapper"
	"github.com/straye-as/status-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProjectService handles project business logic
type ProjectService struct {
	db          *gorm.DB
	projectRepo *repository.ProjectRepository
	userRepo    *repository.UserRepository
	audit       *AuditLogService
	logger      *zap.Logger
}

// NewProjectService creates a new project service
func NewProjectService(
	db *gorm.DB,
	projectRepo *repository.ProjectRepository,
	userRepo *repository.UserRepository,
	audit *AuditLogService,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		db:          db,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		audit:       audit,
		logger:      logger,
	}
}

// Create creates a new project in the planning phase
func (s *ProjectService) Create(ctx context.Context, req *domain.CreateProjectRequest) (*domain.ProjectDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(userCtx, auth.ActionProjectCreate, auth.RelationNone); err != nil {
		return nil, err
	}

	project := &domain.Project{
		Code:         req.Code,
		Name:         req.Name,
		Description:  req.Description,
		ManagerID:    req.ManagerID,
		CurrentPhase: domain.PhasePlanning,
	}
	if err := s.applyDates(project, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if err := validateAssignees(ctx, s.userRepo, map[string]*uuid.UUID{"managerId": req.ManagerID}); err != nil {
		return nil, err
	}

	exists, err := s.projectRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to check project code: %w", err)
	}
	if exists {
		return nil, ErrDuplicateProjectCode
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateProjectCode
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.audit.Record(ctx, domain.AuditActionCreate, EntityProject, project.ID, map[string]interface{}{
		"code": project.Code,
		"name": project.Name,
	})

	return s.load(ctx, project.ID)
}

// GetByID returns a project visible to the caller
func (s *ProjectService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProjectDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	visible, err := projectVisible(ctx, s.projectRepo, userCtx, id, auth.ActionProjectListAll)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrProjectNotFound
	}
	return s.load(ctx, id)
}

// List returns the projects visible to the caller
func (s *ProjectService) List(ctx context.Context, filters *domain.ProjectFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	page, pageSize = normalizePagination(page, pageSize)

	projects, total, err := s.projectRepo.List(ctx, filters, sort, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	dtos := make([]domain.ProjectDTO, len(projects))
	for i := range projects {
		dtos[i] = mapper.ToProjectDTO(&projects[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// Update changes everything but the code, which is immutable
func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateProjectRequest) (*domain.ProjectDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(userCtx, auth.ActionProjectUpdate, auth.RelationNone); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}

	if err := s.applyDates(project, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if err := validateAssignees(ctx, s.userRepo, map[string]*uuid.UUID{"managerId": req.ManagerID}); err != nil {
		return nil, err
	}

	project.Name = req.Name
	project.Description = req.Description
	project.ManagerID = req.ManagerID
	project.Manager = nil

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.audit.Record(ctx, domain.AuditActionUpdate, EntityProject, project.ID, map[string]interface{}{
		"name":      project.Name,
		"startDate": project.StartDate.Format(domain.DateLayout),
		"endDate":   project.EndDate.Format(domain.DateLayout),
	})

	return s.load(ctx, id)
}

// Delete removes a project and everything recorded under it
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	userCtx, err := caller(ctx)
	if err != nil {
		return err
	}
	if err := authorize(userCtx, auth.ActionProjectDelete, auth.RelationNone); err != nil {
		return err
	}

	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, ErrProjectNotFound)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.projectRepo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.audit.Record(ctx, domain.AuditActionDelete, EntityProject, id, map[string]interface{}{"code": project.Code})
	s.logger.Info("project deleted",
		zap.String("project_id", id.String()),
		zap.String("code", project.Code),
		zap.String("user_id", userCtx.UserID.String()),
	)
	return nil
}

// CheckCode reports whether a project code is already taken
func (s *ProjectService) CheckCode(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, domain.FieldErrors{"code": "Code parameter is required"}
	}
	return s.projectRepo.ExistsByCode(ctx, code)
}

func (s *ProjectService) load(ctx context.Context, id uuid.UUID) (*domain.ProjectDTO, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}
	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

// applyDates parses both dates and enforces start <= end
func (s *ProjectService) applyDates(project *domain.Project, start, end string) error {
	errs := domain.FieldErrors{}
	startDate := parseDate("startDate", start, errs)
	endDate := parseDate("endDate", end, errs)
	if len(errs) == 0 && endDate.Before(startDate) {
		errs["endDate"] = "End date must be on or after the start date"
	}
	if len(errs) > 0 {
		return errs
	}
	project.StartDate = startDate
	project.EndDate = endDate
	return nil
}
