package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserResponsibilityRow is a responsibility joined with its snapshot and project
type UserResponsibilityRow struct {
	ID              uuid.UUID
	Title           string
	Status          domain.HealthStatus
	NeedsEscalation bool
	ProjectCode     string
	ProjectName     string
	StatusDate      time.Time
}

type ResponsibilityRepository struct {
	db *gorm.DB
}

func NewResponsibilityRepository(db *gorm.DB) *ResponsibilityRepository {
	return &ResponsibilityRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ResponsibilityRepository) WithTx(tx *gorm.DB) *ResponsibilityRepository {
	return &ResponsibilityRepository{db: tx}
}

func (r *ResponsibilityRepository) Create(ctx context.Context, resp *domain.Responsibility) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(resp).Error
}

// CreateBatch inserts several responsibilities in one statement
func (r *ResponsibilityRepository) CreateBatch(ctx context.Context, resps []*domain.Responsibility) error {
	if len(resps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(resps).Error
}

// GetByID loads a responsibility with its snapshot, project and assignees
func (r *ResponsibilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Responsibility, error) {
	var resp domain.Responsibility
	err := r.db.WithContext(ctx).
		Preload("ProjectStatus.Project").
		Preload("Responsible").
		Preload("Deputy").
		Where("id = ?", id).
		First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns responsibilities of projects visible to the caller
func (r *ResponsibilityRepository) List(ctx context.Context, statusID *uuid.UUID, page, pageSize int) ([]domain.Responsibility, int64, error) {
	var resps []domain.Responsibility
	var total int64

	visible := r.db.WithContext(ctx).Session(&gorm.Session{NewDB: true}).
		Model(&domain.ProjectStatus{}).
		Select("id")
	visible = ApplyProjectVisibility(ctx, visible, "project_statuses.project_id")

	query := r.db.WithContext(ctx).Model(&domain.Responsibility{}).
		Where("project_status_id IN (?)", visible)

	if statusID != nil {
		query = query.Where("project_status_id = ?", *statusID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, pageSize, offset := normalizePage(page, pageSize)
	err := query.
		Preload("Responsible").
		Preload("Deputy").
		Order("created_at ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&resps).Error

	return resps, total, err
}

func (r *ResponsibilityRepository) Update(ctx context.Context, resp *domain.Responsibility) error {
	return r.db.WithContext(ctx).Omit(clause.Associations, "project_status_id").Save(resp).Error
}

// Delete removes the responsibility together with its escalations
func (r *ResponsibilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return DeleteWithPolicy(r.db.WithContext(ctx), "responsibilities", []uuid.UUID{id})
}

// ListForUser returns every responsibility where the user is responsible or
// deputy, newest snapshot first.
func (r *ResponsibilityRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]UserResponsibilityRow, error) {
	var rows []UserResponsibilityRow
	err := r.db.WithContext(ctx).
		Table("responsibilities").
		Select(`responsibilities.id, responsibilities.title, responsibilities.status,
			responsibilities.needs_escalation, projects.code AS project_code,
			projects.name AS project_name, project_statuses.status_date`).
		Joins("JOIN project_statuses ON project_statuses.id = responsibilities.project_status_id").
		Joins("JOIN projects ON projects.id = project_statuses.project_id").
		Where("responsibilities.responsible_id = ? OR responsibilities.deputy_id = ?", userID, userID).
		Order("project_statuses.status_date DESC").
		Order("responsibilities.title ASC").
		Scan(&rows).Error
	return rows, err
}
