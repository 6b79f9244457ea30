package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectStatusRepository struct {
	db *gorm.DB
}

func NewProjectStatusRepository(db *gorm.DB) *ProjectStatusRepository {
	return &ProjectStatusRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ProjectStatusRepository) WithTx(tx *gorm.DB) *ProjectStatusRepository {
	return &ProjectStatusRepository{db: tx}
}

func (r *ProjectStatusRepository) Create(ctx context.Context, status *domain.ProjectStatus) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(status).Error
}

// GetByID loads a snapshot with its project, creator and responsibilities
func (r *ProjectStatusRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProjectStatus, error) {
	var status domain.ProjectStatus
	err := r.withDetails(r.db.WithContext(ctx)).Where("id = ?", id).First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Latest returns the most recent snapshot of a project
func (r *ProjectStatusRepository) Latest(ctx context.Context, projectID uuid.UUID) (*domain.ProjectStatus, error) {
	var status domain.ProjectStatus
	err := r.withDetails(r.db.WithContext(ctx)).
		Where("project_id = ?", projectID).
		Order("status_date DESC").
		First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// FindPrevious returns the latest snapshot of the project dated strictly
// before the given date, with its responsibilities.
func (r *ProjectStatusRepository) FindPrevious(ctx context.Context, projectID uuid.UUID, before time.Time) (*domain.ProjectStatus, error) {
	var status domain.ProjectStatus
	err := r.db.WithContext(ctx).
		Preload("Responsibilities", orderResponsibilities).
		Where("project_id = ? AND status_date < ?", projectID, domain.DateOnly(before)).
		Order("status_date DESC").
		First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *ProjectStatusRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ProjectStatus{}).Where("project_id = ?", projectID).Count(&count).Error
	return count, err
}

// List returns snapshots visible to the caller, newest first
func (r *ProjectStatusRepository) List(ctx context.Context, projectID *uuid.UUID, page, pageSize int) ([]domain.ProjectStatus, int64, error) {
	var statuses []domain.ProjectStatus
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.ProjectStatus{})
	query = ApplyProjectVisibility(ctx, query, "project_statuses.project_id")

	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, pageSize, offset := normalizePage(page, pageSize)
	err := r.withDetails(query).
		Order("status_date DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&statuses).Error

	return statuses, total, err
}

// UpdateDetails writes phase and notes only, the status date is never touched
func (r *ProjectStatusRepository) UpdateDetails(ctx context.Context, id uuid.UUID, phase domain.Phase, notes string) error {
	return r.db.WithContext(ctx).Model(&domain.ProjectStatus{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"phase": phase,
			"notes": notes,
		}).Error
}

// MarkBaseline sets the baseline flag. Setting it twice is a no-op.
func (r *ProjectStatusRepository) MarkBaseline(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.ProjectStatus{}).
		Where("id = ?", id).
		Update("is_baseline", true).Error
}

// MarkFinal sets the final flag. Setting it twice is a no-op.
func (r *ProjectStatusRepository) MarkFinal(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.ProjectStatus{}).
		Where("id = ?", id).
		Update("is_final", true).Error
}

// Delete removes the snapshot together with its responsibilities and escalations
func (r *ProjectStatusRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return DeleteWithPolicy(r.db.WithContext(ctx), "project_statuses", []uuid.UUID{id})
}

func (r *ProjectStatusRepository) withDetails(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Project").
		Preload("CreatedBy").
		Preload("Responsibilities", orderResponsibilities).
		Preload("Responsibilities.Responsible").
		Preload("Responsibilities.Deputy")
}

func orderResponsibilities(db *gorm.DB) *gorm.DB {
	return db.Order("responsibilities.created_at ASC").Order("responsibilities.title ASC")
}
