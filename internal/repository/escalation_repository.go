package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EscalationRepository struct {
	db *gorm.DB
}

func NewEscalationRepository(db *gorm.DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *EscalationRepository) WithTx(tx *gorm.DB) *EscalationRepository {
	return &EscalationRepository{db: tx}
}

func (r *EscalationRepository) Create(ctx context.Context, escalation *domain.Escalation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(escalation).Error
}

func (r *EscalationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Escalation, error) {
	var escalation domain.Escalation
	err := r.withDetails(r.db.WithContext(ctx)).Where("id = ?", id).First(&escalation).Error
	if err != nil {
		return nil, err
	}
	return &escalation, nil
}

// List returns escalations visible to the caller, newest first. Escalation
// managers see every escalation.
func (r *EscalationRepository) List(ctx context.Context, filters *domain.EscalationFilters, page, pageSize int) ([]domain.Escalation, int64, error) {
	var escalations []domain.Escalation
	var total int64

	query := r.applyFilters(ctx, r.db.WithContext(ctx).Model(&domain.Escalation{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, pageSize, offset := normalizePage(page, pageSize)
	err := r.withDetails(query).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&escalations).Error

	return escalations, total, err
}

// ListAll returns every matching escalation without pagination
func (r *EscalationRepository) ListAll(ctx context.Context, filters *domain.EscalationFilters) ([]domain.Escalation, error) {
	var escalations []domain.Escalation
	query := r.applyFilters(ctx, r.db.WithContext(ctx).Model(&domain.Escalation{}), filters)
	err := r.withDetails(query).Order("created_at DESC").Find(&escalations).Error
	return escalations, err
}

// Resolve marks an open escalation resolved. It returns false when the
// escalation was already resolved, so resolution happens exactly once.
func (r *EscalationRepository) Resolve(ctx context.Context, id, resolvedBy uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Escalation{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]interface{}{
			"resolved":       true,
			"resolved_at":    at,
			"resolved_by_id": resolvedBy,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *EscalationRepository) CountByResponsibility(ctx context.Context, responsibilityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Escalation{}).
		Where("responsibility_id = ?", responsibilityID).
		Count(&count).Error
	return count, err
}

func (r *EscalationRepository) withDetails(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Responsibility.ProjectStatus.Project").
		Preload("CreatedBy").
		Preload("ResolvedBy")
}

// applyFilters narrows by responsibility through a subquery over the
// snapshot and project tables so the outer select stays on escalations only.
func (r *EscalationRepository) applyFilters(ctx context.Context, query *gorm.DB, filters *domain.EscalationFilters) *gorm.DB {
	scope := r.db.WithContext(ctx).Session(&gorm.Session{NewDB: true}).
		Table("responsibilities").
		Select("responsibilities.id").
		Joins("JOIN project_statuses ON project_statuses.id = responsibilities.project_status_id").
		Joins("JOIN projects ON projects.id = project_statuses.project_id")
	scope = ApplyVisibility(ctx, scope, "projects.id", auth.ActionEscalationListAll)

	if filters != nil {
		if filters.ProjectID != nil {
			scope = scope.Where("projects.id = ?", *filters.ProjectID)
		}
		if filters.ProjectCode != "" {
			scope = scope.Where("projects.code = ?", filters.ProjectCode)
		}
		if filters.ResponsibilityID != nil {
			query = query.Where("escalations.responsibility_id = ?", *filters.ResponsibilityID)
		}
		if filters.Resolved != nil {
			query = query.Where("escalations.resolved = ?", *filters.Resolved)
		}
		if filters.DateFrom != nil {
			query = query.Where("escalations.created_at >= ?", domain.DateOnly(*filters.DateFrom))
		}
		if filters.DateTo != nil {
			// inclusive end date
			query = query.Where("escalations.created_at < ?", domain.DateOnly(*filters.DateTo).AddDate(0, 0, 1))
		}
	}

	return query.Where("escalations.responsibility_id IN (?)", scope)
}
