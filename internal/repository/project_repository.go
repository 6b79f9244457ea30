package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var projectSortFields = map[string]string{
	"code":         "code",
	"name":         "name",
	"startDate":    "start_date",
	"endDate":      "end_date",
	"currentPhase": "current_phase",
	"createdAt":    "created_at",
}

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ProjectRepository) WithTx(tx *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: tx}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).Preload("Manager").Where("id = ?", id).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// LockForUpdate takes a row lock on the project for the rest of the
// transaction. SQLite ignores the clause and serializes writers instead.
func (r *ProjectRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) GetByCode(ctx context.Context, code string) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).Preload("Manager").Where("code = ?", code).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Project{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations, "code").Save(project).Error
}

// UpdatePhase writes the phase of a snapshot back onto its project
func (r *ProjectRepository) UpdatePhase(ctx context.Context, id uuid.UUID, phase domain.Phase) error {
	return r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ?", id).
		Update("current_phase", phase).Error
}

// Delete removes the project with its snapshots, responsibilities and escalations
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return DeleteWithPolicy(r.db.WithContext(ctx), "projects", []uuid.UUID{id})
}

// List returns the projects visible to the caller in ctx
func (r *ProjectRepository) List(ctx context.Context, filters *domain.ProjectFilters, sort SortConfig, page, pageSize int) ([]domain.Project, int64, error) {
	var projects []domain.Project
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Project{})
	query = ApplyProjectVisibility(ctx, query, "projects.id")

	if filters != nil {
		if filters.Code != "" {
			query = query.Where("LOWER(code) LIKE ?", "%"+strings.ToLower(filters.Code)+"%")
		}
		if filters.Name != "" {
			query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filters.Name)+"%")
		}
		if filters.CurrentPhase != "" {
			query = query.Where("current_phase = ?", filters.CurrentPhase)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, pageSize, offset := normalizePage(page, pageSize)
	err := query.Preload("Manager").
		Order(BuildOrderClause(sort, projectSortFields, "created_at")).
		Offset(offset).
		Limit(pageSize).
		Find(&projects).Error

	return projects, total, err
}

// IsAssigned reports whether the user is responsible or deputy on any
// responsibility of any snapshot of the project.
func (r *ProjectRepository) IsAssigned(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ?", projectID).
		Where("id IN (?)", assignedProjectIDs(r.db.WithContext(ctx).Session(&gorm.Session{NewDB: true}), userID)).
		Count(&count).Error
	return count > 0, err
}

func (r *ProjectRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Project{}).Count(&count).Error
	return count, err
}
