package repository

import (
	"context"

	"github.com/straye-as/status-api/internal/domain"
	"gorm.io/gorm"
)

// ReportRepository runs the read-only portfolio aggregates
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) CountProjects(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Project{}).Count(&count).Error
	return count, err
}

// CountProjectsWithSnapshotPhase counts distinct projects having at least one
// snapshot in the given phase.
func (r *ReportRepository) CountProjectsWithSnapshotPhase(ctx context.Context, phase domain.Phase) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ProjectStatus{}).
		Where("phase = ?", phase).
		Distinct("project_id").
		Count(&count).Error
	return count, err
}

// CountEscalatedProjects counts distinct projects having a Yellow, Red or
// flagged responsibility on any snapshot.
func (r *ReportRepository) CountEscalatedProjects(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("responsibilities").
		Joins("JOIN project_statuses ON project_statuses.id = responsibilities.project_status_id").
		Where("responsibilities.status IN ? OR responsibilities.needs_escalation = ?",
			[]domain.HealthStatus{domain.HealthYellow, domain.HealthRed}, true).
		Distinct("project_statuses.project_id").
		Count(&count).Error
	return count, err
}
