package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/mapper"
	"github.com/straye-as/status-api/internal/repository"
	"go.uber.org/zap"
)

// ReportService computes read-only aggregates over the current state
type ReportService struct {
	reportRepo     *repository.ReportRepository
	respRepo       *repository.ResponsibilityRepository
	escalationRepo *repository.EscalationRepository
	logger         *zap.Logger
}

// NewReportService creates a new report service
func NewReportService(
	reportRepo *repository.ReportRepository,
	respRepo *repository.ResponsibilityRepository,
	escalationRepo *repository.EscalationRepository,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		reportRepo:     reportRepo,
		respRepo:       respRepo,
		escalationRepo: escalationRepo,
		logger:         logger,
	}
}

// Index names the available reports and their paths
func (s *ReportService) Index(basePath string) map[string]string {
	return map[string]string{
		"project_summary":       basePath + "/project_summary",
		"user_responsibilities": basePath + "/user_responsibilities",
		"escalation_report":     basePath + "/escalation_report",
	}
}

// ProjectSummary counts projects, projects that reached production and
// projects with a degraded or flagged responsibility.
func (s *ReportService) ProjectSummary(ctx context.Context) (*domain.ProjectSummaryDTO, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}

	total, err := s.reportRepo.CountProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	inProduction, err := s.reportRepo.CountProjectsWithSnapshotPhase(ctx, domain.PhaseProduction)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects in production: %w", err)
	}
	escalated, err := s.reportRepo.CountEscalatedProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count escalated projects: %w", err)
	}

	return &domain.ProjectSummaryDTO{
		TotalProjects:     total,
		InProduction:      inProduction,
		EscalatedProjects: escalated,
		EscalationRate:    EscalationRate(escalated, total),
	}, nil
}

// EscalationRate is escalated/total as a percentage rounded to two
// decimals, and 0 when there are no projects.
func EscalationRate(escalated, total int64) float64 {
	if total == 0 {
		return 0
	}
	rate := float64(escalated) / float64(total) * 100
	return math.Round(rate*100) / 100
}

// UserResponsibilities lists the responsibilities held by a user, the
// caller when userID is nil.
func (s *ReportService) UserResponsibilities(ctx context.Context, userID *uuid.UUID) ([]domain.UserResponsibilityDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	target := userCtx.UserID
	if userID != nil {
		target = *userID
	}

	rows, err := s.respRepo.ListForUser(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list user responsibilities: %w", err)
	}

	dtos := make([]domain.UserResponsibilityDTO, len(rows))
	for i := range rows {
		dtos[i] = mapper.ToUserResponsibilityDTO(&rows[i])
	}
	return dtos, nil
}

// EscalationReport lists escalations matching the filters, newest first
func (s *ReportService) EscalationReport(ctx context.Context, filters *domain.EscalationFilters) ([]domain.EscalationDTO, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}

	escalations, err := s.escalationRepo.ListAll(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to build escalation report: %w", err)
	}

	dtos := make([]domain.EscalationDTO, len(escalations))
	for i := range escalations {
		dtos[i] = mapper.ToEscalationDTO(&escalations[i])
	}
	return dtos, nil
}
