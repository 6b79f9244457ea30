package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/logger"
	"github.com/straye-as/status-api/internal/mapper"
	"github.com/straye-as/status-api/internal/repository"
	"go.uber.org/zap"
)

// Entity type names recorded in the audit log
const (
	EntityProject        = "Project"
	EntityProjectStatus  = "ProjectStatus"
	EntityResponsibility = "Responsibility"
	EntityEscalation     = "Escalation"
	EntityUser           = "User"
)

// AuditLogService handles audit logging operations
type AuditLogService struct {
	auditRepo *repository.AuditLogRepository
	logger    *zap.Logger
}

// NewAuditLogService creates a new audit log service
func NewAuditLogService(auditRepo *repository.AuditLogRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Record appends an entry for the caller in ctx. It is best effort: a
// failure is logged and never surfaces to the caller.
func (s *AuditLogService) Record(ctx context.Context, action domain.AuditAction, entityType string, entityID uuid.UUID, changes interface{}) {
	entry := &domain.AuditLog{
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		RequestID:   logger.RequestIDFromContext(ctx),
		PerformedAt: time.Now().UTC(),
		Changes:     "null",
	}

	if userCtx, ok := auth.FromContext(ctx); ok {
		id := userCtx.UserID
		entry.UserID = &id
		entry.UserName = userCtx.Username
	}

	if changes != nil {
		if raw, err := json.Marshal(changes); err == nil {
			entry.Changes = string(raw)
		}
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		logger.WithContext(ctx, s.logger).Warn("failed to create audit log",
			zap.String("action", string(action)),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID.String()),
			zap.Error(err),
		)
	}
}

// List returns audit entries, newest first. Only administrators may read them.
func (s *AuditLogService) List(ctx context.Context, filter *repository.AuditLogFilter, page, pageSize int) (*domain.PaginatedResponse, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.Can(auth.ActionAuditRead, auth.RelationNone) {
		return nil, ErrPermissionDenied
	}

	logs, total, err := s.auditRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}

	dtos := make([]domain.AuditLogDTO, len(logs))
	for i := range logs {
		dtos[i] = mapper.ToAuditLogDTO(&logs[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// ListByEntity returns the most recent entries for one entity
func (s *AuditLogService) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]domain.AuditLogDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.Can(auth.ActionAuditRead, auth.RelationNone) {
		return nil, ErrPermissionDenied
	}
	if limit <= 0 || limit > repository.MaxPageSize {
		limit = 50
	}

	logs, err := s.auditRepo.ListByEntity(ctx, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.AuditLogDTO, len(logs))
	for i := range logs {
		dtos[i] = mapper.ToAuditLogDTO(&logs[i])
	}
	return dtos, nil
}
