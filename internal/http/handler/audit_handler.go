package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/repository"
	"github.com/straye-as/status-api/internal/service"
	"go.uber.org/zap"
)

// AuditHandler exposes the audit trail to administrators
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// List handles GET /audit with the user_id, action, entity_type, entity_id,
// start_time and end_time (RFC 3339) filters.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := pagination(r)

	filter := &repository.AuditLogFilter{
		EntityType: q.Get("entity_type"),
		RequestID:  q.Get("request_id"),
	}

	var err error
	if filter.UserID, err = queryUUID(r, "user_id"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.EntityID, err = queryUUID(r, "entity_id"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if raw := q.Get("action"); raw != "" {
		action := domain.AuditAction(raw)
		filter.Action = &action
	}
	if filter.StartTime, err = queryTime(r, "start_time"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.EndTime, err = queryTime(r, "end_time"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.auditService.List(r.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "list audit logs")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByEntity handles GET /audit/entity/{entityType}/{entityId}
func (h *AuditHandler) GetByEntity(w http.ResponseWriter, r *http.Request) {
	entityID, ok := urlID(w, r, "entityId", "entity")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > repository.MaxPageSize {
		limit = 50
	}

	logs, err := h.auditService.ListByEntity(r.Context(), chi.URLParam(r, "entityType"), entityID, limit)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "list entity audit logs")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
	}
	return &t, nil
}
