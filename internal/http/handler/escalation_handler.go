package handler

import (
	"net/http"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/service"
	"go.uber.org/zap"
)

type EscalationHandler struct {
	escalationService *service.EscalationService
	logger            *zap.Logger
}

func NewEscalationHandler(escalationService *service.EscalationService, logger *zap.Logger) *EscalationHandler {
	return &EscalationHandler{
		escalationService: escalationService,
		logger:            logger,
	}
}

// List handles GET /escalations with the resolved, project, responsibility
// and date_from/date_to filters.
func (h *EscalationHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := escalationFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, pageSize := pagination(r)

	result, err := h.escalationService.List(r.Context(), filters, page, pageSize)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "list escalations")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create handles POST /escalations, a manual escalation
func (h *EscalationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateEscalationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	escalation, err := h.escalationService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "create escalation")
		return
	}

	w.Header().Set("Location", "/api/v1/escalations/"+escalation.ID.String())
	respondJSON(w, http.StatusCreated, escalation)
}

func (h *EscalationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "escalation")
	if !ok {
		return
	}

	escalation, err := h.escalationService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "get escalation")
		return
	}
	respondJSON(w, http.StatusOK, escalation)
}

// ByProject handles GET /escalations/by_project?project=
func (h *EscalationHandler) ByProject(w http.ResponseWriter, r *http.Request) {
	filters, err := escalationFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	escalations, err := h.escalationService.ByProject(r.Context(), r.URL.Query().Get("project"), filters)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "list project escalations")
		return
	}
	respondJSON(w, http.StatusOK, escalations)
}

// Resolve handles POST /escalations/{id}/resolve_escalation
func (h *EscalationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "escalation")
	if !ok {
		return
	}

	escalation, err := h.escalationService.Resolve(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "resolve escalation")
		return
	}
	respondJSON(w, http.StatusOK, escalation)
}
