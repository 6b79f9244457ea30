package handler

import (
	"net/http"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/service"
	"go.uber.org/zap"
)

type ResponsibilityHandler struct {
	responsibilityService *service.ResponsibilityService
	logger                *zap.Logger
}

func NewResponsibilityHandler(responsibilityService *service.ResponsibilityService, logger *zap.Logger) *ResponsibilityHandler {
	return &ResponsibilityHandler{
		responsibilityService: responsibilityService,
		logger:                logger,
	}
}

// List handles GET /responsibilities?project_status=
func (h *ResponsibilityHandler) List(w http.ResponseWriter, r *http.Request) {
	statusID, err := queryUUID(r, "project_status")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, pageSize := pagination(r)

	result, err := h.responsibilityService.List(r.Context(), statusID, page, pageSize)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "list responsibilities")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *ResponsibilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateResponsibilityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.responsibilityService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "create responsibility")
		return
	}

	w.Header().Set("Location", "/api/v1/responsibilities/"+resp.ID.String())
	respondJSON(w, http.StatusCreated, resp)
}

func (h *ResponsibilityHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "responsibility")
	if !ok {
		return
	}

	resp, err := h.responsibilityService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "get responsibility")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Update handles PUT /responsibilities/{id}. The response carries the
// changed fields and, when the save escalated, the new escalation id.
func (h *ResponsibilityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "responsibility")
	if !ok {
		return
	}

	var req domain.UpdateResponsibilityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.responsibilityService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "update responsibility")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *ResponsibilityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "responsibility")
	if !ok {
		return
	}

	if err := h.responsibilityService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err, "delete responsibility")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
