package handler

import (
	"net/http"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/service"
	"go.uber.org/zap"
)

// StatusHandler serves project status snapshots and their lifecycle actions
type StatusHandler struct {
	statusService *service.StatusService
	logger        *zap.Logger
}

func NewStatusHandler(statusService *service.StatusService, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		logger:        logger,
	}
}

// List handles GET /statuses?project_id=
func (h *StatusHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryUUID(r, "project_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, pageSize := pagination(r)

	result, err := h.statusService.List(r.Context(), projectID, page, pageSize)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "list statuses")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create handles POST /statuses. The project comes from the body or from
// the project_id query parameter.
func (h *StatusHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProjectStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if req.ProjectID == nil {
		projectID, err := queryUUID(r, "project_id")
		if err != nil {
			respondFieldErrors(w, map[string]string{"project_id": err.Error()})
			return
		}
		req.ProjectID = projectID
	}

	status, err := h.statusService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "create status")
		return
	}

	w.Header().Set("Location", "/api/v1/statuses/"+status.ID.String())
	respondJSON(w, http.StatusCreated, status)
}

func (h *StatusHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "status")
	if !ok {
		return
	}

	status, err := h.statusService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "get status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *StatusHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "status")
	if !ok {
		return
	}

	var req domain.UpdateProjectStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	status, err := h.statusService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "update status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *StatusHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "status")
	if !ok {
		return
	}

	if err := h.statusService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err, "delete status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveBaseline handles POST /statuses/{id}/save_baseline
func (h *StatusHandler) SaveBaseline(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "status")
	if !ok {
		return
	}

	status, err := h.statusService.SaveBaseline(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "save baseline")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// SaveFinal handles POST /statuses/{id}/save_final
func (h *StatusHandler) SaveFinal(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "status")
	if !ok {
		return
	}

	status, err := h.statusService.SaveFinal(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "save final")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// ClonePrevious handles POST /statuses/{id}/clone_previous
func (h *StatusHandler) ClonePrevious(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "status")
	if !ok {
		return
	}

	result, err := h.statusService.ClonePrevious(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "clone previous responsibilities")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
