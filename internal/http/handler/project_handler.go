package handler

import (
	"net/http"
	"strings"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/repository"
	"github.com/straye-as/status-api/internal/service"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	statusService  *service.StatusService
	logger         *zap.Logger
}

func NewProjectHandler(projectService *service.ProjectService, statusService *service.StatusService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		statusService:  statusService,
		logger:         logger,
	}
}

// List handles GET /projects. Supports code, name and current_phase filters
// plus sort_by/sort_order; newest first by default.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := pagination(r)

	filters := &domain.ProjectFilters{
		Code:         q.Get("code"),
		Name:         q.Get("name"),
		CurrentPhase: domain.Phase(strings.ToUpper(q.Get("current_phase"))),
	}

	sort := repository.SortConfig{Field: q.Get("sort_by"), Order: repository.ParseSortOrder(q.Get("sort_order"))}

	result, err := h.projectService.List(r.Context(), filters, sort, page, pageSize)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "list projects")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create handles POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	project, err := h.projectService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "create project")
		return
	}

	w.Header().Set("Location", "/api/v1/projects/"+project.ID.String())
	respondJSON(w, http.StatusCreated, project)
}

// CheckCode handles GET /projects/check-code?code=
func (h *ProjectHandler) CheckCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	exists, err := h.projectService.CheckCode(r.Context(), code)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "check project code")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code":   code,
		"exists": exists,
	})
}

func (h *ProjectHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "project")
	if !ok {
		return
	}

	project, err := h.projectService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "get project")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// LatestStatus handles GET /projects/{id}/status
func (h *ProjectHandler) LatestStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "project")
	if !ok {
		return
	}

	status, err := h.statusService.Latest(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "get latest status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "project")
	if !ok {
		return
	}

	var req domain.UpdateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	project, err := h.projectService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "update project")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err, "delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
