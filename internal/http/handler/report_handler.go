package handler

import (
	"net/http"

	"github.com/straye-as/status-api/internal/service"
	"go.uber.org/zap"
)

// ReportHandler serves the read-only aggregate reports
type ReportHandler struct {
	reportService *service.ReportService
	basePath      string
	logger        *zap.Logger
}

// NewReportHandler creates a report handler. basePath is the mount point
// used to build the links of the reports index.
func NewReportHandler(reportService *service.ReportService, basePath string, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		basePath:      basePath,
		logger:        logger,
	}
}

// Index handles GET /reports
func (h *ReportHandler) Index(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.reportService.Index(h.basePath))
}

// ProjectSummary handles GET /reports/project_summary
func (h *ReportHandler) ProjectSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reportService.ProjectSummary(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err, "project summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// UserResponsibilities handles GET /reports/user_responsibilities?user_id=
func (h *ReportHandler) UserResponsibilities(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUUID(r, "user_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.reportService.UserResponsibilities(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "user responsibilities")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// EscalationReport handles GET /reports/escalation_report
func (h *ReportHandler) EscalationReport(w http.ResponseWriter, r *http.Request) {
	filters, err := escalationFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.reportService.EscalationReport(r.Context(), filters)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "escalation report")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
