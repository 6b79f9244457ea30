package handler

import (
	"net/http"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/service"
	"go.uber.org/zap"
)

var validNotificationTypes = map[string]bool{
	string(domain.NotificationTypeEscalation):         true,
	string(domain.NotificationTypeEscalationResolved): true,
}

// NotificationHandler handles HTTP requests for notifications
type NotificationHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(notificationService *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// List handles GET /notifications?unread_only=&type=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	unreadOnly, err := queryBool(r, "unread_only")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	notificationType := r.URL.Query().Get("type")
	if notificationType != "" && !validNotificationTypes[notificationType] {
		respondWithError(w, http.StatusBadRequest, "invalid notification type: must be one of escalation, escalation_resolved")
		return
	}

	result, err := h.notificationService.GetForCurrentUser(r.Context(), page, pageSize, unreadOnly != nil && *unreadOnly, notificationType)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "list notifications")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetUnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationService.GetUnreadCount(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err, "count unread notifications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// MarkAsRead handles PUT /notifications/{id}/read
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "notification")
	if !ok {
		return
	}

	if err := h.notificationService.MarkAsRead(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err, "mark notification read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllAsRead handles PUT /notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationService.MarkAllAsRead(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err, "mark all notifications read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"updated": count})
}
