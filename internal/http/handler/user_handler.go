package handler

import (
	"net/http"
	"strings"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// List handles GET /users?search=&role=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	role := domain.Role(strings.ToUpper(r.URL.Query().Get("role")))

	result, err := h.userService.List(r.Context(), search, role, page, pageSize)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "list users")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create handles POST /users. Administrators may create accounts of any role.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "create user")
		return
	}

	w.Header().Set("Location", "/api/v1/users/"+user.ID.String())
	respondJSON(w, http.StatusCreated, user)
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Me(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err, "get current user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdatePassword handles PUT /users/update_password
func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.userService.UpdatePassword(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "update password")
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "user")
	if !ok {
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "get user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "user")
	if !ok {
		return
	}

	var req domain.UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "update user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "user")
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err, "delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
