package handler

import (
	"net/http"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/service"
	"go.uber.org/zap"
)

// AuthHandler serves the unauthenticated account endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "register")
		return
	}

	w.Header().Set("Location", "/api/v1/users/"+user.ID.String())
	respondJSON(w, http.StatusCreated, user)
}

// Token handles POST /auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.authService.Token(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "issue token")
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

// Refresh handles POST /auth/token/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.authService.Refresh(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "refresh token")
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

// RequestPasswordReset handles POST /auth/password-reset. The answer is the
// same whether or not the address belongs to an account.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.authService.RequestPasswordReset(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "request password reset")
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// ConfirmPasswordReset handles POST /auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordResetConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.authService.ConfirmPasswordReset(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "confirm password reset")
		return
	}
	respondJSON(w, http.StatusOK, msg)
}
