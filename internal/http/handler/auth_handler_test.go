package handler_test

import (
	"net/http"
	"testing"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/service"
	"github.com/straye-as/status-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_RegisterAndToken(t *testing.T) {
	h := setupHandlers(t)

	rr := call(t, h.auth.Register, http.MethodPost, "/auth/register", map[string]interface{}{
		"username": "dora",
		"email":    "dora@example.com",
		"password": "long-enough-pass",
		"role":     "DEP",
	}, nil, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var user domain.UserDTO
	decode(t, rr, &user)
	assert.Equal(t, domain.RoleDeputy, user.Role)

	t.Run("legacy role code is rejected", func(t *testing.T) {
		rr := call(t, h.auth.Register, http.MethodPost, "/auth/register", map[string]interface{}{
			"username": "eve",
			"email":    "eve@example.com",
			"password": "long-enough-pass",
			"role":     "DEPUTY",
		}, nil, nil)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		var apiErr domain.APIError
		decode(t, rr, &apiErr)
		assert.Contains(t, apiErr.Errors, "role")
	})

	t.Run("short password", func(t *testing.T) {
		rr := call(t, h.auth.Register, http.MethodPost, "/auth/register", map[string]interface{}{
			"username": "frank",
			"email":    "frank@example.com",
			"password": "short",
		}, nil, nil)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		var apiErr domain.APIError
		decode(t, rr, &apiErr)
		assert.Contains(t, apiErr.Errors, "password")
	})

	t.Run("token", func(t *testing.T) {
		rr := call(t, h.auth.Token, http.MethodPost, "/auth/token", map[string]string{
			"username": "dora",
			"password": "long-enough-pass",
		}, nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var pair domain.TokenPairDTO
		decode(t, rr, &pair)
		assert.NotEmpty(t, pair.Access)

		rr = call(t, h.auth.Refresh, http.MethodPost, "/auth/token/refresh", map[string]string{"refresh": pair.Refresh}, nil, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := call(t, h.auth.Token, http.MethodPost, "/auth/token", map[string]string{
			"username": "dora",
			"password": "wrong-password",
		}, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAuthHandler_PasswordReset(t *testing.T) {
	h := setupHandlers(t)
	testutil.CreateTestUser(t, h.db, "alice", domain.RoleResponsible)

	for _, email := range []string{"alice@example.com", "nobody@example.com"} {
		rr := call(t, h.auth.RequestPasswordReset, http.MethodPost, "/auth/password-reset", map[string]string{"email": email}, nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var msg domain.MessageDTO
		decode(t, rr, &msg)
		assert.Equal(t, service.ResetRequestedMessage, msg.Message)
	}

	rr := call(t, h.auth.ConfirmPasswordReset, http.MethodPost, "/auth/password-reset/confirm", map[string]string{
		"token":       "unknown",
		"newPassword": "brand-new-pass",
	}, nil, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var apiErr domain.APIError
	decode(t, rr, &apiErr)
	assert.Equal(t, "Invalid or expired token.", apiErr.Detail)
}
