package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubUsers map[uuid.UUID]*domain.User

func (s stubUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func serve(t *testing.T, mw *auth.Middleware, token string) (*httptest.ResponseRecorder, *auth.UserContext) {
	t.Helper()

	var captured *auth.UserContext
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, captured
}

func TestMiddleware_Authenticate_ValidToken(t *testing.T) {
	tm := auth.NewTokenManager(testAuthConfig())
	user := testUser(domain.RoleResponsible)
	access, _, err := tm.IssuePair(user)
	require.NoError(t, err)

	w, captured := serve(t, auth.NewMiddleware(tm, nil, zap.NewNop()), access)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, user.ID, captured.UserID)
	assert.Equal(t, domain.RoleResponsible, captured.Role)
}

func TestMiddleware_Authenticate_MissingHeader(t *testing.T) {
	tm := auth.NewTokenManager(testAuthConfig())

	w, captured := serve(t, auth.NewMiddleware(tm, nil, zap.NewNop()), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, captured)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
}

func TestMiddleware_Authenticate_GarbageToken(t *testing.T) {
	tm := auth.NewTokenManager(testAuthConfig())

	w, _ := serve(t, auth.NewMiddleware(tm, nil, zap.NewNop()), "not-a-jwt")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_Authenticate_RefreshesRoleFromStore(t *testing.T) {
	tm := auth.NewTokenManager(testAuthConfig())
	user := testUser(domain.RoleResponsible)
	access, _, err := tm.IssuePair(user)
	require.NoError(t, err)

	promoted := *user
	promoted.Role = domain.RoleProjectManager
	promoted.IsActive = true

	w, captured := serve(t, auth.NewMiddleware(tm, stubUsers{user.ID: &promoted}, zap.NewNop()), access)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, domain.RoleProjectManager, captured.Role)
}

func TestMiddleware_Authenticate_InactiveUser(t *testing.T) {
	tm := auth.NewTokenManager(testAuthConfig())
	user := testUser(domain.RoleResponsible)
	access, _, err := tm.IssuePair(user)
	require.NoError(t, err)

	inactive := *user
	inactive.IsActive = false

	w, _ := serve(t, auth.NewMiddleware(tm, stubUsers{user.ID: &inactive}, zap.NewNop()), access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = serve(t, auth.NewMiddleware(tm, stubUsers{}, zap.NewNop()), access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_RequireRole(t *testing.T) {
	mw := auth.NewMiddleware(auth.NewTokenManager(testAuthConfig()), nil, zap.NewNop())
	handler := mw.RequireRole(domain.RoleAdministrator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name string
		ctx  *auth.UserContext
		want int
	}{
		{"no user", nil, http.StatusUnauthorized},
		{"wrong role", &auth.UserContext{UserID: uuid.New(), Role: domain.RoleProjectManager}, http.StatusForbidden},
		{"admin", &auth.UserContext{UserID: uuid.New(), Role: domain.RoleAdministrator}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
			if tt.ctx != nil {
				req = req.WithContext(auth.WithUserContext(req.Context(), tt.ctx))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
