package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/config"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:       "test-secret",
		Issuer:          "status-api-test",
		AccessTokenTTL:  60,
		RefreshTokenTTL: 1440,
	}
}

func testUser(role domain.Role) *domain.User {
	u := &domain.User{Username: "alice", Email: "alice@example.com", Role: role}
	u.ID = uuid.New()
	return u
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := auth.NewTokenManager(testAuthConfig())
	user := testUser(domain.RoleResponsible)

	access, refresh, err := tm.IssuePair(user)
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)

	ctx, err := tm.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, ctx.UserID)
	assert.Equal(t, "alice", ctx.Username)
	assert.Equal(t, "alice@example.com", ctx.Email)
	assert.Equal(t, domain.RoleResponsible, ctx.Role)

	ctx, err = tm.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, ctx.UserID)
}

func TestTokenManager_RejectsWrongType(t *testing.T) {
	tm := auth.NewTokenManager(testAuthConfig())
	access, refresh, err := tm.IssuePair(testUser(domain.RoleDeputy))
	require.NoError(t, err)

	_, err = tm.ValidateToken(refresh)
	assert.ErrorIs(t, err, auth.ErrWrongTokenType)

	_, err = tm.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, auth.ErrWrongTokenType)
}

func TestTokenManager_RejectsOtherSecret(t *testing.T) {
	tm := auth.NewTokenManager(testAuthConfig())
	access, _, err := tm.IssuePair(testUser(domain.RoleAdministrator))
	require.NoError(t, err)

	other := testAuthConfig()
	other.JWTSecret = "another-secret"
	_, err = auth.NewTokenManager(other).ValidateToken(access)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenManager_Expired(t *testing.T) {
	cfg := testAuthConfig()
	claims := auth.Claims{
		Role:      domain.RoleResponsible,
		TokenType: auth.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	_, err = auth.NewTokenManager(cfg).ValidateToken(signed)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestTokenManager_RejectsUnknownRole(t *testing.T) {
	cfg := testAuthConfig()
	claims := auth.Claims{
		Role:      domain.Role("DEPUTY"),
		TokenType: auth.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	_, err = auth.NewTokenManager(cfg).ValidateToken(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-pass", 4)
	require.NoError(t, err)

	assert.NoError(t, auth.CheckPassword(hash, "s3cret-pass"))
	assert.ErrorIs(t, auth.CheckPassword(hash, "wrong"), auth.ErrPasswordMismatch)
}

func TestNewResetToken(t *testing.T) {
	a, err := auth.NewResetToken()
	require.NoError(t, err)
	b, err := auth.NewResetToken()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
