package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/service"
	"github.com/straye-as/status-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user, err := h.authSvc.Register(ctx, &domain.RegisterRequest{
		Username:   "dora",
		Email:      "dora@example.com",
		Password:   "long-enough-pass",
		Role:       domain.RoleDeputy,
		Department: "Quality",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDeputy, user.Role)
	assert.True(t, user.IsActive)

	_, err = h.authSvc.Register(ctx, &domain.RegisterRequest{
		Username: "dora",
		Email:    "other@example.com",
		Password: "long-enough-pass",
	})
	assert.ErrorIs(t, err, service.ErrDuplicateUsername)

	_, err = h.authSvc.Register(ctx, &domain.RegisterRequest{
		Username: "mallory",
		Email:    "mallory@example.com",
		Password: "long-enough-pass",
		Role:     domain.RoleAdministrator,
	})
	var fields domain.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "role")
}

func TestAuthService_TokenAndRefresh(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.CreateTestUser(t, h.db, "alice", domain.RoleResponsible)

	pair, err := h.authSvc.Token(ctx, &domain.TokenRequest{Username: "alice", Password: testutil.TestPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	_, err = h.authSvc.Token(ctx, &domain.TokenRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = h.authSvc.Token(ctx, &domain.TokenRequest{Username: "nobody", Password: "x"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	refreshed, err := h.authSvc.Refresh(ctx, &domain.RefreshTokenRequest{Refresh: pair.Refresh})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Access)

	_, err = h.authSvc.Refresh(ctx, &domain.RefreshTokenRequest{Refresh: pair.Access})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestAuthService_PasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.CreateTestUser(t, h.db, "alice", domain.RoleResponsible)

	unknown, err := h.authSvc.RequestPasswordReset(ctx, &domain.PasswordResetRequest{Email: "nobody@example.com"})
	require.NoError(t, err)
	assert.Equal(t, service.ResetRequestedMessage, unknown.Message)
	assert.Empty(t, h.mailer.Sent())

	known, err := h.authSvc.RequestPasswordReset(ctx, &domain.PasswordResetRequest{Email: "ALICE@example.com"})
	require.NoError(t, err)
	assert.Equal(t, unknown.Message, known.Message)

	sent := h.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Password Reset Request", sent[0].Subject)
	assert.Equal(t, []string{"alice@example.com"}, sent[0].To)

	const marker = "https://status.example.com/reset-password?token="
	idx := strings.Index(sent[0].Body, marker)
	require.GreaterOrEqual(t, idx, 0, sent[0].Body)
	token := strings.TrimSpace(sent[0].Body[idx+len(marker):])

	_, err = h.authSvc.ConfirmPasswordReset(ctx, &domain.PasswordResetConfirmRequest{Token: "bogus", NewPassword: "brand-new-pass"})
	assert.ErrorIs(t, err, service.ErrInvalidResetToken)

	done, err := h.authSvc.ConfirmPasswordReset(ctx, &domain.PasswordResetConfirmRequest{Token: token, NewPassword: "brand-new-pass"})
	require.NoError(t, err)
	assert.Equal(t, service.ResetCompletedMessage, done.Message)

	_, err = h.authSvc.Token(ctx, &domain.TokenRequest{Username: "alice", Password: "brand-new-pass"})
	assert.NoError(t, err)

	// tokens are single use
	_, err = h.authSvc.ConfirmPasswordReset(ctx, &domain.PasswordResetConfirmRequest{Token: token, NewPassword: "another-pass"})
	assert.ErrorIs(t, err, service.ErrInvalidResetToken)
}

func TestAuthService_ConfirmExpiredToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testutil.CreateTestUser(t, h.db, "alice", domain.RoleResponsible)

	require.NoError(t, h.db.Create(&domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     "stale-token",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}).Error)

	_, err := h.authSvc.ConfirmPasswordReset(ctx, &domain.PasswordResetConfirmRequest{Token: "stale-token", NewPassword: "brand-new-pass"})
	assert.ErrorIs(t, err, service.ErrResetTokenExpired)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	var remaining int64
	require.NoError(t, h.db.Model(&domain.PasswordResetToken{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestAuthService_PurgeExpiredTokens(t *testing.T) {
	h := newHarness(t)
	alice := testutil.CreateTestUser(t, h.db, "alice", domain.RoleResponsible)
	bob := testutil.CreateTestUser(t, h.db, "bob", domain.RoleResponsible)

	require.NoError(t, h.db.Create(&domain.PasswordResetToken{UserID: alice.ID, Token: "old", ExpiresAt: time.Now().UTC().Add(-time.Hour)}).Error)
	require.NoError(t, h.db.Create(&domain.PasswordResetToken{UserID: bob.ID, Token: "fresh", ExpiresAt: time.Now().UTC().Add(time.Hour)}).Error)

	purged, err := h.authSvc.PurgeExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
