package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/repository"
	"github.com/straye-as/status-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, read bool) *domain.Notification {
	notification := &domain.Notification{
		UserID:     userID,
		Type:       string(domain.NotificationTypeEscalation),
		Title:      "Escalation",
		Message:    "Supply Chain on Pump needs attention",
		Read:       read,
		EntityType: "Escalation",
	}
	require.NoError(t, db.Create(notification).Error)
	return notification
}

func TestNotificationRepository_ReadFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, db, "resp", domain.RoleResponsible)
	other := testutil.CreateTestUser(t, db, "other", domain.RoleResponsible)

	first := createTestNotification(t, db, user.ID, false)
	createTestNotification(t, db, user.ID, false)
	createTestNotification(t, db, user.ID, true)
	foreign := createTestNotification(t, db, other.ID, false)

	unread, err := repo.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	t.Run("cannot mark another user's notification", func(t *testing.T) {
		ok, err := repo.MarkAsRead(ctx, foreign.ID, user.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	ok, err := repo.MarkAsRead(ctx, first.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	list, total, err := repo.ListByUser(ctx, user.ID, 1, 20, true, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	updated, err := repo.MarkAllAsRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	unread, err = repo.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestNotificationRepository_DeleteReadOlderThan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, db, "resp", domain.RoleResponsible)
	createTestNotification(t, db, user.ID, true)
	createTestNotification(t, db, user.ID, false)

	deleted, err := repo.DeleteReadOlderThan(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err := repo.ListByUser(ctx, user.ID, 1, 20, false, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
