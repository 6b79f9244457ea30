package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/mapper"
	"github.com/straye-as/status-api/internal/repository"
	"go.uber.org/zap"
)

// NotificationService handles the in-app notification inbox
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	logger           *zap.Logger
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// GetForCurrentUser returns notifications for the current user with pagination
func (s *NotificationService) GetForCurrentUser(
	ctx context.Context,
	page int,
	pageSize int,
	unreadOnly bool,
	notificationType string,
) (*domain.PaginatedResponse, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	notifications, total, err := s.notificationRepo.ListByUser(ctx, userCtx.UserID, page, pageSize, unreadOnly, notificationType)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	dtos := make([]domain.NotificationDTO, len(notifications))
	for i := range notifications {
		dtos[i] = mapper.ToNotificationDTO(&notifications[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// GetUnreadCount returns the number of unread notifications of the caller
func (s *NotificationService) GetUnreadCount(ctx context.Context) (int64, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return 0, ErrUnauthorized
	}
	return s.notificationRepo.CountUnread(ctx, userCtx.UserID)
}

// MarkAsRead marks one of the caller's notifications read. Notifications of
// other users are reported as not found.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}

	updated, err := s.notificationRepo.MarkAsRead(ctx, id, userCtx.UserID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if !updated {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllAsRead marks every unread notification of the caller read
func (s *NotificationService) MarkAllAsRead(ctx context.Context) (int64, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return 0, ErrUnauthorized
	}

	count, err := s.notificationRepo.MarkAllAsRead(ctx, userCtx.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}

	s.logger.Debug("notifications marked as read",
		zap.String("user_id", userCtx.UserID.String()),
		zap.Int64("count", count),
	)
	return count, nil
}

// PurgeRead deletes read notifications older than the retention window
func (s *NotificationService) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	return s.notificationRepo.DeleteReadOlderThan(ctx, time.Now().UTC().Add(-retention))
}
