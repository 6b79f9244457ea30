package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	TokenCleanupJobName        = "password_reset_token_cleanup"
	NotificationCleanupJobName = "notification_cleanup"

	defaultJobTimeout = 5 * time.Minute
)

// TokenPurger removes password reset tokens past their expiry
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// NotificationPurger removes read notifications older than the retention
type NotificationPurger interface {
	PurgeRead(ctx context.Context, retention time.Duration) (int64, error)
}

// CleanupJob wraps a single purge call with a timeout and a log line
type CleanupJob struct {
	name    string
	purge   func(ctx context.Context) (int64, error)
	logger  *zap.Logger
	timeout time.Duration
}

// NewTokenCleanupJob purges expired password reset tokens
func NewTokenCleanupJob(tokens TokenPurger, logger *zap.Logger) *CleanupJob {
	return &CleanupJob{
		name:    TokenCleanupJobName,
		purge:   tokens.PurgeExpiredTokens,
		logger:  logger,
		timeout: defaultJobTimeout,
	}
}

// NewNotificationCleanupJob purges read notifications older than retention
func NewNotificationCleanupJob(notifications NotificationPurger, retention time.Duration, logger *zap.Logger) *CleanupJob {
	return &CleanupJob{
		name: NotificationCleanupJobName,
		purge: func(ctx context.Context) (int64, error) {
			return notifications.PurgeRead(ctx, retention)
		},
		logger:  logger,
		timeout: defaultJobTimeout,
	}
}

// Run executes one purge. Failures are logged and retried on the next tick.
func (j *CleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	removed, err := j.purge(ctx)
	if err != nil {
		j.logger.Error("cleanup job failed",
			zap.String("job_name", j.name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}

	j.logger.Info("cleanup job completed",
		zap.String("job_name", j.name),
		zap.Int64("removed", removed),
		zap.Duration("duration", time.Since(start)))
}

// CleanupSchedule carries the cron expressions of the housekeeping jobs.
// An empty expression leaves that job unscheduled.
type CleanupSchedule struct {
	TokenCron             string
	NotificationCron      string
	NotificationRetention time.Duration
}

// RegisterCleanupJobs adds the token and notification cleanup jobs
func RegisterCleanupJobs(s *Scheduler, tokens TokenPurger, notifications NotificationPurger, schedule CleanupSchedule, logger *zap.Logger) error {
	if schedule.TokenCron != "" {
		job := NewTokenCleanupJob(tokens, logger)
		if err := s.AddJob(TokenCleanupJobName, schedule.TokenCron, job.Run); err != nil {
			return err
		}
	}
	if schedule.NotificationCron != "" {
		job := NewNotificationCleanupJob(notifications, schedule.NotificationRetention, logger)
		if err := s.AddJob(NotificationCleanupJobName, schedule.NotificationCron, job.Run); err != nil {
			return err
		}
	}
	return nil
}
