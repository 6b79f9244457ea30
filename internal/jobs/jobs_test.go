package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/straye-as/status-api/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakePurger struct {
	calls     atomic.Int32
	retention time.Duration
	err       error
}

func (f *fakePurger) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	return 3, f.err
}

func (f *fakePurger) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	f.calls.Add(1)
	f.retention = retention
	return 7, f.err
}

func TestScheduler_AddAndRemove(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("b", "@every 1h", func() {}))
	require.NoError(t, s.AddJob("a", "0 */15 * * * *", func() {}))
	assert.Equal(t, []string{"a", "b"}, s.JobNames())

	assert.Error(t, s.AddJob("a", "@hourly", func() {}), "duplicate names are rejected")
	assert.Error(t, s.AddJob("c", "not a cron", func() {}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.JobNames())
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	var runs atomic.Int32
	require.NoError(t, s.AddJob("tick", "* * * * * *", func() { runs.Add(1) }))
	s.Start()
	defer func() { <-s.Stop().Done() }()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestRegisterCleanupJobs(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())
	purger := &fakePurger{}

	require.NoError(t, jobs.RegisterCleanupJobs(s, purger, purger, jobs.CleanupSchedule{
		TokenCron:             "0 */15 * * * *",
		NotificationCron:      "0 30 3 * * *",
		NotificationRetention: 90 * 24 * time.Hour,
	}, zap.NewNop()))
	assert.Equal(t, []string{jobs.NotificationCleanupJobName, jobs.TokenCleanupJobName}, s.JobNames())

	empty := jobs.NewScheduler(zap.NewNop())
	require.NoError(t, jobs.RegisterCleanupJobs(empty, purger, purger, jobs.CleanupSchedule{}, zap.NewNop()))
	assert.Empty(t, empty.JobNames())
}

func TestCleanupJob_Run(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	purger := &fakePurger{}

	jobs.NewNotificationCleanupJob(purger, 48*time.Hour, zap.New(core)).Run()
	assert.Equal(t, 48*time.Hour, purger.retention)

	entries := logs.FilterMessage("cleanup job completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(7), entries[0].ContextMap()["removed"])

	purger.err = errors.New("database is gone")
	jobs.NewTokenCleanupJob(purger, zap.New(core)).Run()
	assert.Equal(t, 1, logs.FilterMessage("cleanup job failed").Len())
	assert.Equal(t, int32(2), purger.calls.Load())
}
