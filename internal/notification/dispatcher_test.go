package notification_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/straye-as/status-api/internal/metrics"
	"github.com/straye-as/status-api/internal/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMailer struct {
	mu       sync.Mutex
	sent     []notification.Message
	failures int32
	calls    atomic.Int32
	delay    time.Duration
}

func (f *fakeMailer) Send(ctx context.Context, msg notification.Message) error {
	n := f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= f.failures {
		return errors.New("smtp: 421 service not available")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) Sent() []notification.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification.Message(nil), f.sent...)
}

func syncConfig() notification.DispatcherConfig {
	return notification.DispatcherConfig{
		Async:           false,
		Workers:         2,
		Timeout:         time.Second,
		MaxRetryElapsed: 2 * time.Second,
		From:            "noreply@example.com",
	}
}

func TestDispatcher_SyncDelivery(t *testing.T) {
	mailer := &fakeMailer{}
	m := metrics.New()
	d := notification.NewDispatcher(mailer, syncConfig(), m, zap.NewNop())

	d.Submit(context.Background(), notification.Message{To: []string{"a@example.com"}, Subject: "ESCALATION: Pump", Body: "b"})

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "noreply@example.com", sent[0].From)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationDelivery.WithLabelValues(metrics.OutcomeSent)))
}

func TestDispatcher_NoRecipientsIsSkipped(t *testing.T) {
	mailer := &fakeMailer{}
	m := metrics.New()
	d := notification.NewDispatcher(mailer, syncConfig(), m, zap.NewNop())

	d.Submit(context.Background(), notification.Message{Subject: "x"})

	assert.Zero(t, mailer.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationDelivery.WithLabelValues(metrics.OutcomeSkipped)))
}

func TestDispatcher_RetriesTransientFailures(t *testing.T) {
	mailer := &fakeMailer{failures: 2}
	d := notification.NewDispatcher(mailer, syncConfig(), metrics.New(), zap.NewNop())

	d.Submit(context.Background(), notification.Message{To: []string{"a@example.com"}, Subject: "s"})

	assert.Equal(t, int32(3), mailer.calls.Load())
	assert.Len(t, mailer.Sent(), 1)
}

func TestDispatcher_FailureIsContained(t *testing.T) {
	mailer := &fakeMailer{failures: 1000}
	m := metrics.New()
	cfg := syncConfig()
	cfg.MaxRetryElapsed = 300 * time.Millisecond
	d := notification.NewDispatcher(mailer, cfg, m, zap.NewNop())

	assert.NotPanics(t, func() {
		d.Submit(context.Background(), notification.Message{To: []string{"a@example.com"}, Subject: "s"})
	})

	assert.Empty(t, mailer.Sent())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationDelivery.WithLabelValues(metrics.OutcomeFailed)))
}

func TestDispatcher_AttemptTimeout(t *testing.T) {
	mailer := &fakeMailer{delay: time.Second}
	m := metrics.New()
	cfg := syncConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.MaxRetryElapsed = 200 * time.Millisecond
	d := notification.NewDispatcher(mailer, cfg, m, zap.NewNop())

	start := time.Now()
	d.Submit(context.Background(), notification.Message{To: []string{"a@example.com"}, Subject: "s"})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationDelivery.WithLabelValues(metrics.OutcomeFailed)))
}

func TestDispatcher_AsyncCloseDrains(t *testing.T) {
	mailer := &fakeMailer{delay: 20 * time.Millisecond}
	cfg := syncConfig()
	cfg.Async = true
	m := metrics.New()
	d := notification.NewDispatcher(mailer, cfg, m, zap.NewNop())

	for i := 0; i < 5; i++ {
		d.Submit(context.Background(), notification.Message{To: []string{"a@example.com"}, Subject: "s"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Len(t, mailer.Sent(), 5)

	d.Submit(context.Background(), notification.Message{To: []string{"a@example.com"}, Subject: "late"})
	assert.Len(t, mailer.Sent(), 5)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationDelivery.WithLabelValues(metrics.OutcomeRejected)))
}

func TestDispatcher_SubmitIgnoresCancelledRequest(t *testing.T) {
	mailer := &fakeMailer{}
	d := notification.NewDispatcher(mailer, syncConfig(), metrics.New(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Submit(ctx, notification.Message{To: []string{"a@example.com"}, Subject: "s"})

	assert.Len(t, mailer.Sent(), 1)
}

func TestDispatcher_AsyncRejectsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	mailer := &blockingMailer{release: release}
	cfg := syncConfig()
	cfg.Async = true
	cfg.Workers = 1
	cfg.QueueSize = 1
	m := metrics.New()
	d := notification.NewDispatcher(mailer, cfg, m, zap.NewNop())

	for i := 0; i < 5; i++ {
		d.Submit(context.Background(), notification.Message{To: []string{"a@example.com"}, Subject: "s"})
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.NotificationDelivery.WithLabelValues(metrics.OutcomeRejected)))

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, int32(2), mailer.calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationDelivery.WithLabelValues(metrics.OutcomeSent)))
}

type blockingMailer struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingMailer) Send(ctx context.Context, _ notification.Message) error {
	b.calls.Add(1)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
