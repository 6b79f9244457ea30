package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"github.com/straye-as/status-api/internal/logger"
	"github.com/straye-as/status-api/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrDispatcherClosed is returned for messages submitted after Close
var ErrDispatcherClosed = errors.New("notification dispatcher is closed")

// ErrQueueFull is reported when too many async deliveries are outstanding
var ErrQueueFull = errors.New("notification queue is full")

// DispatcherConfig bounds how messages are delivered
type DispatcherConfig struct {
	// Async delivers on background goroutines. When false Submit delivers inline.
	Async bool
	// Workers is the maximum number of concurrent deliveries
	Workers int64
	// QueueSize is how many async messages may wait for a free worker.
	// Messages beyond it are rejected.
	QueueSize int64
	// Timeout bounds a single delivery attempt
	Timeout time.Duration
	// MaxRetryElapsed bounds the total time spent retrying one message
	MaxRetryElapsed time.Duration
	From            string
}

// Dispatcher delivers notifications after the originating transaction has
// committed. Failures are logged and counted, never returned to the caller.
type Dispatcher struct {
	mailer  Mailer
	cfg     DispatcherConfig
	metrics *metrics.Metrics
	logger  *zap.Logger

	sem     *semaphore.Weighted
	pending *semaphore.Weighted
	breaker *gobreaker.CircuitBreaker

	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewDispatcher creates a dispatcher around the mailer
func NewDispatcher(mailer Mailer, cfg DispatcherConfig, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetryElapsed <= 0 {
		cfg.MaxRetryElapsed = 10 * time.Second
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		mailer:  mailer,
		cfg:     cfg,
		metrics: m,
		logger:  log,
		sem:     semaphore.NewWeighted(cfg.Workers),
		pending: semaphore.NewWeighted(cfg.Workers + cfg.QueueSize),
		baseCtx: baseCtx,
		cancel:  cancel,
	}

	d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("mail circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return d
}

// Submit hands a message over for delivery. A message without recipients is
// dropped. In async mode Submit returns immediately and rejects the message
// when Workers+QueueSize deliveries are already outstanding.
func (d *Dispatcher) Submit(ctx context.Context, msg Message) {
	if len(msg.To) == 0 {
		d.record(metrics.OutcomeSkipped, 0)
		return
	}
	if msg.From == "" {
		msg.From = d.cfg.From
	}

	// keep request-scoped values such as the request id but not the deadline
	ctx = context.WithoutCancel(ctx)
	log := logger.WithContext(ctx, d.logger)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.record(metrics.OutcomeRejected, 0)
		log.Warn("notification dropped", zap.Error(ErrDispatcherClosed), zap.String("subject", msg.Subject))
		return
	}
	if d.cfg.Async && !d.pending.TryAcquire(1) {
		d.mu.Unlock()
		d.record(metrics.OutcomeRejected, 0)
		log.Warn("notification dropped", zap.Error(ErrQueueFull), zap.String("subject", msg.Subject))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	if !d.cfg.Async {
		defer d.wg.Done()
		d.run(ctx, msg, log)
		return
	}

	go func() {
		defer d.wg.Done()
		defer d.pending.Release(1)
		d.run(ctx, msg, log)
	}()
}

// Close stops accepting messages and waits for in-flight deliveries. When ctx
// expires first the remaining deliveries are cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) run(ctx context.Context, msg Message, log *zap.Logger) {
	// abort when the dispatcher is force-closed
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-d.baseCtx.Done():
			stop()
		case <-ctx.Done():
		}
	}()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.record(metrics.OutcomeRejected, 0)
		log.Warn("notification dropped before delivery", zap.Error(err), zap.String("subject", msg.Subject))
		return
	}
	defer d.sem.Release(1)

	if d.metrics != nil {
		d.metrics.NotificationInFlight.Inc()
		defer d.metrics.NotificationInFlight.Dec()
	}

	start := time.Now()
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return d.attempt(ctx, msg)
	}, backoff.WithContext(d.newBackOff(), ctx))

	if err != nil {
		d.record(metrics.OutcomeFailed, time.Since(start))
		log.Warn("notification delivery failed",
			zap.String("subject", msg.Subject),
			zap.String("recipients", strings.Join(msg.To, ",")),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return
	}

	d.record(metrics.OutcomeSent, time.Since(start))
	log.Info("notification delivered",
		zap.String("subject", msg.Subject),
		zap.Int("recipients", len(msg.To)),
		zap.Int("attempts", attempts),
	)
}

func (d *Dispatcher) attempt(ctx context.Context, msg Message) error {
	_, err := d.breaker.Execute(func() (interface{}, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
		return nil, d.mailer.Send(attemptCtx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return backoff.Permanent(err)
	}
	return err
}

func (d *Dispatcher) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = d.cfg.MaxRetryElapsed
	return bo
}

func (d *Dispatcher) record(outcome string, duration time.Duration) {
	if d.metrics != nil {
		d.metrics.RecordDelivery(outcome, duration)
	}
}
