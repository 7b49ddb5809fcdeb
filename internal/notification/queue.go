package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/meeting-rooms/internal/application"
)

var (
	// ErrQueueFull is returned when the buffer is saturated; the
	// notification is dropped.
	ErrQueueFull = errors.New("notification: queue full")
	// ErrQueueClosed is returned after Stop.
	ErrQueueClosed = errors.New("notification: queue closed")
)

// Deliverer sends a single notification.
type Deliverer interface {
	Deliver(ctx context.Context, n application.Notification) error
}

// QueueConfig sizes the queue.
type QueueConfig struct {
	Size    int
	Workers int
}

type job struct {
	ctx          context.Context
	notification application.Notification
}

// Queue buffers notifications and delivers them from a fixed worker pool so
// mutations never wait on mail transport.
type Queue struct {
	deliverer Deliverer
	workers   int
	metrics   Metrics
	logger    *slog.Logger

	mu      sync.RWMutex
	jobs    chan job
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewQueue creates a stopped queue. Call Start to launch workers.
func NewQueue(deliverer Deliverer, cfg QueueConfig, metrics Metrics, logger *slog.Logger) *Queue {
	if cfg.Size <= 0 {
		cfg.Size = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		deliverer: deliverer,
		workers:   cfg.Workers,
		metrics:   metrics,
		logger:    logger,
		jobs:      make(chan job, cfg.Size),
	}
}

// Start launches the workers. Subsequent calls are no-ops.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.logger.Info("notification queue started", "workers", q.workers, "capacity", cap(q.jobs))
}

// Notify enqueues n without blocking. The request context's values are kept
// but its cancellation is not, so delivery outlives the request.
func (q *Queue) Notify(ctx context.Context, n application.Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job{ctx: context.WithoutCancel(ctx), notification: n}:
		q.metrics.SetQueueDepth(len(q.jobs))
		return nil
	default:
		q.metrics.IncDropped()
		return ErrQueueFull
	}
}

// Stop refuses new work and waits for queued jobs to drain or ctx to end.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.logger.Info("notification queue drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.metrics.SetQueueDepth(len(q.jobs))
		// Dispatcher logs and records the outcome itself.
		_ = q.deliverer.Deliver(j.ctx, j.notification)
	}
}
