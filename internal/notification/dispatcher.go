package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/logging"
)

// DeliveryRecorder stores the outcome of each notification.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, record application.DeliveryRecord) error
}

// Metrics receives delivery counters.
type Metrics interface {
	IncSent(action application.Action, status string)
	IncRetries()
	ObserveSendDuration(d time.Duration)
	SetQueueDepth(depth int)
	IncDropped()
}

type nopMetrics struct{}

func (nopMetrics) IncSent(application.Action, string) {}
func (nopMetrics) IncRetries()                        {}
func (nopMetrics) ObserveSendDuration(time.Duration)  {}
func (nopMetrics) SetQueueDepth(int)                  {}
func (nopMetrics) IncDropped()                        {}

// Delivery statuses written to the log.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// DispatcherConfig tunes sending.
type DispatcherConfig struct {
	// Rate is the number of sends per second across all workers.
	Rate float64
	// MaxAttempts per recipient, including the first.
	MaxAttempts int
	// RetryDelays is indexed by attempt; the last entry repeats.
	RetryDelays []time.Duration
}

// DefaultDispatcherConfig mirrors the configuration defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Rate:        5,
		MaxAttempts: 3,
		RetryDelays: []time.Duration{time.Second, 5 * time.Second},
	}
}

// Dispatcher renders and sends one notification at a time.
type Dispatcher struct {
	sender     Sender
	renderer   *Renderer
	deliveries DeliveryRecorder
	limiter    *rate.Limiter
	cfg        DispatcherConfig
	metrics    Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// DispatcherDeps groups collaborators. Deliveries and Metrics are optional.
type DispatcherDeps struct {
	Sender     Sender
	Renderer   *Renderer
	Deliveries DeliveryRecorder
	Metrics    Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(deps DispatcherDeps, cfg DispatcherConfig) *Dispatcher {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultDispatcherConfig().Rate
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if deps.Renderer == nil {
		deps.Renderer = NewRenderer(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Dispatcher{
		sender:     deps.Sender,
		renderer:   deps.Renderer,
		deliveries: deps.Deliveries,
		limiter:    rate.NewLimiter(rate.Limit(cfg.Rate), 1),
		cfg:        cfg,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
}

// Notify delivers synchronously. It satisfies application.Notifier when no
// queue is configured.
func (d *Dispatcher) Notify(ctx context.Context, n application.Notification) error {
	return d.Deliver(ctx, n)
}

// Deliver renders n and sends it, retrying transient failures. The final
// outcome is written to the delivery log.
func (d *Dispatcher) Deliver(ctx context.Context, n application.Notification) error {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = d.logger
	}
	logger = logger.With(
		"component", "notification",
		"recipient", n.Recipient,
		"meeting_id", n.Meeting.ID,
		"action", string(n.Action),
	)

	msg, err := d.renderer.Render(n)
	if err != nil {
		d.finish(ctx, logger, n, err)
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			lastErr = fmt.Errorf("rate limiter: %w", err)
			break
		}

		started := d.now()
		lastErr = d.sender.Send(ctx, msg)
		d.metrics.ObserveSendDuration(d.now().Sub(started))
		if lastErr == nil {
			d.finish(ctx, logger, n, nil)
			return nil
		}

		logger.WarnContext(ctx, "notification attempt failed", "attempt", attempt, "error", lastErr)
		if attempt == d.cfg.MaxAttempts {
			break
		}
		d.metrics.IncRetries()
		if err := sleep(ctx, d.retryDelay(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	err = fmt.Errorf("deliver to %s: %w", n.Recipient, lastErr)
	d.finish(ctx, logger, n, err)
	return err
}

func (d *Dispatcher) retryDelay(attempt int) time.Duration {
	if len(d.cfg.RetryDelays) == 0 {
		return 0
	}
	if attempt-1 < len(d.cfg.RetryDelays) {
		return d.cfg.RetryDelays[attempt-1]
	}
	return d.cfg.RetryDelays[len(d.cfg.RetryDelays)-1]
}

func (d *Dispatcher) finish(ctx context.Context, logger *slog.Logger, n application.Notification, sendErr error) {
	record := application.DeliveryRecord{
		MeetingID: n.Meeting.ID,
		Recipient: n.Recipient,
		Action:    n.Action,
		Status:    StatusSent,
		SentAt:    d.now(),
	}
	if sendErr != nil {
		message := sendErr.Error()
		record.Status = StatusFailed
		record.ErrorMessage = &message
		logger.ErrorContext(ctx, "notification not delivered", "error", sendErr)
	} else {
		logger.InfoContext(ctx, "notification delivered")
	}
	d.metrics.IncSent(n.Action, record.Status)

	if d.deliveries == nil {
		return
	}
	// The log write must not be lost because the send consumed the deadline.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.deliveries.RecordDelivery(writeCtx, record); err != nil {
		logger.WarnContext(ctx, "failed to record notification outcome", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
