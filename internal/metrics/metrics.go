// Package metrics exposes Prometheus collectors for the booking core.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/meeting-rooms/internal/application"
)

const namespace = "roombook"

// Metrics holds every collector. It satisfies both application.Metrics and
// notification.Metrics.
type Metrics struct {
	// AvailabilityChecks counts availability evaluations by outcome.
	AvailabilityChecks *prometheus.CounterVec

	// AvailabilityDuration is the time to read a date and evaluate a query.
	AvailabilityDuration prometheus.Histogram

	// Mutations counts create/update/cancel calls by outcome.
	Mutations *prometheus.CounterVec

	// LockWait is the time spent acquiring date locks.
	LockWait prometheus.Histogram

	// NotificationsSent counts final delivery outcomes.
	NotificationsSent *prometheus.CounterVec

	NotificationRetries prometheus.Counter
	NotificationDropped prometheus.Counter
	NotificationQueue   prometheus.Gauge
	SendDuration        prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AvailabilityChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "availability_checks_total",
				Help:      "Total number of availability checks by outcome",
			},
			[]string{"outcome"},
		),

		AvailabilityDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "availability_check_duration_seconds",
				Help:      "Time to evaluate an availability query",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
			},
		),

		Mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "meeting_mutations_total",
				Help:      "Total number of meeting mutations by action and outcome",
			},
			[]string{"action", "outcome"},
		),

		LockWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "date_lock_wait_seconds",
				Help:      "Time spent waiting for date locks",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
		),

		NotificationsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Total number of notifications by action and final status",
			},
			[]string{"action", "status"},
		),

		NotificationRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notification_retries_total",
				Help:      "Total number of notification retry attempts",
			},
		),

		NotificationDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_dropped_total",
				Help:      "Total number of notifications dropped because the queue was full",
			},
		),

		NotificationQueue: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "notification_queue_depth",
				Help:      "Current number of queued notifications",
			},
		),

		SendDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "notification_send_duration_seconds",
				Help:      "Time to hand one message to the mail transport",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5},
			},
		),
	}
}

// ObserveAvailabilityCheck records one evaluation.
func (m *Metrics) ObserveAvailabilityCheck(d time.Duration, err error) {
	m.AvailabilityDuration.Observe(d.Seconds())
	outcome := "success"
	if err != nil {
		outcome = application.ErrorKind(err)
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			outcome = "invalid"
		}
	}
	m.AvailabilityChecks.WithLabelValues(outcome).Inc()
}

// RecordMutation counts a create, update or cancel call.
func (m *Metrics) RecordMutation(action application.Action, outcome string) {
	m.Mutations.WithLabelValues(string(action), outcome).Inc()
}

// ObserveLockWait records how long date locks took to acquire.
func (m *Metrics) ObserveLockWait(d time.Duration) {
	m.LockWait.Observe(d.Seconds())
}

// IncSent counts a final notification outcome.
func (m *Metrics) IncSent(action application.Action, status string) {
	m.NotificationsSent.WithLabelValues(string(action), status).Inc()
}

// IncRetries increments the retry counter.
func (m *Metrics) IncRetries() {
	m.NotificationRetries.Inc()
}

// IncDropped counts a notification rejected by a full queue.
func (m *Metrics) IncDropped() {
	m.NotificationDropped.Inc()
}

// SetQueueDepth sets the current queue size.
func (m *Metrics) SetQueueDepth(depth int) {
	m.NotificationQueue.Set(float64(depth))
}

// ObserveSendDuration records the time taken by one send attempt.
func (m *Metrics) ObserveSendDuration(d time.Duration) {
	m.SendDuration.Observe(d.Seconds())
}
