package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/notification"
)

var (
	_ application.Metrics  = (*Metrics)(nil)
	_ notification.Metrics = (*Metrics)(nil)
)

func TestMetrics_Availability(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAvailabilityCheck(3*time.Millisecond, nil)
	m.ObserveAvailabilityCheck(time.Millisecond, &application.ValidationError{})
	m.ObserveAvailabilityCheck(time.Millisecond, &application.PersistenceError{Op: "read", Err: errors.New("locked")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvailabilityChecks.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvailabilityChecks.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvailabilityChecks.WithLabelValues("persistence")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AvailabilityDuration))
}

func TestMetrics_MutationsAndNotifications(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordMutation(application.ActionCreated, "success")
	m.RecordMutation(application.ActionCreated, "success")
	m.RecordMutation(application.ActionUpdated, "room_conflict")
	m.IncSent(application.ActionCancelled, notification.StatusFailed)
	m.IncRetries()
	m.IncDropped()
	m.SetQueueDepth(3)
	m.ObserveLockWait(time.Millisecond)
	m.ObserveSendDuration(10 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Mutations.WithLabelValues("created", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("updated", "room_conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("cancelled", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationDropped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.NotificationQueue))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "roombook_date_lock_wait_seconds")
	assert.Contains(t, names, "roombook_notification_send_duration_seconds")
}
