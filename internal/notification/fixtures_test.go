package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/scheduler"
)

var created = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func sampleMeeting() application.Meeting {
	note := "Bring <slides>"
	return application.Meeting{
		ID:           42,
		Title:        "Quarterly Review",
		Date:         "2024-05-06",
		Start:        scheduler.TimeOfDay{Hour: 9, Minute: 30},
		End:          scheduler.TimeOfDay{Hour: 10, Minute: 15},
		Location:     "Room A",
		Note:         &note,
		Participants: []string{"bob@example.com", "carol@example.com"},
		CreatedBy:    "alice@example.com",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func sampleNotification(action application.Action, recipient string) application.Notification {
	return application.Notification{
		Recipient: recipient,
		Subject:   "Meeting Invitation: Quarterly Review",
		Action:    action,
		Meeting:   sampleMeeting(),
		Actor:     "alice@example.com",
	}
}

type recordingSender struct {
	mu       sync.Mutex
	sent     []Message
	failures int
	err      error
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp 451 try again")
	}
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type deliveryLogStub struct {
	mu      sync.Mutex
	records []application.DeliveryRecord
	err     error
}

func (d *deliveryLogStub) RecordDelivery(ctx context.Context, record application.DeliveryRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.records = append(d.records, record)
	return nil
}

type countingMetrics struct {
	mu      sync.Mutex
	sent    map[string]int
	retries int
	dropped int
	sends   int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{sent: make(map[string]int)}
}

func (m *countingMetrics) IncSent(action application.Action, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[string(action)+"/"+status]++
}

func (m *countingMetrics) IncRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *countingMetrics) ObserveSendDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends++
}

func (m *countingMetrics) SetQueueDepth(int) {}

func (m *countingMetrics) IncDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}
