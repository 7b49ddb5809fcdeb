package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-rooms/internal/scheduler"
)

// RoomCatalog lists the bookable rooms in display order.
type RoomCatalog interface {
	Rooms() []Room
}

// Metrics receives service level measurements. A nil Metrics is replaced by
// a no-op implementation.
type Metrics interface {
	ObserveAvailabilityCheck(duration time.Duration, err error)
	RecordMutation(action Action, outcome string)
	ObserveLockWait(duration time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveAvailabilityCheck(time.Duration, error) {}
func (nopMetrics) RecordMutation(Action, string)                 {}
func (nopMetrics) ObserveLockWait(time.Duration)                 {}

func defaultMetrics(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

// AvailabilityService answers availability queries from the meetings stored
// for a single date. It never writes.
type AvailabilityService struct {
	meetings MeetingRepository
	rooms    RoomCatalog
	metrics  Metrics
	now      func() time.Time
	logger   *slog.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(meetings MeetingRepository, rooms RoomCatalog, metrics Metrics) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(meetings, rooms, metrics, nil)
}

// NewAvailabilityServiceWithLogger constructs an AvailabilityService with a specified logger.
func NewAvailabilityServiceWithLogger(meetings MeetingRepository, rooms RoomCatalog, metrics Metrics, logger *slog.Logger) *AvailabilityService {
	return &AvailabilityService{
		meetings: meetings,
		rooms:    rooms,
		metrics:  defaultMetrics(metrics),
		now:      time.Now,
		logger:   defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// CheckAvailability reports which rooms are free for the window and which of
// the queried participants already attend an overlapping meeting. The window
// is not checked against business hours.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, query AvailabilityQuery) (result AvailabilityResult, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if s.meetings == nil {
		err = fmt.Errorf("meeting repository not configured")
		return
	}

	started := s.now()
	participants := normalizeParticipants(query.Participants)
	logger := s.loggerWith(ctx, "CheckAvailability",
		"date", query.Date,
		"start", query.Start.String(),
		"end", query.End.String(),
		"participant_count", len(participants),
	)
	defer func() {
		s.metrics.ObserveAvailabilityCheck(s.now().Sub(started), err)
		if err != nil {
			logger.ErrorContext(ctx, "availability check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "availability checked")
	}()

	vErr := &ValidationError{}
	if _, perr := scheduler.ParseDate(query.Date); perr != nil {
		vErr.Add("date", "date must use YYYY-MM-DD")
	}
	vErr.addFailure(scheduler.CheckRange("start_time", query.Start))
	vErr.addFailure(scheduler.CheckRange("end_time", query.End))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var stored []Meeting
	stored, err = s.meetings.FindMeetingsByDate(ctx, query.Date, false)
	if err != nil {
		err = mapMeetingRepoError("find meetings by date", err)
		return
	}

	evaluated := scheduler.Evaluate(roomNames(s.rooms), toBookings(stored), scheduler.Query{
		Window:       scheduler.Interval{Start: query.Start, End: query.End},
		Participants: participants,
		ExcludeID:    query.ExcludeMeetingID,
	})
	result = AvailabilityResult{
		RoomAvailability:     evaluated.RoomAvailability,
		ParticipantConflicts: keyByQueried(query.Participants, evaluated.ParticipantConflicts),
	}
	return
}

// keyByQueried re-keys conflicts, which are indexed by normalized identity,
// by each participant exactly as the caller spelled it.
func keyByQueried(queried []string, conflicts map[string][]string) map[string][]string {
	out := make(map[string][]string, len(queried))
	for _, original := range queried {
		normalized := strings.ToLower(strings.TrimSpace(original))
		if normalized == "" {
			continue
		}
		titles := conflicts[normalized]
		out[original] = append(make([]string, 0, len(titles)), titles...)
	}
	return out
}

func roomNames(catalog RoomCatalog) []string {
	if catalog == nil {
		return nil
	}
	rooms := catalog.Rooms()
	names := make([]string, 0, len(rooms))
	for _, room := range rooms {
		names = append(names, room.Name)
	}
	return names
}

func hasRoom(catalog RoomCatalog, name string) bool {
	for _, room := range roomNames(catalog) {
		if room == name {
			return true
		}
	}
	return false
}

func toBookings(meetings []Meeting) []scheduler.Booking {
	bookings := make([]scheduler.Booking, 0, len(meetings))
	for _, meeting := range meetings {
		if meeting.IsCancelled {
			continue
		}
		bookings = append(bookings, scheduler.Booking{
			ID:           meeting.ID,
			Title:        meeting.Title,
			Location:     meeting.Location,
			Window:       meeting.Window(),
			Participants: meeting.Participants,
		})
	}
	return bookings
}

// normalizeParticipants lowercases and trims identities, dropping blanks and
// repeats while keeping first-seen order.
func normalizeParticipants(participants []string) []string {
	if len(participants) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(participants))
	normalized := make([]string, 0, len(participants))
	for _, participant := range participants {
		value := strings.ToLower(strings.TrimSpace(participant))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	return normalized
}
