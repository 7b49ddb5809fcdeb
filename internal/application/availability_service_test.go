package application

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/example/meeting-rooms/internal/scheduler"
)

func tod(hour, minute int) scheduler.TimeOfDay {
	return scheduler.TimeOfDay{Hour: hour, Minute: minute}
}

func storedMeeting(id int64, title, location string, start, end scheduler.TimeOfDay, participants ...string) Meeting {
	return Meeting{
		ID:           id,
		Title:        title,
		Date:         "2024-05-06",
		Start:        start,
		End:          end,
		Location:     location,
		Participants: participants,
		CreatedBy:    "owner@example.com",
	}
}

func TestAvailabilityService_CheckAvailability(t *testing.T) {
	t.Parallel()

	rooms := staticRooms{"Room A", "Room B"}

	t.Run("reports rooms and participant conflicts from one date read", func(t *testing.T) {
		t.Parallel()

		repo := newMeetingRepoStub(
			storedMeeting(1, "Standup", "Room A", tod(9, 0), tod(9, 30), "p@example.com"),
			storedMeeting(2, "Review", "Room B", tod(11, 0), tod(12, 0), "p@example.com"),
		)
		metrics := &metricsStub{}
		svc := NewAvailabilityService(repo, rooms, metrics)

		result, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{
			Date:         "2024-05-06",
			Start:        tod(9, 15),
			End:          tod(9, 45),
			Participants: []string{"p@example.com", "q@example.com"},
		})
		if err != nil {
			t.Fatalf("CheckAvailability returned error: %v", err)
		}

		if want := map[string]bool{"Room A": false, "Room B": true}; !reflect.DeepEqual(result.RoomAvailability, want) {
			t.Fatalf("room availability = %v, want %v", result.RoomAvailability, want)
		}
		want := map[string][]string{"p@example.com": {"Standup"}, "q@example.com": {}}
		if !reflect.DeepEqual(result.ParticipantConflicts, want) {
			t.Fatalf("participant conflicts = %v, want %v", result.ParticipantConflicts, want)
		}
		if repo.findByDateCalls != 1 || metrics.checks != 1 {
			t.Fatalf("expected one read and one metric, got %d/%d", repo.findByDateCalls, metrics.checks)
		}
	})

	t.Run("keys conflicts by the participant as queried", func(t *testing.T) {
		t.Parallel()

		repo := newMeetingRepoStub(storedMeeting(1, "Standup", "Room A", tod(9, 0), tod(9, 30), "bob@example.com"))
		svc := NewAvailabilityService(repo, rooms, nil)

		result, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{
			Date:         "2024-05-06",
			Start:        tod(9, 15),
			End:          tod(9, 45),
			Participants: []string{"Bob@Example.com", " bob@example.com ", "Dave@Example.com", "  "},
		})
		if err != nil {
			t.Fatalf("CheckAvailability returned error: %v", err)
		}

		want := map[string][]string{
			"Bob@Example.com":   {"Standup"},
			" bob@example.com ": {"Standup"},
			"Dave@Example.com":  {},
		}
		if !reflect.DeepEqual(result.ParticipantConflicts, want) {
			t.Fatalf("participant conflicts = %v, want %v", result.ParticipantConflicts, want)
		}
		if _, ok := result.ParticipantConflicts["bob@example.com"]; ok {
			t.Fatalf("normalized identity must not appear as its own key")
		}
	})

	t.Run("excludes the meeting being edited", func(t *testing.T) {
		t.Parallel()

		repo := newMeetingRepoStub(storedMeeting(7, "Planning", "Room A", tod(9, 0), tod(10, 0)))
		svc := NewAvailabilityService(repo, rooms, nil)
		exclude := int64(7)

		result, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{
			Date:             "2024-05-06",
			Start:            tod(9, 0),
			End:              tod(10, 0),
			ExcludeMeetingID: &exclude,
		})
		if err != nil {
			t.Fatalf("CheckAvailability returned error: %v", err)
		}
		if !result.RoomAvailability["Room A"] {
			t.Fatalf("expected Room A to be free when its own meeting is excluded")
		}
		if len(result.ParticipantConflicts) != 0 {
			t.Fatalf("expected no participant keys, got %v", result.ParticipantConflicts)
		}
	})

	t.Run("ignores cancelled meetings", func(t *testing.T) {
		t.Parallel()

		cancelled := storedMeeting(3, "Old", "Room B", tod(10, 0), tod(11, 0), "p@example.com")
		cancelled.IsCancelled = true
		svc := NewAvailabilityService(newMeetingRepoStub(cancelled), rooms, nil)

		result, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{
			Date:         "2024-05-06",
			Start:        tod(10, 0),
			End:          tod(11, 0),
			Participants: []string{"p@example.com"},
		})
		if err != nil {
			t.Fatalf("CheckAvailability returned error: %v", err)
		}
		if !result.RoomAvailability["Room B"] {
			t.Fatalf("cancelled meeting must not occupy Room B")
		}
		if got, ok := result.ParticipantConflicts["p@example.com"]; !ok || len(got) != 0 {
			t.Fatalf("expected an empty conflict list for p, got %v (present=%v)", got, ok)
		}
	})

	t.Run("does not apply business hours", func(t *testing.T) {
		t.Parallel()

		svc := NewAvailabilityService(newMeetingRepoStub(), rooms, nil)
		result, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{
			Date:  "2024-05-06",
			Start: tod(6, 7),
			End:   tod(22, 0),
		})
		if err != nil {
			t.Fatalf("CheckAvailability returned error: %v", err)
		}
		if !result.RoomAvailability["Room A"] {
			t.Fatalf("expected Room A to be free outside business hours")
		}
	})

	t.Run("rejects malformed dates and clock values", func(t *testing.T) {
		t.Parallel()

		svc := NewAvailabilityService(newMeetingRepoStub(), rooms, nil)
		_, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{
			Date:  "06/05/2024",
			Start: tod(25, 0),
			End:   tod(10, 0),
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(vErr.Failures) != 2 || vErr.Failures[0].Field != "date" || vErr.Failures[1].Field != "start_time" {
			t.Fatalf("unexpected failures %+v", vErr.Failures)
		}
	})

	t.Run("wraps repository failures", func(t *testing.T) {
		t.Parallel()

		repo := newMeetingRepoStub()
		repo.findByDateErr = errors.New("disk I/O error")
		svc := NewAvailabilityService(repo, rooms, nil)

		_, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{Date: "2024-05-06", Start: tod(9, 0), End: tod(10, 0)})

		var pErr *PersistenceError
		if !errors.As(err, &pErr) {
			t.Fatalf("expected PersistenceError, got %v", err)
		}
		if pErr.Op != "find meetings by date" || ErrorKind(err) != "persistence" {
			t.Fatalf("unexpected persistence error %+v (kind %q)", pErr, ErrorKind(err))
		}
	})

	t.Run("recomputes from scratch on every call", func(t *testing.T) {
		t.Parallel()

		repo := newMeetingRepoStub(storedMeeting(1, "Standup", "Room A", tod(9, 0), tod(9, 30)))
		svc := NewAvailabilityService(repo, rooms, nil)
		query := AvailabilityQuery{Date: "2024-05-06", Start: tod(9, 0), End: tod(10, 0)}

		first, err := svc.CheckAvailability(context.Background(), query)
		if err != nil {
			t.Fatalf("first check: %v", err)
		}
		second, err := svc.CheckAvailability(context.Background(), query)
		if err != nil {
			t.Fatalf("second check: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("results differ: %+v vs %+v", first, second)
		}
		if repo.findByDateCalls != 2 {
			t.Fatalf("expected two repository reads, got %d", repo.findByDateCalls)
		}
	})
}
