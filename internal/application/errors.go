package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/meeting-rooms/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the caller has no valid session.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned for unknown accounts and wrong passwords alike.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	ErrSessionExpired     = errors.New("application: session expired")
	ErrSessionRevoked     = errors.New("application: session revoked")
	// ErrRoomUnavailable is returned when a serialized re-check finds the
	// target room already booked.
	ErrRoomUnavailable = errors.New("application: room unavailable")
	// ErrMeetingCancelled is returned when editing a cancelled meeting.
	ErrMeetingCancelled = errors.New("application: meeting is cancelled")
)

// ValidationError carries every field failure found in one request, in the
// order they were detected.
type ValidationError struct {
	Failures []scheduler.FieldError
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.Failures) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v.Failures))
	for _, failure := range v.Failures {
		parts = append(parts, failure.Field+": "+failure.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Failures) > 0
}

// Add records a field level validation error.
func (v *ValidationError) Add(field, message string) {
	v.Failures = append(v.Failures, scheduler.FieldError{Field: field, Message: message})
}

func (v *ValidationError) addFailure(failure *scheduler.FieldError) {
	if failure != nil {
		v.Failures = append(v.Failures, *failure)
	}
}

func (v *ValidationError) addFailures(failures []scheduler.FieldError) {
	v.Failures = append(v.Failures, failures...)
}

// RoomConflictError reports the meetings that already hold the room.
type RoomConflictError struct {
	Room   string
	Titles []string
}

func (e *RoomConflictError) Error() string {
	return fmt.Sprintf("room %q is already booked by %s", e.Room, strings.Join(e.Titles, ", "))
}

func (e *RoomConflictError) Unwrap() error {
	return ErrRoomUnavailable
}

// PersistenceError wraps a repository failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
