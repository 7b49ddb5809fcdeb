package application

import (
	"time"

	"github.com/example/meeting-rooms/internal/scheduler"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID   string
	Email    string
	Username string
	IsAdmin  bool
}

// Meeting is a room booking on a single wall-clock date.
type Meeting struct {
	ID           int64
	Title        string
	Date         string
	Start        scheduler.TimeOfDay
	End          scheduler.TimeOfDay
	Location     string
	Note         *string
	Participants []string
	CreatedBy    string
	UpdatedBy    *string
	IsCancelled  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Window returns the meeting's half-open time interval.
func (m Meeting) Window() scheduler.Interval {
	return scheduler.Interval{Start: m.Start, End: m.End}
}

// MeetingDraft captures the fields of a meeting about to be created.
type MeetingDraft struct {
	Title        string
	Date         string
	Start        scheduler.TimeOfDay
	End          scheduler.TimeOfDay
	Location     string
	Note         *string
	Participants []string
	CreatedBy    string
}

// MeetingChanges is a sparse update. Nil fields are left unchanged and a
// non-nil Participants replaces the whole participant list.
type MeetingChanges struct {
	Title        *string
	Date         *string
	Start        *scheduler.TimeOfDay
	End          *scheduler.TimeOfDay
	Location     *string
	Note         *string
	Participants *[]string
}

// IsEmpty reports whether no field was supplied.
func (c MeetingChanges) IsEmpty() bool {
	return c.Title == nil && c.Date == nil && c.Start == nil && c.End == nil &&
		c.Location == nil && c.Note == nil && c.Participants == nil
}

// MeetingFields is the update handed to the repository. A non-nil
// Participants replaces the membership in the same write.
type MeetingFields struct {
	Title        *string
	Date         *string
	Start        *scheduler.TimeOfDay
	End          *scheduler.TimeOfDay
	Location     *string
	Note         *string
	Participants *[]string
	UpdatedBy    string
}

// MeetingFilter narrows meeting listings.
type MeetingFilter struct {
	Date             *string
	IncludeCancelled bool
}

// Room is one entry of the configured room catalog.
type Room struct {
	Name        string
	Capacity    int
	Description string
}

// AvailabilityQuery asks which rooms are free and which participants are busy
// for a window on one date.
type AvailabilityQuery struct {
	Date             string
	Start            scheduler.TimeOfDay
	End              scheduler.TimeOfDay
	Participants     []string
	ExcludeMeetingID *int64
}

// AvailabilityResult maps every room to its availability and every queried
// participant to the titles of the meetings they already attend.
type AvailabilityResult struct {
	RoomAvailability     map[string]bool
	ParticipantConflicts map[string][]string
}

// CreateMeetingParams wraps the data required to create a meeting.
type CreateMeetingParams struct {
	Principal Principal
	Draft     MeetingDraft
}

// UpdateMeetingParams wraps the data required to update a meeting.
type UpdateMeetingParams struct {
	Principal Principal
	MeetingID int64
	Changes   MeetingChanges
}

// CancelMeetingParams wraps the data required to cancel a meeting.
type CancelMeetingParams struct {
	Principal Principal
	MeetingID int64
}

// Action names the mutation a notification reports.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionCancelled Action = "cancelled"
)

// Notification is one message to one recipient about one meeting.
type Notification struct {
	Recipient string
	Subject   string
	Action    Action
	Meeting   Meeting
	// Actor is the identity that performed the mutation.
	Actor string
}

// DeliveryRecord is the logged outcome of one notification attempt.
type DeliveryRecord struct {
	ID           int64
	MeetingID    int64
	Recipient    string
	Action       Action
	Status       string
	ErrorMessage *string
	SentAt       time.Time
}

// User represents a registered account exposed by the application services.
type User struct {
	ID        string
	Username  string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegisterParams captures the fields of a self-service registration.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}
