package persistence

import (
	"context"
	"time"
)

// UserRepository stores registered accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
}

// MeetingRepository is the durable store for meetings and their participants.
type MeetingRepository interface {
	// FindMeetingsByDate returns the meetings on date with participants loaded.
	FindMeetingsByDate(ctx context.Context, date string, includeCancelled bool) ([]Meeting, error)
	FindMeetingByID(ctx context.Context, id int64) (Meeting, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
	// InsertMeeting stores the meeting and its participants atomically and
	// returns the assigned identifier.
	InsertMeeting(ctx context.Context, meeting Meeting) (int64, error)
	// UpdateMeetingFields applies the set fields, participants included, in
	// one transaction and returns the rows affected. A missing meeting
	// affects zero rows and leaves participants untouched.
	UpdateMeetingFields(ctx context.Context, id int64, fields MeetingFields) (int64, error)
	// SetCancelled flags an active meeting as cancelled. It affects zero rows
	// when the meeting is already cancelled.
	SetCancelled(ctx context.Context, id int64, cancelledBy string) (int64, error)
	FindParticipants(ctx context.Context, meetingID int64) ([]string, error)
	ReplaceParticipants(ctx context.Context, meetingID int64, participants []string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// DeliveryLogRepository records notification outcomes.
type DeliveryLogRepository interface {
	RecordDelivery(ctx context.Context, record DeliveryRecord) error
	ListDeliveries(ctx context.Context, meetingID int64) ([]DeliveryRecord, error)
}
