package persistence

import "time"

// User represents a registered account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Meeting is the stored form of a room booking. Times are kept as separate
// hour and minute columns on a wall-clock date.
type Meeting struct {
	ID           int64
	Title        string
	Date         string
	StartHour    int
	StartMinute  int
	EndHour      int
	EndMinute    int
	Location     string
	Note         *string
	Participants []string
	CreatedBy    string
	UpdatedBy    *string
	IsCancelled  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MeetingFields is a sparse column update. Nil fields are left untouched.
// An empty Note clears the stored note.
type MeetingFields struct {
	Title        *string
	Date         *string
	StartHour    *int
	StartMinute  *int
	EndHour      *int
	EndMinute    *int
	Location     *string
	Note         *string
	// Participants, when set, replaces the participant list in the same
	// transaction as the column updates.
	Participants *[]string
	UpdatedBy    string
}

// MeetingFilter narrows meeting listings.
type MeetingFilter struct {
	Date             *string
	IncludeCancelled bool
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// DeliveryRecord is one notification attempt outcome for one recipient.
type DeliveryRecord struct {
	ID           int64
	MeetingID    int64
	Recipient    string
	Type         string
	Status       string
	ErrorMessage *string
	SentAt       time.Time
}

// Delivery statuses.
const (
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)
