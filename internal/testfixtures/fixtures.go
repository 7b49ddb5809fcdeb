package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/persistence"
	"github.com/example/meeting-rooms/internal/scheduler"
)

var (
	userCounter    uint64
	meetingCounter uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceDate is the wall-clock date meeting fixtures are booked on.
const ReferenceDate = "2024-01-08"

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Username:     id,
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

func WithUsername(name string) UserOption {
	return func(f *UserFixture) { f.Username = name }
}

func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) { f.IsAdmin = isAdmin }
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application converts the fixture into the application-layer representation.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Username:  f.Username,
		Email:     f.Email,
		IsAdmin:   f.IsAdmin,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence converts the fixture into the persistence-layer representation.
func (f UserFixture) Persistence() persistence.User {
	role := "user"
	if f.IsAdmin {
		role = "admin"
	}
	return persistence.User{
		ID:           f.ID,
		Username:     f.Username,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		Role:         role,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Principal returns the authenticated identity of the fixture user.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{
		UserID:   f.ID,
		Email:    f.Email,
		Username: f.Username,
		IsAdmin:  f.IsAdmin,
	}
}

// ---------------------------- Meeting fixtures ----------------------------

// MeetingFixture is a deterministic booking. Meetings default to a one hour
// slot in Room A on ReferenceDate.
type MeetingFixture struct {
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

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*MeetingFixture)

// NewMeetingFixture returns a deterministic meeting fixture with optional overrides.
func NewMeetingFixture(opts ...MeetingOption) MeetingFixture {
	idx := atomic.AddUint64(&meetingCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := MeetingFixture{
		Title:        fmt.Sprintf("Meeting %03d", idx),
		Date:         ReferenceDate,
		Start:        scheduler.TimeOfDay{Hour: 9},
		End:          scheduler.TimeOfDay{Hour: 10},
		Location:     "Room A",
		Participants: []string{},
		CreatedBy:    "organizer@example.com",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithMeetingID(id int64) MeetingOption {
	return func(f *MeetingFixture) { f.ID = id }
}

func WithMeetingTitle(title string) MeetingOption {
	return func(f *MeetingFixture) { f.Title = title }
}

func WithMeetingDate(date string) MeetingOption {
	return func(f *MeetingFixture) { f.Date = date }
}

// WithMeetingWindow sets the slot from "HH:MM" strings. It panics on
// malformed input since fixtures are static.
func WithMeetingWindow(start, end string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Start = mustTime(start)
		f.End = mustTime(end)
	}
}

func WithMeetingLocation(location string) MeetingOption {
	return func(f *MeetingFixture) { f.Location = location }
}

func WithMeetingNote(note string) MeetingOption {
	return func(f *MeetingFixture) { f.Note = &note }
}

func WithMeetingParticipants(participants ...string) MeetingOption {
	return func(f *MeetingFixture) { f.Participants = append([]string(nil), participants...) }
}

func WithMeetingCreator(creator string) MeetingOption {
	return func(f *MeetingFixture) { f.CreatedBy = creator }
}

func WithMeetingCancelled(cancelled bool) MeetingOption {
	return func(f *MeetingFixture) { f.IsCancelled = cancelled }
}

// Draft returns the creation input equivalent to the fixture.
func (f MeetingFixture) Draft() application.MeetingDraft {
	return application.MeetingDraft{
		Title:        f.Title,
		Date:         f.Date,
		Start:        f.Start,
		End:          f.End,
		Location:     f.Location,
		Note:         f.Note,
		Participants: append([]string(nil), f.Participants...),
		CreatedBy:    f.CreatedBy,
	}
}

// Application converts the fixture into the application-layer representation.
func (f MeetingFixture) Application() application.Meeting {
	return application.Meeting{
		ID:           f.ID,
		Title:        f.Title,
		Date:         f.Date,
		Start:        f.Start,
		End:          f.End,
		Location:     f.Location,
		Note:         f.Note,
		Participants: append([]string(nil), f.Participants...),
		CreatedBy:    f.CreatedBy,
		UpdatedBy:    f.UpdatedBy,
		IsCancelled:  f.IsCancelled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Persistence converts the fixture into the persistence-layer representation.
func (f MeetingFixture) Persistence() persistence.Meeting {
	return persistence.Meeting{
		ID:           f.ID,
		Title:        f.Title,
		Date:         f.Date,
		StartHour:    f.Start.Hour,
		StartMinute:  f.Start.Minute,
		EndHour:      f.End.Hour,
		EndMinute:    f.End.Minute,
		Location:     f.Location,
		Note:         f.Note,
		Participants: append([]string(nil), f.Participants...),
		CreatedBy:    f.CreatedBy,
		UpdatedBy:    f.UpdatedBy,
		IsCancelled:  f.IsCancelled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func mustTime(value string) scheduler.TimeOfDay {
	t, err := scheduler.ParseTimeOfDay(value)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: %v", err))
	}
	return t
}

// ---------------------------- Session fixtures ----------------------------

// SessionFixture represents a deterministic session.
type SessionFixture struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session valid for one day after
// its creation.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    "user-001",
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: created.Add(24 * time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) { f.ID = id }
}

func WithSessionUserID(userID string) SessionOption {
	return func(f *SessionFixture) { f.UserID = userID }
}

func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) { f.Token = token }
}

func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.ExpiresAt = t }
}

func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.RevokedAt = &t }
}

// Application converts the fixture into the application-layer representation.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		RevokedAt: copyTime(f.RevokedAt),
	}
}

// Persistence converts the fixture into the persistence-layer representation.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		RevokedAt: copyTime(f.RevokedAt),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ---------------------------- Delivery fixtures ----------------------------

// NewDeliveryRecord returns a successful delivery of action to recipient.
func NewDeliveryRecord(meetingID int64, recipient string, action application.Action) persistence.DeliveryRecord {
	return persistence.DeliveryRecord{
		MeetingID: meetingID,
		Recipient: recipient,
		Type:      string(action),
		Status:    persistence.DeliveryStatusSent,
		SentAt:    referenceTime,
	}
}
