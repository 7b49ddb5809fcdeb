// Package memory provides a map-backed implementation of the persistence
// repositories. It is used when STORAGE=memory and by tests that do not need
// a database file.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/meeting-rooms/internal/persistence"
)

// Store keeps every repository's rows in process memory behind one lock.
type Store struct {
	mu         sync.RWMutex
	now        func() time.Time
	users      map[string]persistence.User
	sessions   map[string]persistence.Session
	meetings   map[int64]persistence.Meeting
	deliveries []persistence.DeliveryRecord
	nextID     int64
	nextLogID  int64
}

// New returns an empty Store. A nil now defaults to time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		users:    make(map[string]persistence.User),
		sessions: make(map[string]persistence.Session),
		meetings: make(map[int64]persistence.Meeting),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// --- UserRepository implementation ---

// CreateUser stores a new user. Username and email must be unique.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%w: user %s", persistence.ErrDuplicate, user.ID)
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Username = strings.TrimSpace(user.Username)
	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return fmt.Errorf("%w: user %s", persistence.ErrDuplicate, user.Username)
		}
	}
	if user.Role == "" {
		user.Role = "user"
	}
	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	lower := strings.ToLower(strings.TrimSpace(email))
	return s.findUser(func(user persistence.User) bool { return user.Email == lower })
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	trimmed := strings.TrimSpace(username)
	return s.findUser(func(user persistence.User) bool { return user.Username == trimmed })
}

func (s *Store) findUser(match func(persistence.User) bool) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if match(user) {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// --- SessionRepository implementation ---

// CreateSession stores a session keyed by its token.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	session.Token = strings.TrimSpace(session.Token)
	if session.ID == "" || session.UserID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[session.UserID]; !ok {
		return persistence.Session{}, persistence.ErrForeignKeyViolation
	}
	if _, ok := s.sessions[session.Token]; ok {
		return persistence.Session{}, fmt.Errorf("%w: session token", persistence.ErrDuplicate)
	}
	now := s.now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.ExpiresAt = session.ExpiresAt.UTC()
	session.RevokedAt = nil

	s.sessions[session.Token] = session
	return cloneSession(session), nil
}

// GetSession retrieves a session by token.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[strings.TrimSpace(token)]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// RevokeSession stamps the revocation time once.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(token)
	session, ok := s.sessions[key]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	stamp := revokedAt.UTC()
	if session.RevokedAt == nil {
		session.RevokedAt = &stamp
	}
	session.UpdatedAt = stamp
	s.sessions[key] = session
	return cloneSession(session), nil
}

// DeleteExpiredSessions drops sessions that expired on or before reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

// --- MeetingRepository implementation ---

// FindMeetingsByDate returns the meetings on date ordered by start time.
func (s *Store) FindMeetingsByDate(ctx context.Context, date string, includeCancelled bool) ([]persistence.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var meetings []persistence.Meeting
	for _, meeting := range s.meetings {
		if meeting.Date != date || (meeting.IsCancelled && !includeCancelled) {
			continue
		}
		meetings = append(meetings, cloneMeeting(meeting))
	}
	sort.Slice(meetings, func(i, j int) bool {
		return lessByStart(meetings[i], meetings[j])
	})
	return meetings, nil
}

// FindMeetingByID retrieves a meeting by identifier.
func (s *Store) FindMeetingByID(ctx context.Context, id int64) (persistence.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meeting, ok := s.meetings[id]
	if !ok {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	return cloneMeeting(meeting), nil
}

// ListMeetings returns meetings newest date first, then by start time.
func (s *Store) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var meetings []persistence.Meeting
	for _, meeting := range s.meetings {
		if filter.Date != nil && meeting.Date != *filter.Date {
			continue
		}
		if meeting.IsCancelled && !filter.IncludeCancelled {
			continue
		}
		meetings = append(meetings, cloneMeeting(meeting))
	}
	sort.Slice(meetings, func(i, j int) bool {
		if meetings[i].Date != meetings[j].Date {
			return meetings[i].Date > meetings[j].Date
		}
		return lessByStart(meetings[i], meetings[j])
	})
	return meetings, nil
}

// InsertMeeting assigns the next identifier and stores the meeting.
func (s *Store) InsertMeeting(ctx context.Context, meeting persistence.Meeting) (int64, error) {
	if err := checkMeeting(meeting); err != nil {
		return 0, err
	}
	if hasDuplicates(meeting.Participants) {
		return 0, fmt.Errorf("%w: participant listed twice", persistence.ErrDuplicate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now().UTC()
	meeting.ID = s.nextID
	meeting.UpdatedBy = nil
	meeting.IsCancelled = false
	meeting.CreatedAt = now
	meeting.UpdatedAt = now
	s.meetings[meeting.ID] = cloneMeeting(meeting)
	return meeting.ID, nil
}

// UpdateMeetingFields applies the non-nil fields of a sparse update.
func (s *Store) UpdateMeetingFields(ctx context.Context, id int64, fields persistence.MeetingFields) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, ok := s.meetings[id]
	if !ok {
		return 0, nil
	}
	if fields.Participants != nil {
		if hasDuplicates(*fields.Participants) {
			return 0, fmt.Errorf("%w: participant listed twice", persistence.ErrDuplicate)
		}
		meeting.Participants = slices.Clone(*fields.Participants)
	}
	if fields.Title != nil {
		meeting.Title = *fields.Title
	}
	if fields.Date != nil {
		meeting.Date = *fields.Date
	}
	if fields.StartHour != nil {
		meeting.StartHour = *fields.StartHour
	}
	if fields.StartMinute != nil {
		meeting.StartMinute = *fields.StartMinute
	}
	if fields.EndHour != nil {
		meeting.EndHour = *fields.EndHour
	}
	if fields.EndMinute != nil {
		meeting.EndMinute = *fields.EndMinute
	}
	if fields.Location != nil {
		meeting.Location = *fields.Location
	}
	if fields.Note != nil {
		if *fields.Note == "" {
			meeting.Note = nil
		} else {
			note := *fields.Note
			meeting.Note = &note
		}
	}
	if err := checkMeeting(meeting); err != nil {
		return 0, err
	}
	if fields.UpdatedBy != "" {
		updatedBy := fields.UpdatedBy
		meeting.UpdatedBy = &updatedBy
	} else {
		meeting.UpdatedBy = nil
	}
	meeting.UpdatedAt = s.now().UTC()
	s.meetings[id] = meeting
	return 1, nil
}

// SetCancelled flags an active meeting as cancelled.
func (s *Store) SetCancelled(ctx context.Context, id int64, cancelledBy string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, ok := s.meetings[id]
	if !ok || meeting.IsCancelled {
		return 0, nil
	}
	meeting.IsCancelled = true
	meeting.UpdatedBy = nil
	if cancelledBy != "" {
		meeting.UpdatedBy = &cancelledBy
	}
	meeting.UpdatedAt = s.now().UTC()
	s.meetings[id] = meeting
	return 1, nil
}

// FindParticipants returns the participants in insertion order.
func (s *Store) FindParticipants(ctx context.Context, meetingID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meeting, ok := s.meetings[meetingID]
	if !ok {
		return nil, nil
	}
	return slices.Clone(meeting.Participants), nil
}

// ReplaceParticipants overwrites the participant list of a meeting.
func (s *Store) ReplaceParticipants(ctx context.Context, meetingID int64, participants []string) error {
	if hasDuplicates(participants) {
		return fmt.Errorf("%w: participant listed twice", persistence.ErrDuplicate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, ok := s.meetings[meetingID]
	if !ok {
		return persistence.ErrNotFound
	}
	meeting.Participants = slices.Clone(participants)
	s.meetings[meetingID] = meeting
	return nil
}

// --- DeliveryLogRepository implementation ---

// RecordDelivery appends a delivery outcome.
func (s *Store) RecordDelivery(ctx context.Context, record persistence.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLogID++
	record.ID = s.nextLogID
	if record.SentAt.IsZero() {
		record.SentAt = s.now()
	}
	record.SentAt = record.SentAt.UTC()
	record.ErrorMessage = copyString(record.ErrorMessage)
	s.deliveries = append(s.deliveries, record)
	return nil
}

// ListDeliveries returns the delivery log of a meeting, oldest first.
func (s *Store) ListDeliveries(ctx context.Context, meetingID int64) ([]persistence.DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []persistence.DeliveryRecord
	for _, record := range s.deliveries {
		if record.MeetingID == meetingID {
			record.ErrorMessage = copyString(record.ErrorMessage)
			records = append(records, record)
		}
	}
	return records, nil
}

// checkMeeting mirrors the table constraints of the SQLite schema.
func checkMeeting(meeting persistence.Meeting) error {
	start := meeting.StartHour*60 + meeting.StartMinute
	end := meeting.EndHour*60 + meeting.EndMinute
	switch {
	case strings.TrimSpace(meeting.Title) == "":
		return fmt.Errorf("%w: empty title", persistence.ErrConstraintViolation)
	case end <= start:
		return fmt.Errorf("%w: end before start", persistence.ErrConstraintViolation)
	case meeting.Note != nil && len(*meeting.Note) > 2000:
		return fmt.Errorf("%w: note too long", persistence.ErrConstraintViolation)
	}
	return nil
}

func lessByStart(a, b persistence.Meeting) bool {
	aStart := a.StartHour*60 + a.StartMinute
	bStart := b.StartHour*60 + b.StartMinute
	if aStart != bStart {
		return aStart < bStart
	}
	return a.ID < b.ID
}

func hasDuplicates(values []string) bool {
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			return true
		}
		seen[value] = struct{}{}
	}
	return false
}

func cloneMeeting(meeting persistence.Meeting) persistence.Meeting {
	clone := meeting
	clone.Note = copyString(meeting.Note)
	clone.UpdatedBy = copyString(meeting.UpdatedBy)
	clone.Participants = slices.Clone(meeting.Participants)
	return clone
}

func cloneSession(session persistence.Session) persistence.Session {
	clone := session
	if session.RevokedAt != nil {
		revoked := *session.RevokedAt
		clone.RevokedAt = &revoked
	}
	return clone
}

func copyString(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
