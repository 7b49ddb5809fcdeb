package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/meeting-rooms/internal/persistence"
	"github.com/example/meeting-rooms/internal/scheduler"
)

const maxNoteLength = 2000

// MeetingRepository is the durable store the coordinator reads and writes.
type MeetingRepository interface {
	FindMeetingsByDate(ctx context.Context, date string, includeCancelled bool) ([]Meeting, error)
	FindMeetingByID(ctx context.Context, id int64) (Meeting, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
	InsertMeeting(ctx context.Context, draft MeetingDraft) (int64, error)
	UpdateMeetingFields(ctx context.Context, id int64, fields MeetingFields) (int64, error)
	SetCancelled(ctx context.Context, id int64, cancelledBy string) (int64, error)
}

// DeliveryLog lists recorded notification outcomes.
type DeliveryLog interface {
	ListDeliveries(ctx context.Context, meetingID int64) ([]DeliveryRecord, error)
}

// Notifier hands one notification to the delivery pipeline.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// DateLocker serializes writers that touch the same key.
type DateLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MeetingServiceDeps captures the collaborators of a MeetingService.
type MeetingServiceDeps struct {
	Meetings      MeetingRepository
	Rooms         RoomCatalog
	Deliveries    DeliveryLog
	Notifier      Notifier
	BusinessHours scheduler.BusinessHours
	// Locker enables the serialized room re-check on create and update.
	// Nil keeps the unconditional write.
	Locker  DateLocker
	Metrics Metrics
	Now     func() time.Time
	Logger  *slog.Logger
}

// MeetingService coordinates meeting creation, edits and cancellation.
type MeetingService struct {
	meetings   MeetingRepository
	rooms      RoomCatalog
	deliveries DeliveryLog
	notifier   Notifier
	hours      scheduler.BusinessHours
	locker     DateLocker
	metrics    Metrics
	now        func() time.Time
	logger     *slog.Logger
}

// NewMeetingService wires dependencies for the meeting service.
func NewMeetingService(deps MeetingServiceDeps) *MeetingService {
	hours := deps.BusinessHours
	if hours == (scheduler.BusinessHours{}) {
		hours = scheduler.DefaultBusinessHours()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &MeetingService{
		meetings:   deps.Meetings,
		rooms:      deps.Rooms,
		deliveries: deps.Deliveries,
		notifier:   deps.Notifier,
		hours:      hours,
		locker:     deps.Locker,
		metrics:    defaultMetrics(deps.Metrics),
		now:        now,
		logger:     defaultLogger(deps.Logger),
	}
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

func (s *MeetingService) ready() error {
	if s == nil {
		return fmt.Errorf("MeetingService is nil")
	}
	if s.meetings == nil {
		return fmt.Errorf("meeting repository not configured")
	}
	return nil
}

// CreateMeeting validates the draft, stores it and notifies every
// participant plus the creator. It returns the assigned identifier.
func (s *MeetingService) CreateMeeting(ctx context.Context, params CreateMeetingParams) (id int64, err error) {
	if err = s.ready(); err != nil {
		return
	}

	draft := normalizeDraft(params.Draft)
	draft.CreatedBy = params.Principal.Email
	logger := s.loggerWith(ctx, "CreateMeeting",
		"principal_id", params.Principal.UserID,
		"date", draft.Date,
		"location", draft.Location,
	)
	defer func() {
		s.metrics.RecordMutation(ActionCreated, outcome(err))
		if err != nil {
			logger.ErrorContext(ctx, "failed to create meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("meeting_id", id).InfoContext(ctx, "meeting created")
	}()

	if strings.TrimSpace(draft.CreatedBy) == "" {
		err = ErrUnauthorized
		return
	}

	vErr := s.validateMeeting(Meeting{
		Title:        draft.Title,
		Date:         draft.Date,
		Start:        draft.Start,
		End:          draft.End,
		Location:     draft.Location,
		Note:         draft.Note,
		Participants: draft.Participants,
	})
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var release func()
	release, err = s.lockDates(ctx, draft.Date)
	if err != nil {
		return
	}
	defer release()

	if s.locker != nil {
		err = s.ensureRoomFree(ctx, draft.Date, draft.Location, scheduler.Interval{Start: draft.Start, End: draft.End}, nil)
		if err != nil {
			return
		}
	}

	id, err = s.meetings.InsertMeeting(ctx, draft)
	if err != nil {
		err = mapMeetingRepoError("insert meeting", err)
		return
	}

	now := s.now()
	snapshot := Meeting{
		ID:           id,
		Title:        draft.Title,
		Date:         draft.Date,
		Start:        draft.Start,
		End:          draft.End,
		Location:     draft.Location,
		Note:         draft.Note,
		Participants: draft.Participants,
		CreatedBy:    draft.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.notifyAll(ctx, logger, snapshot, ActionCreated, draft.CreatedBy)
	return
}

// GetMeeting returns a meeting with its participants.
func (s *MeetingService) GetMeeting(ctx context.Context, id int64) (Meeting, error) {
	if err := s.ready(); err != nil {
		return Meeting{}, err
	}
	meeting, err := s.meetings.FindMeetingByID(ctx, id)
	if err != nil {
		err = mapMeetingRepoError("find meeting", err)
		s.loggerWith(ctx, "GetMeeting", "meeting_id", id).
			ErrorContext(ctx, "failed to get meeting", "error", err, "error_kind", ErrorKind(err))
		return Meeting{}, err
	}
	return meeting, nil
}

// ListMeetings returns meetings newest date first, then by start time.
func (s *MeetingService) ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if filter.Date != nil {
		if _, err := scheduler.ParseDate(*filter.Date); err != nil {
			vErr := &ValidationError{}
			vErr.Add("date", "date must use YYYY-MM-DD")
			return nil, vErr
		}
	}
	meetings, err := s.meetings.ListMeetings(ctx, filter)
	if err != nil {
		err = mapMeetingRepoError("list meetings", err)
		s.loggerWith(ctx, "ListMeetings").
			ErrorContext(ctx, "failed to list meetings", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return meetings, nil
}

// UpdateMeeting applies a sparse change set. It reports whether a stored
// row changed. An empty change set is a no-op and returns false. Cancelled
// meetings are read-only and yield ErrMeetingCancelled.
func (s *MeetingService) UpdateMeeting(ctx context.Context, params UpdateMeetingParams) (changed bool, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateMeeting",
		"principal_id", params.Principal.UserID,
		"meeting_id", params.MeetingID,
	)
	defer func() {
		s.metrics.RecordMutation(ActionUpdated, outcome(err))
		if err != nil {
			logger.ErrorContext(ctx, "failed to update meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("changed", changed).InfoContext(ctx, "meeting update processed")
	}()

	if params.Changes.IsEmpty() {
		return
	}
	actor := params.Principal.Email
	if strings.TrimSpace(actor) == "" {
		err = ErrUnauthorized
		return
	}

	var current Meeting
	current, err = s.meetings.FindMeetingByID(ctx, params.MeetingID)
	if err != nil {
		err = mapMeetingRepoError("find meeting", err)
		return
	}
	if current.IsCancelled {
		err = ErrMeetingCancelled
		return
	}

	changes := normalizeChanges(params.Changes)
	merged := mergeChanges(current, changes)
	vErr := s.validateMeeting(merged)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	placementChanged := changes.Date != nil || changes.Start != nil || changes.End != nil || changes.Location != nil
	var release func()
	if placementChanged {
		release, err = s.lockDates(ctx, current.Date, merged.Date)
	} else {
		release, err = s.lockDates(ctx)
	}
	if err != nil {
		return
	}
	defer release()

	if s.locker != nil && placementChanged {
		id := merged.ID
		err = s.ensureRoomFree(ctx, merged.Date, merged.Location, merged.Window(), &id)
		if err != nil {
			return
		}
	}

	var affected int64
	affected, err = s.meetings.UpdateMeetingFields(ctx, params.MeetingID, MeetingFields{
		Title:        changes.Title,
		Date:         changes.Date,
		Start:        changes.Start,
		End:          changes.End,
		Location:     changes.Location,
		Note:         changes.Note,
		Participants: changes.Participants,
		UpdatedBy:    actor,
	})
	if err != nil {
		err = mapMeetingRepoError("update meeting", err)
		return
	}

	changed = affected > 0
	if !changed {
		return
	}

	merged.UpdatedBy = &actor
	merged.UpdatedAt = s.now()
	s.notifyAll(ctx, logger, merged, ActionUpdated, actor)
	return
}

// CancelMeeting soft-deletes a meeting. Cancelling an already cancelled
// meeting succeeds without notifying anyone again.
func (s *MeetingService) CancelMeeting(ctx context.Context, params CancelMeetingParams) (cancelled bool, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CancelMeeting",
		"principal_id", params.Principal.UserID,
		"meeting_id", params.MeetingID,
	)
	defer func() {
		s.metrics.RecordMutation(ActionCancelled, outcome(err))
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting cancelled")
	}()

	actor := params.Principal.Email
	if strings.TrimSpace(actor) == "" {
		err = ErrUnauthorized
		return
	}

	var current Meeting
	current, err = s.meetings.FindMeetingByID(ctx, params.MeetingID)
	if err != nil {
		err = mapMeetingRepoError("find meeting", err)
		return
	}

	var affected int64
	affected, err = s.meetings.SetCancelled(ctx, params.MeetingID, actor)
	if err != nil {
		err = mapMeetingRepoError("cancel meeting", err)
		return
	}

	cancelled = true
	if affected == 0 {
		logger.DebugContext(ctx, "meeting already cancelled")
		return
	}

	current.IsCancelled = true
	current.UpdatedBy = &actor
	current.UpdatedAt = s.now()
	s.notifyAll(ctx, logger, current, ActionCancelled, actor)
	return
}

// ListDeliveries returns the notification outcomes recorded for a meeting.
func (s *MeetingService) ListDeliveries(ctx context.Context, meetingID int64) ([]DeliveryRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.meetings.FindMeetingByID(ctx, meetingID); err != nil {
		return nil, mapMeetingRepoError("find meeting", err)
	}
	if s.deliveries == nil {
		return nil, nil
	}
	records, err := s.deliveries.ListDeliveries(ctx, meetingID)
	if err != nil {
		return nil, mapMeetingRepoError("list deliveries", err)
	}
	return records, nil
}

func (s *MeetingService) validateMeeting(meeting Meeting) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(meeting.Title) == "" {
		vErr.Add("title", "title is required")
	}
	if strings.TrimSpace(meeting.Date) == "" {
		vErr.Add("date", "date is required")
	} else if _, err := scheduler.ParseDate(meeting.Date); err != nil {
		vErr.Add("date", "date must use YYYY-MM-DD")
	}
	vErr.addFailures(s.hours.ValidateWindow(meeting.Start, meeting.End))

	switch {
	case strings.TrimSpace(meeting.Location) == "":
		vErr.Add("location", "location is required")
	case !hasRoom(s.rooms, meeting.Location):
		vErr.Add("location", "location must be one of the configured rooms")
	}

	if meeting.Note != nil && utf8.RuneCountInString(*meeting.Note) > maxNoteLength {
		vErr.Add("note", fmt.Sprintf("note must be at most %d characters", maxNoteLength))
	}

	for _, participant := range meeting.Participants {
		if _, err := mail.ParseAddress(participant); err != nil {
			vErr.Add("participants", fmt.Sprintf("%q is not a valid email address", participant))
		}
	}

	return vErr
}

// lockDates acquires one lock per distinct date in lexical order. Without a
// locker it returns a no-op release.
func (s *MeetingService) lockDates(ctx context.Context, dates ...string) (func(), error) {
	if s.locker == nil || len(dates) == 0 {
		return func() {}, nil
	}

	keys := make([]string, 0, len(dates))
	for _, date := range dates {
		keys = append(keys, "date:"+date)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	started := s.now()
	releases := make([]func(), 0, len(keys))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range keys {
		release, err := s.locker.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		releases = append(releases, release)
	}
	s.metrics.ObserveLockWait(s.now().Sub(started))
	return releaseAll, nil
}

// ensureRoomFree re-reads the date and fails when room is taken for window.
func (s *MeetingService) ensureRoomFree(ctx context.Context, date, room string, window scheduler.Interval, excludeID *int64) error {
	stored, err := s.meetings.FindMeetingsByDate(ctx, date, false)
	if err != nil {
		return mapMeetingRepoError("find meetings by date", err)
	}
	titles := scheduler.RoomConflicts(room, toBookings(stored), scheduler.Query{Window: window, ExcludeID: excludeID})
	if len(titles) > 0 {
		return &RoomConflictError{Room: room, Titles: titles}
	}
	return nil
}

// notifyAll sends one notification per participant and one to the creator
// when the creator is not a participant. Failures are logged per recipient.
func (s *MeetingService) notifyAll(ctx context.Context, logger *slog.Logger, meeting Meeting, action Action, actor string) {
	if s.notifier == nil {
		return
	}

	for _, notification := range buildNotifications(meeting, action, actor) {
		if err := s.notifier.Notify(ctx, notification); err != nil {
			logger.WarnContext(ctx, "notification not queued",
				"recipient", notification.Recipient,
				"action", string(action),
				"error", err,
			)
		}
	}
}

func buildNotifications(meeting Meeting, action Action, actor string) []Notification {
	notifications := make([]Notification, 0, len(meeting.Participants)+1)
	creatorIsParticipant := false
	for _, participant := range meeting.Participants {
		if strings.EqualFold(participant, meeting.CreatedBy) {
			creatorIsParticipant = true
		}
		notifications = append(notifications, Notification{
			Recipient: participant,
			Subject:   subjectFor(action, meeting.Title, false),
			Action:    action,
			Meeting:   meeting,
			Actor:     actor,
		})
	}
	if !creatorIsParticipant && strings.TrimSpace(meeting.CreatedBy) != "" {
		notifications = append(notifications, Notification{
			Recipient: meeting.CreatedBy,
			Subject:   subjectFor(action, meeting.Title, true),
			Action:    action,
			Meeting:   meeting,
			Actor:     actor,
		})
	}
	return notifications
}

func subjectFor(action Action, title string, toCreator bool) string {
	switch action {
	case ActionCreated:
		if toCreator {
			return "Meeting Created: " + title
		}
		return "Meeting Invitation: " + title
	case ActionUpdated:
		return "Meeting Updated: " + title
	case ActionCancelled:
		return "Meeting Cancelled: " + title
	}
	return title
}

func normalizeDraft(draft MeetingDraft) MeetingDraft {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Date = strings.TrimSpace(draft.Date)
	draft.Location = strings.TrimSpace(draft.Location)
	draft.Note = normalizeNote(draft.Note)
	draft.Participants = normalizeParticipants(draft.Participants)
	if draft.Participants == nil {
		draft.Participants = []string{}
	}
	return draft
}

func normalizeChanges(changes MeetingChanges) MeetingChanges {
	trim := func(value *string) *string {
		if value == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*value)
		return &trimmed
	}
	changes.Title = trim(changes.Title)
	changes.Date = trim(changes.Date)
	changes.Location = trim(changes.Location)
	if changes.Note != nil {
		note := strings.TrimSpace(*changes.Note)
		changes.Note = &note
	}
	if changes.Participants != nil {
		participants := normalizeParticipants(*changes.Participants)
		if participants == nil {
			participants = []string{}
		}
		changes.Participants = &participants
	}
	return changes
}

// normalizeNote trims the note and maps blank notes to nil.
func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mergeChanges(current Meeting, changes MeetingChanges) Meeting {
	merged := current
	if changes.Title != nil {
		merged.Title = *changes.Title
	}
	if changes.Date != nil {
		merged.Date = *changes.Date
	}
	if changes.Start != nil {
		merged.Start = *changes.Start
	}
	if changes.End != nil {
		merged.End = *changes.End
	}
	if changes.Location != nil {
		merged.Location = *changes.Location
	}
	if changes.Note != nil {
		merged.Note = normalizeNote(changes.Note)
	}
	if changes.Participants != nil {
		merged.Participants = slices.Clone(*changes.Participants)
	}
	return merged
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return ErrorKind(err)
}

func mapMeetingRepoError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	var pErr *PersistenceError
	if errors.As(err, &pErr) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
