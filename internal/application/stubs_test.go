package application

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

type staticRooms []string

func (r staticRooms) Rooms() []Room {
	rooms := make([]Room, 0, len(r))
	for _, name := range r {
		rooms = append(rooms, Room{Name: name})
	}
	return rooms
}

// meetingRepoStub is an in-memory MeetingRepository that records calls.
type meetingRepoStub struct {
	mu       sync.Mutex
	meetings map[int64]Meeting
	nextID   int64

	findByDateCalls int
	updateCalls     []MeetingFields

	findByDateErr error
	insertErr     error
	updateErr     error
	cancelErr     error
}

func newMeetingRepoStub(seed ...Meeting) *meetingRepoStub {
	repo := &meetingRepoStub{meetings: make(map[int64]Meeting)}
	for _, meeting := range seed {
		repo.meetings[meeting.ID] = meeting
		if meeting.ID > repo.nextID {
			repo.nextID = meeting.ID
		}
	}
	return repo
}

func (r *meetingRepoStub) FindMeetingsByDate(ctx context.Context, date string, includeCancelled bool) ([]Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findByDateCalls++
	if r.findByDateErr != nil {
		return nil, r.findByDateErr
	}
	var out []Meeting
	for _, meeting := range r.meetings {
		if meeting.Date == date && (includeCancelled || !meeting.IsCancelled) {
			out = append(out, meeting)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *meetingRepoStub) FindMeetingByID(ctx context.Context, id int64) (Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meeting, ok := r.meetings[id]
	if !ok {
		return Meeting{}, ErrNotFound
	}
	meeting.Participants = slices.Clone(meeting.Participants)
	return meeting, nil
}

func (r *meetingRepoStub) ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Meeting
	for _, meeting := range r.meetings {
		if filter.Date != nil && meeting.Date != *filter.Date {
			continue
		}
		if meeting.IsCancelled && !filter.IncludeCancelled {
			continue
		}
		out = append(out, meeting)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *meetingRepoStub) InsertMeeting(ctx context.Context, draft MeetingDraft) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	r.nextID++
	r.meetings[r.nextID] = Meeting{
		ID:           r.nextID,
		Title:        draft.Title,
		Date:         draft.Date,
		Start:        draft.Start,
		End:          draft.End,
		Location:     draft.Location,
		Note:         draft.Note,
		Participants: slices.Clone(draft.Participants),
		CreatedBy:    draft.CreatedBy,
	}
	return r.nextID, nil
}

func (r *meetingRepoStub) UpdateMeetingFields(ctx context.Context, id int64, fields MeetingFields) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls = append(r.updateCalls, fields)
	if r.updateErr != nil {
		return 0, r.updateErr
	}
	meeting, ok := r.meetings[id]
	if !ok {
		return 0, nil
	}
	if fields.Title != nil {
		meeting.Title = *fields.Title
	}
	if fields.Date != nil {
		meeting.Date = *fields.Date
	}
	if fields.Start != nil {
		meeting.Start = *fields.Start
	}
	if fields.End != nil {
		meeting.End = *fields.End
	}
	if fields.Location != nil {
		meeting.Location = *fields.Location
	}
	if fields.Note != nil {
		note := *fields.Note
		meeting.Note = &note
	}
	if fields.Participants != nil {
		meeting.Participants = slices.Clone(*fields.Participants)
	}
	updatedBy := fields.UpdatedBy
	meeting.UpdatedBy = &updatedBy
	r.meetings[id] = meeting
	return 1, nil
}

func (r *meetingRepoStub) SetCancelled(ctx context.Context, id int64, cancelledBy string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelErr != nil {
		return 0, r.cancelErr
	}
	meeting, ok := r.meetings[id]
	if !ok || meeting.IsCancelled {
		return 0, nil
	}
	meeting.IsCancelled = true
	meeting.UpdatedBy = &cancelledBy
	r.meetings[id] = meeting
	return 1, nil
}

func (r *meetingRepoStub) get(id int64) Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meetings[id]
}

// notifierStub records notifications and fails for selected recipients.
type notifierStub struct {
	mu     sync.Mutex
	sent   []Notification
	failOn map[string]bool
}

func (n *notifierStub) Notify(ctx context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failOn[notification.Recipient] {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, notification)
	return nil
}

func (n *notifierStub) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, notification := range n.sent {
		out = append(out, notification.Recipient)
	}
	return out
}

// lockerStub records the keys acquired and released, in order.
type lockerStub struct {
	mu       sync.Mutex
	acquired []string
	released []string
	err      error
}

func (l *lockerStub) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		l.released = append(l.released, key)
		l.mu.Unlock()
	}, nil
}

type metricsStub struct {
	mu        sync.Mutex
	checks    int
	mutations map[string]int
}

func (m *metricsStub) ObserveAvailabilityCheck(time.Duration, error) {
	m.mu.Lock()
	m.checks++
	m.mu.Unlock()
}

func (m *metricsStub) RecordMutation(action Action, outcome string) {
	m.mu.Lock()
	if m.mutations == nil {
		m.mutations = make(map[string]int)
	}
	m.mutations[string(action)+"/"+outcome]++
	m.mu.Unlock()
}

func (m *metricsStub) ObserveLockWait(time.Duration) {}
