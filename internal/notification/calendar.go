package notification

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/example/meeting-rooms/internal/application"
)

const productID = "-//roombook//Meeting Rooms//EN"

// Calendar methods.
const (
	MethodRequest = "REQUEST"
	MethodCancel  = "CANCEL"
)

// CalendarBuilder encodes a meeting as a single VEVENT calendar object.
type CalendarBuilder struct {
	location *time.Location
	now      func() time.Time
}

// NewCalendarBuilder interprets meeting wall-clock times in loc.
func NewCalendarBuilder(loc *time.Location, now func() time.Time) *CalendarBuilder {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &CalendarBuilder{location: loc, now: now}
}

// EventUID is stable for the lifetime of a meeting so calendar clients update
// the same entry on every notification.
func EventUID(meetingID int64) string {
	name := "roombook:meeting:" + strconv.FormatInt(meetingID, 10)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String() + "@roombook"
}

// Build returns the encoded calendar and its METHOD.
func (b *CalendarBuilder) Build(n application.Notification) ([]byte, string, error) {
	m := n.Meeting
	start, err := wallClock(m.Date, m.Start, b.location)
	if err != nil {
		return nil, "", fmt.Errorf("meeting start: %w", err)
	}
	end, err := wallClock(m.Date, m.End, b.location)
	if err != nil {
		return nil, "", fmt.Errorf("meeting end: %w", err)
	}

	method := MethodRequest
	if n.Action == application.ActionCancelled || m.IsCancelled {
		method = MethodCancel
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, EventUID(m.ID))
	event.Props.SetDateTime(ical.PropDateTimeStamp, b.now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	event.Props.SetText(ical.PropSummary, m.Title)
	event.Props.SetText(ical.PropLocation, m.Location)
	if m.Note != nil && *m.Note != "" {
		event.Props.SetText(ical.PropDescription, *m.Note)
	}

	sequence := ical.NewProp(ical.PropSequence)
	sequence.Value = strconv.FormatInt(sequenceOf(m), 10)
	event.Props.Set(sequence)

	organizer := ical.NewProp(ical.PropOrganizer)
	organizer.Value = "mailto:" + m.CreatedBy
	event.Props.Set(organizer)
	for _, participant := range m.Participants {
		attendee := ical.NewProp(ical.PropAttendee)
		attendee.Value = "mailto:" + participant
		attendee.Params.Set("ROLE", "REQ-PARTICIPANT")
		event.Props.Add(attendee)
	}

	if method == MethodCancel {
		event.Props.SetText(ical.PropStatus, "CANCELLED")
	} else {
		event.Props.SetText(ical.PropStatus, "CONFIRMED")
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropMethod, method)
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, "", fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), method, nil
}

// sequenceOf counts seconds between creation and the last update, which only
// grows as the meeting is edited.
func sequenceOf(m application.Meeting) int64 {
	if m.CreatedAt.IsZero() || !m.UpdatedAt.After(m.CreatedAt) {
		return 0
	}
	return int64(m.UpdatedAt.Sub(m.CreatedAt) / time.Second)
}
