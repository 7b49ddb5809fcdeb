package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/scheduler"
)

const htmlBody = `<h2>{{.Heading}}</h2>
<p>{{.Lead}}</p>
<div style="margin-top: 20px; border: 1px solid #eee; padding: 15px; border-radius: 5px; background-color: #f9f9f9;">
  <p style="margin: 10px 0;"><strong>Title:</strong> {{.Title}}</p>
  <p style="margin: 10px 0;"><strong>Date:</strong> {{.Date}}</p>
  <p style="margin: 10px 0;"><strong>Time:</strong> {{.Time}}</p>
  <p style="margin: 10px 0;"><strong>Location:</strong> {{.Location}}</p>
{{- if .Note}}
  <p style="margin: 10px 0;"><strong>Note:</strong> {{.Note}}</p>
{{- end}}
  <p style="margin: 10px 0;"><strong>Organizer:</strong> {{.Organizer}}</p>
{{- if .Participants}}
  <p style="margin: 10px 0;"><strong>Participants:</strong> {{join .Participants ", "}}</p>
{{- end}}
{{- if .Cancelled}}
  <p style="margin-top: 15px; color: #e53e3e; font-weight: bold;">This meeting has been cancelled.</p>
{{- end}}
</div>
<div style="margin-top: 20px; color: #666; font-size: 12px;">
  <p>This is an automated email from the meeting room booking system.</p>
</div>
`

const textBody = `{{.Heading}}

{{.Lead}}

Title: {{.Title}}
Date: {{.Date}}
Time: {{.Time}}
Location: {{.Location}}
{{- if .Note}}
Note: {{.Note}}
{{- end}}
Organizer: {{.Organizer}}
{{- if .Participants}}
Participants: {{join .Participants ", "}}
{{- end}}
{{- if .Cancelled}}

This meeting has been cancelled.
{{- end}}
`

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.New("meeting.html").
			Funcs(htmltemplate.FuncMap{"join": strings.Join}).Parse(htmlBody))
	textTemplate = texttemplate.Must(texttemplate.New("meeting.txt").
			Funcs(texttemplate.FuncMap{"join": strings.Join}).Parse(textBody))
)

type view struct {
	Heading      string
	Lead         string
	Title        string
	Date         string
	Time         string
	Location     string
	Note         string
	Organizer    string
	Participants []string
	Cancelled    bool
}

// Renderer builds e-mail messages for meeting notifications.
type Renderer struct {
	calendar *CalendarBuilder
}

// NewRenderer returns a renderer that attaches calendar objects built by cal.
// A nil cal disables the calendar part.
func NewRenderer(cal *CalendarBuilder) *Renderer {
	return &Renderer{calendar: cal}
}

// Render produces the message for n.
func (r *Renderer) Render(n application.Notification) (Message, error) {
	v := newView(n)

	var html bytes.Buffer
	if err := htmlTemplate.Execute(&html, v); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	var text bytes.Buffer
	if err := textTemplate.Execute(&text, v); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}

	msg := Message{
		To:      n.Recipient,
		Subject: n.Subject,
		HTML:    html.String(),
		Text:    text.String(),
	}
	if r.calendar != nil {
		ics, method, err := r.calendar.Build(n)
		if err != nil {
			return Message{}, fmt.Errorf("render calendar: %w", err)
		}
		msg.Calendar = ics
		msg.CalendarMethod = method
	}
	return msg, nil
}

func newView(n application.Notification) view {
	m := n.Meeting
	v := view{
		Title:        m.Title,
		Date:         formatDate(m.Date),
		Time:         m.Start.String() + " - " + m.End.String(),
		Location:     m.Location,
		Organizer:    m.CreatedBy,
		Participants: m.Participants,
	}
	if m.Note != nil {
		v.Note = *m.Note
	}

	actor := n.Actor
	if actor == "" {
		actor = "the organizer"
	}
	switch n.Action {
	case application.ActionCreated:
		v.Heading = "Meeting Invitation"
		v.Lead = "You have been invited to a new meeting."
		if n.Recipient == m.CreatedBy {
			v.Heading = "Meeting Created"
			v.Lead = "Your meeting has been scheduled."
		}
	case application.ActionUpdated:
		v.Heading = "Meeting Updated"
		v.Lead = fmt.Sprintf("A meeting you're participating in has been updated by %s.", actor)
	case application.ActionCancelled:
		v.Heading = "Meeting Cancelled"
		v.Lead = fmt.Sprintf("A meeting you were scheduled to attend has been cancelled by %s.", actor)
		v.Cancelled = true
	default:
		v.Heading = "Meeting Information"
		v.Lead = "Meeting information update."
	}
	return v
}

func formatDate(date string) string {
	day, err := scheduler.ParseDate(date)
	if err != nil {
		return date
	}
	return day.Format("Monday, January 2, 2006")
}

// wallClock places a time of day on date in loc.
func wallClock(date string, t scheduler.TimeOfDay, loc *time.Location) (time.Time, error) {
	day, err := scheduler.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, loc), nil
}
