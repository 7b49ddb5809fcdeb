package notification

import "context"

// Message is a rendered e-mail ready for a Sender.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	// Calendar holds an iCalendar object sent as a text/calendar part.
	Calendar       []byte
	CalendarMethod string
}

// Sender transmits one rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
