package notification

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender that logs at info level.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "notification email",
		"to", msg.To,
		"subject", msg.Subject,
		"calendar_method", msg.CalendarMethod,
		"body_bytes", len(msg.HTML),
	)
	return nil
}
