package notifications

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of delivering them
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (l *LogSender) SendSMS(ctx context.Context, to, message string) error {
	l.log.InfoContext(ctx, "sms", slog.String("to", to), slog.String("body", message))
	return nil
}

func (l *LogSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	l.log.InfoContext(ctx, "email", slog.String("to", to), slog.String("subject", subject), slog.String("body", htmlBody))
	return nil
}
