package services

import (
	"context"
	"log/slog"

	"github.com/you/accountsvc/domain"
)

// SlogAuditLogger implements domain.AuditLogger by writing one structured record per event
type SlogAuditLogger struct {
	log *slog.Logger
}

func NewSlogAuditLogger(log *slog.Logger) *SlogAuditLogger {
	return &SlogAuditLogger{log: log.With(slog.String("component", "audit"))}
}

// LogEvent implements domain.AuditLogger
func (a *SlogAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	attrs := []slog.Attr{
		slog.String("event_type", string(event.EventType)),
		slog.Bool("success", event.Success),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", event.AccountID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", event.Email))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.ErrorMsg != "" {
		attrs = append(attrs, slog.String("error", event.ErrorMsg))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	a.log.LogAttrs(ctx, level, "audit event", attrs...)
	return nil
}
