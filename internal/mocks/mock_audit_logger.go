package mocks

import (
	"context"
	"sync"

	"github.com/you/accountsvc/domain"
)

// MockAuditLogger implements domain.AuditLogger and records events
type MockAuditLogger struct {
	LogEventFunc func(ctx context.Context, event *domain.AuditEvent) error

	mu     sync.Mutex
	events []*domain.AuditEvent
}

var _ domain.AuditLogger = (*MockAuditLogger)(nil)

func NewMockAuditLogger() *MockAuditLogger {
	return &MockAuditLogger{}
}

// LogEvent records event
func (m *MockAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.LogEventFunc != nil {
		return m.LogEventFunc(ctx, event)
	}
	return nil
}

// Events returns the recorded events of eventType
func (m *MockAuditLogger) Events(eventType domain.AuditEventType) []*domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AuditEvent
	for _, e := range m.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
