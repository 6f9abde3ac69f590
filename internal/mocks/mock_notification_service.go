package mocks

import (
	"context"
	"sync"

	"github.com/you/accountsvc/domain"
)

// MockNotificationService implements domain.NotificationService interface for testing
type MockNotificationService struct {
	SendSMSFunc   func(ctx context.Context, to, message string) error
	SendEmailFunc func(ctx context.Context, to, subject, body string) error
}

// Compile-time interface compliance verification
var _ domain.NotificationService = (*MockNotificationService)(nil)

// NewMockNotificationService creates a new MockNotificationService with default behaviors
func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

// SendSMS sends an SMS message
func (m *MockNotificationService) SendSMS(ctx context.Context, to, message string) error {
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(ctx, to, message)
	}
	// Default behavior: success (no actual SMS sent in tests)
	return nil
}

// SendEmail sends an email message
func (m *MockNotificationService) SendEmail(ctx context.Context, to, subject, body string) error {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, to, subject, body)
	}
	// Default behavior: success (no actual email sent in tests)
	return nil
}

// MockDispatcher implements domain.MessageDispatcher and records accepted messages
type MockDispatcher struct {
	EnqueueFunc func(msg domain.Message) bool

	mu       sync.Mutex
	messages []domain.Message
}

var _ domain.MessageDispatcher = (*MockDispatcher)(nil)

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

// Enqueue records msg
func (m *MockDispatcher) Enqueue(msg domain.Message) bool {
	if m.EnqueueFunc != nil && !m.EnqueueFunc(msg) {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return true
}

// Messages returns a copy of the recorded messages
func (m *MockDispatcher) Messages() []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Message(nil), m.messages...)
}

// Last returns the most recent message of kind, or false
func (m *MockDispatcher) Last(kind domain.MessageKind) (domain.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Kind == kind {
			return m.messages[i], true
		}
	}
	return domain.Message{}, false
}

// MockVerificationThrottle implements domain.VerificationThrottle interface for testing
type MockVerificationThrottle struct {
	AllowFunc func(ctx context.Context, destination string) (bool, error)
}

var _ domain.VerificationThrottle = (*MockVerificationThrottle)(nil)

func NewMockVerificationThrottle() *MockVerificationThrottle {
	return &MockVerificationThrottle{}
}

// Allow reports whether destination may be sent another verification message
func (m *MockVerificationThrottle) Allow(ctx context.Context, destination string) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, destination)
	}
	// Default behavior: always allowed
	return true, nil
}
