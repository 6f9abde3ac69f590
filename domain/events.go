package domain

import (
	"context"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Registration and verification events
	AccountRegisteredEvent     AuditEventType = "ACCOUNT_REGISTERED"
	EmailVerifiedEvent         AuditEventType = "EMAIL_VERIFIED"
	EmailVerificationFailEvent AuditEventType = "EMAIL_VERIFICATION_FAILED"

	// Authentication events
	AccountLoginEvent        AuditEventType = "ACCOUNT_LOGIN"
	AccountLoginFailureEvent AuditEventType = "ACCOUNT_LOGIN_FAILED"

	// Credential events
	PasswordResetRequestedEvent AuditEventType = "PASSWORD_RESET_REQUESTED"
	PasswordResetCompletedEvent AuditEventType = "PASSWORD_RESET_COMPLETED"
	PasswordUpdatedEvent        AuditEventType = "PASSWORD_UPDATED"
	AccountDeletedEvent         AuditEventType = "ACCOUNT_DELETED"
)

// AuditEvent represents a business event that occurred in the system
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	AccountID string                 `json:"account_id,omitempty"`
	Email     string                 `json:"email,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger records audit events
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent) error
}

// ClientContext represents client information extracted from HTTP request
type ClientContext struct {
	IPAddress string
	UserAgent string
}

type clientContextKey struct{}

// WithClientContext stores client information in ctx
func WithClientContext(ctx context.Context, cc *ClientContext) context.Context {
	return context.WithValue(ctx, clientContextKey{}, cc)
}

// ClientContextFrom returns the client information stored in ctx, or nil
func ClientContextFrom(ctx context.Context) *ClientContext {
	cc, _ := ctx.Value(clientContextKey{}).(*ClientContext)
	return cc
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, accountID string) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithEmail sets the email field
func (e *AuditEvent) WithEmail(email string) *AuditEvent {
	e.Email = email
	return e
}

// WithClientContext sets client context information
func (e *AuditEvent) WithClientContext(cc *ClientContext) *AuditEvent {
	if cc != nil {
		e.IPAddress = cc.IPAddress
		e.UserAgent = cc.UserAgent
	}
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}
