package domain

import (
	"context"
	"time"
)

// AccountRepository defines account data access operations
type AccountRepository interface {
	// Create stores a new account; unique index violations return ErrDuplicateIdentity
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByIdentity(ctx context.Context, field IdentityField, value string) (*Account, error)
	// FindByActiveResetToken matches email, the mirrored token and an expiry after now
	FindByActiveResetToken(ctx context.Context, email, token string, now time.Time) (*Account, error)
	UpdateFields(ctx context.Context, id string, patch AccountPatch) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Account, error)
	// RevokeResetToken clears the reset mirror of whichever account holds token
	RevokeResetToken(ctx context.Context, token string) (int64, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// AccountService defines the account lifecycle
type AccountService interface {
	Register(ctx context.Context, input RegisterInput, trust TrustLevel) (*Account, error)
	CheckAvailability(ctx context.Context, field IdentityField, value string) error
	VerifyEmail(ctx context.Context, token string) (*VerifyResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	InitiatePasswordReset(ctx context.Context, email string) error
	ConsumeResetToken(ctx context.Context, token string) (*Account, error)
	CompletePasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error
	UpdatePassword(ctx context.Context, accountID, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, principalID, targetID string) error
	AuthenticateSession(ctx context.Context, token string) (*Account, error)
	GetProfile(ctx context.Context, accountID string) (*Account, error)
	ListProfiles(ctx context.Context) ([]*Account, error)
}

// UniquenessGuard checks identity fields before an account is created
type UniquenessGuard interface {
	// CheckAvailable returns nil when no account holds value, a *ConflictError otherwise
	CheckAvailable(ctx context.Context, field IdentityField, value string) error
	// EnsureAvailable checks username, email and phone in that order
	EnsureAvailable(ctx context.Context, username, email, phone string) error
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines token operations
type TokenService interface {
	// Issue signs payload for purpose; a zero ttl produces a token without expiry
	Issue(purpose TokenPurpose, payload TokenPayload, ttl time.Duration) (string, error)
	Verify(token string, purpose TokenPurpose) (*TokenClaims, error)
}

// NotificationService defines outbound delivery
type NotificationService interface {
	SendSMS(ctx context.Context, to, message string) error
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// MessageDispatcher hands messages to background delivery without blocking the caller
type MessageDispatcher interface {
	Enqueue(msg Message) bool
}

// VerificationThrottle limits how often a verification message is re-sent to one destination
type VerificationThrottle interface {
	Allow(ctx context.Context, destination string) (bool, error)
}

// PolicyService defines authorization policy operations
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}

// TokenClaims represents verified token claims
type TokenClaims struct {
	AccountID string       `json:"user_id,omitempty"`
	Email     string       `json:"email"`
	Purpose   TokenPurpose `json:"purpose"`
	IssuedAt  int64        `json:"iat"`
	ExpiresAt int64        `json:"exp,omitempty"`
	ID        string       `json:"jti"`
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
}
