package domain

import (
	"fmt"
	"time"
)

// Roles recognised by the authorization layer
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account represents a registered user identity
type Account struct {
	ID                string
	Username          string
	Email             string
	PhoneNumber       string
	PasswordHash      string
	IsEmailVerified   bool
	ResetToken        *string
	ResetTokenExpires *time.Time
	ProfilePictureURL string
	Role              string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasActiveReset reports whether the account mirrors the given reset token and it has not expired at now
func (a *Account) HasActiveReset(token string, now time.Time) bool {
	if a.ResetToken == nil || a.ResetTokenExpires == nil {
		return false
	}
	return *a.ResetToken == token && a.ResetTokenExpires.After(now)
}

// Public returns the profile view of the account, without credentials or reset state
func (a *Account) Public() PublicProfile {
	return PublicProfile{
		ID:                a.ID,
		Username:          a.Username,
		Email:             a.Email,
		PhoneNumber:       a.PhoneNumber,
		ProfilePictureURL: a.ProfilePictureURL,
		IsEmailVerified:   a.IsEmailVerified,
		Role:              a.Role,
		CreatedAt:         a.CreatedAt,
	}
}

// PublicProfile is the account data that may leave the service
type PublicProfile struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email,omitempty"`
	PhoneNumber       string    `json:"phone_number,omitempty"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	IsEmailVerified   bool      `json:"is_email_verified"`
	Role              string    `json:"role,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Directory strips the contact fields, for listings visible to any signed-in account
func (p PublicProfile) Directory() PublicProfile {
	p.Email = ""
	p.PhoneNumber = ""
	p.Role = ""
	return p
}

// AccountPatch lists the mutable fields of an account; nil pointers are left untouched
type AccountPatch struct {
	PasswordHash      *string
	IsEmailVerified   *bool
	ResetToken        *string
	ResetTokenExpires *time.Time
	// ClearResetToken unsets both reset fields and wins over ResetToken/ResetTokenExpires
	ClearResetToken bool
}

// IsEmpty reports whether the patch changes nothing
func (p AccountPatch) IsEmpty() bool {
	return p.PasswordHash == nil && p.IsEmailVerified == nil &&
		p.ResetToken == nil && p.ResetTokenExpires == nil && !p.ClearResetToken
}

// IdentityField names one of the globally unique account fields
type IdentityField string

const (
	FieldUsername IdentityField = "username"
	FieldEmail    IdentityField = "email"
	FieldPhone    IdentityField = "phone"
	FieldID       IdentityField = "id"
)

// ParseIdentityField maps a user supplied name to a unique identity field
func ParseIdentityField(s string) (IdentityField, error) {
	switch s {
	case "username":
		return FieldUsername, nil
	case "email":
		return FieldEmail, nil
	case "phone", "phoneNumber", "phone_number":
		return FieldPhone, nil
	}
	return "", NewValidationError("field", fmt.Sprintf("unsupported identity field %q", s))
}

// TrustLevel selects how a registration treats email ownership
type TrustLevel int

const (
	// TrustEmailVerification creates an unverified account and sends a verification message
	TrustEmailVerification TrustLevel = iota
	// TrustVerified creates an already verified account and sends nothing
	TrustVerified
)

// RegisterInput carries registration data
type RegisterInput struct {
	Username          string
	Email             string
	Password          string
	PhoneNumber       string
	ProfilePictureURL string
	Role              string
}

// LoginInput identifies an account by one of its unique fields plus an optional credential
type LoginInput struct {
	Kind       IdentityField
	Identifier string
	Password   string
}

// LoginPolicy controls the checks applied to one identifier kind
type LoginPolicy struct {
	VerifyPassword       bool
	RequireVerifiedEmail bool
	ResendVerification   bool
}

// DefaultLoginPolicies reproduce the legacy per-route login behavior
func DefaultLoginPolicies() map[IdentityField]LoginPolicy {
	return map[IdentityField]LoginPolicy{
		FieldPhone:    {VerifyPassword: true, RequireVerifiedEmail: true, ResendVerification: true},
		FieldEmail:    {},
		FieldUsername: {RequireVerifiedEmail: true},
	}
}

// AuthResult represents a successful login
type AuthResult struct {
	Account      *Account
	SessionToken string
	Profile      PublicProfile
}

// VerifyResult represents the outcome of an email verification
type VerifyResult struct {
	Account         *Account
	AlreadyVerified bool
}

// TokenPurpose separates the three token families signed with the same secret
type TokenPurpose string

const (
	PurposeSession           TokenPurpose = "session"
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// TokenPayload is the data encoded in a token
type TokenPayload struct {
	AccountID string
	Email     string
}

// MessageKind identifies an outbound notification template
type MessageKind string

const (
	MessageVerification  MessageKind = "verification"
	MessagePasswordReset MessageKind = "password_reset"
)

// Channel selects the delivery route for a message
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Message is a queued notification
type Message struct {
	Kind        MessageKind
	Channel     Channel
	Destination string
	Token       string
	AccountID   string
}
