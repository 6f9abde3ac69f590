package mocks

import (
	"strings"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockTokenService implements domain.TokenService interface for testing.
// Default tokens have the form "purpose:accountID:email" and verify only under the same purpose.
type MockTokenService struct {
	IssueFunc  func(purpose domain.TokenPurpose, payload domain.TokenPayload, ttl time.Duration) (string, error)
	VerifyFunc func(token string, purpose domain.TokenPurpose) (*domain.TokenClaims, error)
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// Issue creates a token
func (m *MockTokenService) Issue(purpose domain.TokenPurpose, payload domain.TokenPayload, ttl time.Duration) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(purpose, payload, ttl)
	}
	return MockToken(purpose, payload), nil
}

// Verify validates a token
func (m *MockTokenService) Verify(token string, purpose domain.TokenPurpose) (*domain.TokenClaims, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(token, purpose)
	}
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || domain.TokenPurpose(parts[0]) != purpose {
		return nil, domain.ErrTokenInvalid
	}
	return &domain.TokenClaims{
		AccountID: parts[1],
		Email:     parts[2],
		Purpose:   purpose,
	}, nil
}

// MockToken returns the token the default Issue produces for payload
func MockToken(purpose domain.TokenPurpose, payload domain.TokenPayload) string {
	return string(purpose) + ":" + payload.AccountID + ":" + payload.Email
}
