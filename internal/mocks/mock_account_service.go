package mocks

import (
	"context"

	"github.com/you/accountsvc/domain"
)

// MockAccountService implements domain.AccountService interface for testing
type MockAccountService struct {
	RegisterFunc              func(ctx context.Context, input domain.RegisterInput, trust domain.TrustLevel) (*domain.Account, error)
	CheckAvailabilityFunc     func(ctx context.Context, field domain.IdentityField, value string) error
	VerifyEmailFunc           func(ctx context.Context, token string) (*domain.VerifyResult, error)
	LoginFunc                 func(ctx context.Context, input domain.LoginInput) (*domain.AuthResult, error)
	InitiatePasswordResetFunc func(ctx context.Context, email string) error
	ConsumeResetTokenFunc     func(ctx context.Context, token string) (*domain.Account, error)
	CompletePasswordResetFunc func(ctx context.Context, token, newPassword, confirmPassword string) error
	UpdatePasswordFunc        func(ctx context.Context, accountID, currentPassword, newPassword string) error
	DeleteAccountFunc         func(ctx context.Context, principalID, targetID string) error
	AuthenticateSessionFunc   func(ctx context.Context, token string) (*domain.Account, error)
	GetProfileFunc            func(ctx context.Context, accountID string) (*domain.Account, error)
	ListProfilesFunc          func(ctx context.Context) ([]*domain.Account, error)
}

// Compile-time interface compliance verification
var _ domain.AccountService = (*MockAccountService)(nil)

// NewMockAccountService creates a new MockAccountService with default behaviors
func NewMockAccountService() *MockAccountService {
	return &MockAccountService{}
}

func (m *MockAccountService) Register(ctx context.Context, input domain.RegisterInput, trust domain.TrustLevel) (*domain.Account, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input, trust)
	}
	// Default behavior: echo the input as a stored account
	return &domain.Account{
		ID:              "acc-1",
		Username:        input.Username,
		Email:           input.Email,
		PhoneNumber:     input.PhoneNumber,
		IsEmailVerified: trust == domain.TrustVerified,
		Role:            domain.RoleUser,
	}, nil
}

func (m *MockAccountService) CheckAvailability(ctx context.Context, field domain.IdentityField, value string) error {
	if m.CheckAvailabilityFunc != nil {
		return m.CheckAvailabilityFunc(ctx, field, value)
	}
	return nil
}

func (m *MockAccountService) VerifyEmail(ctx context.Context, token string) (*domain.VerifyResult, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, token)
	}
	return nil, domain.ErrTokenInvalid
}

func (m *MockAccountService) Login(ctx context.Context, input domain.LoginInput) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, input)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *MockAccountService) InitiatePasswordReset(ctx context.Context, email string) error {
	if m.InitiatePasswordResetFunc != nil {
		return m.InitiatePasswordResetFunc(ctx, email)
	}
	return nil
}

func (m *MockAccountService) ConsumeResetToken(ctx context.Context, token string) (*domain.Account, error) {
	if m.ConsumeResetTokenFunc != nil {
		return m.ConsumeResetTokenFunc(ctx, token)
	}
	return nil, domain.ErrResetTokenInvalid
}

func (m *MockAccountService) CompletePasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error {
	if m.CompletePasswordResetFunc != nil {
		return m.CompletePasswordResetFunc(ctx, token, newPassword, confirmPassword)
	}
	return nil
}

func (m *MockAccountService) UpdatePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, accountID, currentPassword, newPassword)
	}
	return nil
}

func (m *MockAccountService) DeleteAccount(ctx context.Context, principalID, targetID string) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, principalID, targetID)
	}
	return nil
}

func (m *MockAccountService) AuthenticateSession(ctx context.Context, token string) (*domain.Account, error) {
	if m.AuthenticateSessionFunc != nil {
		return m.AuthenticateSessionFunc(ctx, token)
	}
	return nil, domain.ErrUnauthorized
}

func (m *MockAccountService) GetProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, accountID)
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountService) ListProfiles(ctx context.Context) ([]*domain.Account, error) {
	if m.ListProfilesFunc != nil {
		return m.ListProfilesFunc(ctx)
	}
	return []*domain.Account{}, nil
}
