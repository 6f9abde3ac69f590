package mocks

import (
	"context"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockAccountRepository implements domain.AccountRepository interface for testing
type MockAccountRepository struct {
	CreateFunc                  func(ctx context.Context, account *domain.Account) error
	FindByIDFunc                func(ctx context.Context, id string) (*domain.Account, error)
	FindByIdentityFunc          func(ctx context.Context, field domain.IdentityField, value string) (*domain.Account, error)
	FindByActiveResetTokenFunc  func(ctx context.Context, email, token string, now time.Time) (*domain.Account, error)
	UpdateFieldsFunc            func(ctx context.Context, id string, patch domain.AccountPatch) error
	DeleteFunc                  func(ctx context.Context, id string) error
	ListFunc                    func(ctx context.Context) ([]*domain.Account, error)
	RevokeResetTokenFunc        func(ctx context.Context, token string) (int64, error)
	ClearExpiredResetTokensFunc func(ctx context.Context, now time.Time) (int64, error)

	// Patches records every UpdateFields call in order
	Patches []domain.AccountPatch
}

// Compile-time interface compliance verification
var _ domain.AccountRepository = (*MockAccountRepository)(nil)

// NewMockAccountRepository creates a new MockAccountRepository with default behaviors
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{}
}

// Create stores a new account
func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	// Default behavior: success with a fixed id
	if account.ID == "" {
		account.ID = "acc-1"
	}
	return nil
}

// FindByID finds an account by id
func (m *MockAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// FindByIdentity finds an account by a unique field
func (m *MockAccountRepository) FindByIdentity(ctx context.Context, field domain.IdentityField, value string) (*domain.Account, error) {
	if m.FindByIdentityFunc != nil {
		return m.FindByIdentityFunc(ctx, field, value)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// FindByActiveResetToken finds an account holding an unexpired reset mirror
func (m *MockAccountRepository) FindByActiveResetToken(ctx context.Context, email, token string, now time.Time) (*domain.Account, error) {
	if m.FindByActiveResetTokenFunc != nil {
		return m.FindByActiveResetTokenFunc(ctx, email, token, now)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// UpdateFields applies a patch
func (m *MockAccountRepository) UpdateFields(ctx context.Context, id string, patch domain.AccountPatch) error {
	m.Patches = append(m.Patches, patch)
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, id, patch)
	}
	// Default behavior: success
	return nil
}

// Delete removes an account
func (m *MockAccountRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	// Default behavior: success
	return nil
}

// List returns every account
func (m *MockAccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	// Default behavior: empty
	return []*domain.Account{}, nil
}

// RevokeResetToken clears the reset mirror holding token
func (m *MockAccountRepository) RevokeResetToken(ctx context.Context, token string) (int64, error) {
	if m.RevokeResetTokenFunc != nil {
		return m.RevokeResetTokenFunc(ctx, token)
	}
	// Default behavior: nothing matched
	return 0, nil
}

// ClearExpiredResetTokens clears expired reset mirrors
func (m *MockAccountRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	if m.ClearExpiredResetTokensFunc != nil {
		return m.ClearExpiredResetTokensFunc(ctx, now)
	}
	// Default behavior: nothing matched
	return 0, nil
}
