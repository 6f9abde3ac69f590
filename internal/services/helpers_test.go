package services

import (
	"testing"
	"time"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/mocks"
)

// serviceMocks bundles the collaborators of AccountServiceImpl for a test
type serviceMocks struct {
	repo       *mocks.MockAccountRepository
	passwords  *mocks.MockPasswordService
	tokens     *mocks.MockTokenService
	dispatcher *mocks.MockDispatcher
	audit      *mocks.MockAuditLogger
	throttle   *mocks.MockVerificationThrottle
}

func newServiceMocks() *serviceMocks {
	return &serviceMocks{
		repo:       mocks.NewMockAccountRepository(),
		passwords:  mocks.NewMockPasswordService(),
		tokens:     mocks.NewMockTokenService(),
		dispatcher: mocks.NewMockDispatcher(),
		audit:      mocks.NewMockAuditLogger(),
		throttle:   mocks.NewMockVerificationThrottle(),
	}
}

// testServiceConfig mirrors the shipped defaults
func testServiceConfig() AccountServiceConfig {
	return AccountServiceConfig{
		SessionTTL:      0,
		VerificationTTL: 24 * time.Hour,
		ResetTokenTTL:   time.Hour,
		ResetMirrorTTL:  24 * time.Hour,
		LoginPolicies:       domain.DefaultLoginPolicies(),
		VerificationChannel: domain.ChannelEmail,
	}
}

// createAccountServiceForTest wires an AccountServiceImpl to m with a fixed clock
func createAccountServiceForTest(t *testing.T, m *serviceMocks, cfg AccountServiceConfig, now time.Time) *AccountServiceImpl {
	t.Helper()

	return NewAccountService(
		m.repo,
		NewUniquenessGuard(m.repo),
		m.passwords,
		m.tokens,
		m.dispatcher,
		m.audit,
		cfg,
		WithVerificationThrottle(m.throttle),
		WithServiceClock(func() time.Time { return now }),
	)
}

// createValidAccount creates a verified account entity for testing
func createValidAccount(t *testing.T) *domain.Account {
	t.Helper()

	return &domain.Account{
		ID:              "acc-1",
		Username:        "alice",
		Email:           "alice@x.com",
		PhoneNumber:     "+15551234567",
		PasswordHash:    "hashed_Secret1!",
		IsEmailVerified: true,
		Role:            domain.RoleUser,
		CreatedAt:       time.Now().Add(-24 * time.Hour),
		UpdatedAt:       time.Now().Add(-time.Hour),
	}
}

// createUnverifiedAccount creates an account still waiting for email verification
func createUnverifiedAccount(t *testing.T) *domain.Account {
	t.Helper()

	account := createValidAccount(t)
	account.IsEmailVerified = false
	return account
}

func validRegisterInput() domain.RegisterInput {
	return domain.RegisterInput{
		Username:    "alice",
		Email:       "alice@x.com",
		Password:    "Secret1!",
		PhoneNumber: "+15551234567",
	}
}
