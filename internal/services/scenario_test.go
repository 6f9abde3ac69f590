package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/infrastructure/auth"
	"github.com/you/accountsvc/internal/infrastructure/repositories"
	"github.com/you/accountsvc/internal/mocks"
)

// scenarioEnv runs AccountServiceImpl over sqlite with real bcrypt and JWT and a movable clock
type scenarioEnv struct {
	svc        *AccountServiceImpl
	repo       *repositories.AccountRepositoryImpl
	dispatcher *mocks.MockDispatcher
	now        time.Time
}

func (e *scenarioEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

func newScenarioEnv(t *testing.T, cfg AccountServiceConfig) *scenarioEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&repositories.DBAccount{}))

	env := &scenarioEnv{
		repo:       repositories.NewAccountRepository(db),
		dispatcher: mocks.NewMockDispatcher(),
		now:        testNow,
	}
	clock := func() time.Time { return env.now }
	tokens := auth.NewJWTService("scenario-secret", "accountsvc", auth.WithClock(clock))

	env.svc = NewAccountService(
		env.repo,
		NewUniquenessGuard(env.repo),
		auth.NewPasswordService(bcrypt.MinCost),
		tokens,
		env.dispatcher,
		mocks.NewMockAuditLogger(),
		cfg,
		WithServiceClock(clock),
	)
	return env
}

func (e *scenarioEnv) lastToken(t *testing.T, kind domain.MessageKind) string {
	t.Helper()
	msg, ok := e.dispatcher.Last(kind)
	require.True(t, ok, "no %s message dispatched", kind)
	return msg.Token
}

func TestScenario_RegisterVerifyLoginUpdatePassword(t *testing.T) {
	env := newScenarioEnv(t, testServiceConfig())
	ctx := context.Background()

	account, err := env.svc.Register(ctx, validRegisterInput(), domain.TrustEmailVerification)
	require.NoError(t, err)
	assert.False(t, account.IsEmailVerified)
	assert.NotEqual(t, "Secret1!", account.PasswordHash)

	verifyToken := env.lastToken(t, domain.MessageVerification)
	result, err := env.svc.VerifyEmail(ctx, verifyToken)
	require.NoError(t, err)
	assert.True(t, result.Account.IsEmailVerified)

	again, err := env.svc.VerifyEmail(ctx, verifyToken)
	require.NoError(t, err)
	assert.True(t, again.AlreadyVerified)

	session, err := env.svc.Login(ctx, domain.LoginInput{Kind: domain.FieldEmail, Identifier: "alice@x.com"})
	require.NoError(t, err)
	require.NotEmpty(t, session.SessionToken)

	principal, err := env.svc.AuthenticateSession(ctx, session.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, principal.ID)

	require.NoError(t, env.svc.UpdatePassword(ctx, principal.ID, "Secret1!", "NewPass2!"))

	_, err = env.svc.Login(ctx, domain.LoginInput{Kind: domain.FieldPhone, Identifier: "+15551234567", Password: "Secret1!"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, domain.LoginInput{Kind: domain.FieldPhone, Identifier: "+15551234567", Password: "NewPass2!"})
	assert.NoError(t, err)
}

func TestScenario_LoginWithoutConfiguredPolicies(t *testing.T) {
	env := newScenarioEnv(t, AccountServiceConfig{})
	ctx := context.Background()

	_, err := env.svc.Register(ctx, validRegisterInput(), domain.TrustEmailVerification)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    domain.LoginInput
		expected error
	}{
		{
			name:     "phone with wrong password",
			input:    domain.LoginInput{Kind: domain.FieldPhone, Identifier: "+15551234567", Password: "WRONG"},
			expected: domain.ErrInvalidCredentials,
		},
		{
			name:     "phone with right password but unverified",
			input:    domain.LoginInput{Kind: domain.FieldPhone, Identifier: "+15551234567", Password: "Secret1!"},
			expected: domain.ErrEmailNotVerified,
		},
		{
			name:     "username unverified",
			input:    domain.LoginInput{Kind: domain.FieldUsername, Identifier: "alice"},
			expected: domain.ErrEmailNotVerified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := env.svc.Login(ctx, tt.input)
			assert.ErrorIs(t, err, tt.expected)
			assert.Nil(t, result)
		})
	}
}

func TestScenario_PasswordResetSingleUse(t *testing.T) {
	env := newScenarioEnv(t, testServiceConfig())
	ctx := context.Background()

	account, err := env.svc.Register(ctx, validRegisterInput(), domain.TrustVerified)
	require.NoError(t, err)

	require.NoError(t, env.svc.InitiatePasswordReset(ctx, "alice@x.com"))
	resetToken := env.lastToken(t, domain.MessagePasswordReset)

	before, err := env.repo.FindByID(ctx, account.ID)
	require.NoError(t, err)

	err = env.svc.CompletePasswordReset(ctx, resetToken, "A", "B")
	assert.Equal(t, domain.KindMismatch, domain.KindOf(err))

	unchanged, err := env.repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, unchanged.PasswordHash)
	require.NotNil(t, unchanged.ResetToken)

	require.NoError(t, env.svc.CompletePasswordReset(ctx, resetToken, "NewPass3!", "NewPass3!"))

	after, err := env.repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, after.ResetToken)
	assert.Nil(t, after.ResetTokenExpires)

	err = env.svc.CompletePasswordReset(ctx, resetToken, "NewPass4!", "NewPass4!")
	assert.Equal(t, domain.KindInvalidOrExpired, domain.KindOf(err))

	_, err = env.svc.Login(ctx, domain.LoginInput{Kind: domain.FieldPhone, Identifier: "+15551234567", Password: "NewPass3!"})
	assert.NoError(t, err)
}

func TestScenario_ResetExpiry(t *testing.T) {
	t.Run("mirror expired while signature still valid", func(t *testing.T) {
		cfg := testServiceConfig()
		cfg.ResetTokenTTL = 48 * time.Hour
		cfg.ResetMirrorTTL = time.Hour
		env := newScenarioEnv(t, cfg)
		ctx := context.Background()

		_, err := env.svc.Register(ctx, validRegisterInput(), domain.TrustVerified)
		require.NoError(t, err)
		require.NoError(t, env.svc.InitiatePasswordReset(ctx, "alice@x.com"))
		resetToken := env.lastToken(t, domain.MessagePasswordReset)

		env.advance(2 * time.Hour)

		_, err = env.svc.ConsumeResetToken(ctx, resetToken)
		assert.Equal(t, domain.KindInvalidOrExpired, domain.KindOf(err))
	})

	t.Run("expired signature clears the stored mirror", func(t *testing.T) {
		env := newScenarioEnv(t, testServiceConfig())
		ctx := context.Background()

		account, err := env.svc.Register(ctx, validRegisterInput(), domain.TrustVerified)
		require.NoError(t, err)
		require.NoError(t, env.svc.InitiatePasswordReset(ctx, "alice@x.com"))
		resetToken := env.lastToken(t, domain.MessagePasswordReset)

		env.advance(2 * time.Hour)

		_, err = env.svc.ConsumeResetToken(ctx, resetToken)
		assert.Equal(t, domain.KindInvalidOrExpired, domain.KindOf(err))

		stored, err := env.repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ResetToken)
	})
}

func TestScenario_DuplicateIdentities(t *testing.T) {
	tests := []struct {
		name  string
		input domain.RegisterInput
		field domain.IdentityField
	}{
		{
			name:  "same username",
			input: domain.RegisterInput{Username: "alice", Email: "b@x.com", Password: "pw", PhoneNumber: "+15550000002"},
			field: domain.FieldUsername,
		},
		{
			name:  "same email",
			input: domain.RegisterInput{Username: "bob", Email: "alice@x.com", Password: "pw", PhoneNumber: "+15550000002"},
			field: domain.FieldEmail,
		},
		{
			name:  "same phone",
			input: domain.RegisterInput{Username: "bob", Email: "b@x.com", Password: "pw", PhoneNumber: "+15551234567"},
			field: domain.FieldPhone,
		},
		{
			name:  "padded username",
			input: domain.RegisterInput{Username: " alice ", Email: "b@x.com", Password: "pw", PhoneNumber: "+15550000002"},
			field: domain.FieldUsername,
		},
		{
			name:  "padded email",
			input: domain.RegisterInput{Username: "bob", Email: "\talice@x.com", Password: "pw", PhoneNumber: "+15550000002"},
			field: domain.FieldEmail,
		},
		{
			name:  "padded phone",
			input: domain.RegisterInput{Username: "bob", Email: "b@x.com", Password: "pw", PhoneNumber: "+15551234567 "},
			field: domain.FieldPhone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newScenarioEnv(t, testServiceConfig())
			ctx := context.Background()
			_, err := env.svc.Register(ctx, validRegisterInput(), domain.TrustVerified)
			require.NoError(t, err)

			_, err = env.svc.Register(ctx, tt.input, domain.TrustVerified)

			var conflict *domain.ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, tt.field, conflict.Field)
		})
	}
}

func TestScenario_IdentityStoredTrimmed(t *testing.T) {
	env := newScenarioEnv(t, testServiceConfig())
	ctx := context.Background()

	input := validRegisterInput()
	input.Username = "  alice\n"
	input.Email = " alice@x.com"
	input.PhoneNumber = "+15551234567\t"
	account, err := env.svc.Register(ctx, input, domain.TrustVerified)
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "alice@x.com", account.Email)
	assert.Equal(t, "+15551234567", account.PhoneNumber)

	stored, err := env.repo.FindByIdentity(ctx, domain.FieldUsername, "alice")
	require.NoError(t, err)
	assert.Equal(t, account.ID, stored.ID)

	var conflict *domain.ConflictError
	require.ErrorAs(t, env.svc.CheckAvailability(ctx, domain.FieldEmail, "alice@x.com "), &conflict)

	_, err = env.svc.Login(ctx, domain.LoginInput{Kind: domain.FieldUsername, Identifier: " alice ", Password: input.Password})
	require.NoError(t, err)
}

func TestScenario_SaltedHashes(t *testing.T) {
	env := newScenarioEnv(t, testServiceConfig())
	ctx := context.Background()

	first, err := env.svc.Register(ctx, validRegisterInput(), domain.TrustVerified)
	require.NoError(t, err)
	second, err := env.svc.Register(ctx, domain.RegisterInput{
		Username: "bob", Email: "bob@x.com", Password: "Secret1!", PhoneNumber: "+15550000009",
	}, domain.TrustVerified)
	require.NoError(t, err)

	assert.NotEqual(t, first.PasswordHash, second.PasswordHash)
}
