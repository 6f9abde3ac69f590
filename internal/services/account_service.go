package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/you/accountsvc/domain"
)

// maxPasswordBytes is the bcrypt input limit
const maxPasswordBytes = 72

// AccountServiceConfig holds the token lifetimes and login rules
type AccountServiceConfig struct {
	SessionTTL          time.Duration
	VerificationTTL     time.Duration
	ResetTokenTTL       time.Duration
	ResetMirrorTTL      time.Duration
	LoginPolicies       map[domain.IdentityField]domain.LoginPolicy
	VerificationChannel domain.Channel
}

// AccountServiceImpl implements domain.AccountService
type AccountServiceImpl struct {
	accountRepo domain.AccountRepository
	guard       domain.UniquenessGuard
	passwordSvc domain.PasswordService
	tokenSvc    domain.TokenService
	dispatcher  domain.MessageDispatcher
	auditLogger domain.AuditLogger
	throttle    domain.VerificationThrottle
	cfg         AccountServiceConfig
	now         func() time.Time
	log         *slog.Logger
}

// AccountServiceOption configures optional collaborators
type AccountServiceOption func(*AccountServiceImpl)

// WithVerificationThrottle limits verification re-sends triggered by login
func WithVerificationThrottle(throttle domain.VerificationThrottle) AccountServiceOption {
	return func(s *AccountServiceImpl) { s.throttle = throttle }
}

// WithServiceClock replaces time.Now for reset expiry decisions
func WithServiceClock(now func() time.Time) AccountServiceOption {
	return func(s *AccountServiceImpl) { s.now = now }
}

// WithServiceLogger sets the logger for swallowed side-effect failures
func WithServiceLogger(log *slog.Logger) AccountServiceOption {
	return func(s *AccountServiceImpl) { s.log = log }
}

// NewAccountService creates a new account service
func NewAccountService(
	accountRepo domain.AccountRepository,
	guard domain.UniquenessGuard,
	passwordSvc domain.PasswordService,
	tokenSvc domain.TokenService,
	dispatcher domain.MessageDispatcher,
	auditLogger domain.AuditLogger,
	cfg AccountServiceConfig,
	opts ...AccountServiceOption,
) *AccountServiceImpl {
	if cfg.VerificationChannel == "" {
		cfg.VerificationChannel = domain.ChannelEmail
	}
	// Kinds missing from the config keep their default checks
	policies := domain.DefaultLoginPolicies()
	for kind, policy := range cfg.LoginPolicies {
		policies[kind] = policy
	}
	cfg.LoginPolicies = policies
	s := &AccountServiceImpl{
		accountRepo: accountRepo,
		guard:       guard,
		passwordSvc: passwordSvc,
		tokenSvc:    tokenSvc,
		dispatcher:  dispatcher,
		auditLogger: auditLogger,
		cfg:         cfg,
		now:         time.Now,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register implements domain.AccountService
func (s *AccountServiceImpl) Register(ctx context.Context, input domain.RegisterInput, trust domain.TrustLevel) (*domain.Account, error) {
	input.Username = normalizeIdentity(input.Username)
	input.Email = normalizeIdentity(input.Email)
	input.PhoneNumber = normalizeIdentity(input.PhoneNumber)
	if err := validateRegistration(input); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, domain.NewValidationError("role", fmt.Sprintf("unknown role %q", role))
	}

	if err := s.guard.EnsureAvailable(ctx, input.Username, input.Email, input.PhoneNumber); err != nil {
		return nil, err
	}

	hashedPassword, err := s.hash(input.Password)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:          input.Username,
		Email:             input.Email,
		PhoneNumber:       input.PhoneNumber,
		PasswordHash:      hashedPassword,
		IsEmailVerified:   trust == domain.TrustVerified,
		ProfilePictureURL: input.ProfilePictureURL,
		Role:              role,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			return nil, s.nameConflict(ctx, input)
		}
		return nil, domain.NewInternalError("create account", err)
	}

	if trust == domain.TrustEmailVerification {
		s.sendVerification(ctx, account)
	}

	s.audit(ctx, domain.NewAuditEvent(domain.AccountRegisteredEvent, account.ID).
		WithEmail(account.Email).
		WithMetadata("trusted", trust == domain.TrustVerified))

	return account, nil
}

// CheckAvailability implements domain.AccountService
func (s *AccountServiceImpl) CheckAvailability(ctx context.Context, field domain.IdentityField, value string) error {
	return s.guard.CheckAvailable(ctx, field, value)
}

// VerifyEmail implements domain.AccountService
func (s *AccountServiceImpl) VerifyEmail(ctx context.Context, token string) (*domain.VerifyResult, error) {
	claims, err := s.tokenSvc.Verify(token, domain.PurposeEmailVerification)
	if err != nil {
		s.audit(ctx, domain.NewAuditEvent(domain.EmailVerificationFailEvent, "").WithError(err))
		return nil, err
	}

	account, err := s.findByID(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}
	if account.IsEmailVerified {
		return &domain.VerifyResult{Account: account, AlreadyVerified: true}, nil
	}

	verified := true
	if err := s.accountRepo.UpdateFields(ctx, account.ID, domain.AccountPatch{IsEmailVerified: &verified}); err != nil {
		return nil, s.storageError("verify email", err)
	}
	account.IsEmailVerified = true

	s.audit(ctx, domain.NewAuditEvent(domain.EmailVerifiedEvent, account.ID).WithEmail(account.Email))
	return &domain.VerifyResult{Account: account}, nil
}

// Login implements domain.AccountService
func (s *AccountServiceImpl) Login(ctx context.Context, input domain.LoginInput) (*domain.AuthResult, error) {
	policy, ok := s.cfg.LoginPolicies[input.Kind]
	if !ok {
		return nil, domain.NewValidationError("kind", fmt.Sprintf("unsupported login identifier %q", input.Kind))
	}

	input.Identifier = normalizeIdentity(input.Identifier)
	if input.Identifier == "" {
		return nil, s.loginFailed(ctx, "", domain.ErrInvalidCredentials)
	}

	account, err := s.accountRepo.FindByIdentity(ctx, input.Kind, input.Identifier)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, s.loginFailed(ctx, "", domain.ErrInvalidCredentials)
		}
		return nil, domain.NewInternalError("find account", err)
	}

	if policy.VerifyPassword {
		if input.Password == "" || !s.passwordSvc.Verify(account.PasswordHash, input.Password) {
			return nil, s.loginFailed(ctx, account.ID, domain.ErrInvalidCredentials)
		}
	}

	if policy.RequireVerifiedEmail && !account.IsEmailVerified {
		if policy.ResendVerification {
			s.resendVerification(ctx, account)
		}
		return nil, s.loginFailed(ctx, account.ID, domain.ErrEmailNotVerified)
	}

	sessionToken, err := s.tokenSvc.Issue(domain.PurposeSession, domain.TokenPayload{
		AccountID: account.ID,
		Email:     account.Email,
	}, s.cfg.SessionTTL)
	if err != nil {
		return nil, domain.NewInternalError("issue session token", err)
	}

	s.audit(ctx, domain.NewAuditEvent(domain.AccountLoginEvent, account.ID).
		WithEmail(account.Email).
		WithMetadata("kind", string(input.Kind)))

	return &domain.AuthResult{
		Account:      account,
		SessionToken: sessionToken,
		Profile:      account.Public(),
	}, nil
}

// InitiatePasswordReset implements domain.AccountService
func (s *AccountServiceImpl) InitiatePasswordReset(ctx context.Context, email string) error {
	email = normalizeIdentity(email)
	if email == "" {
		return domain.NewValidationError("email", "is required")
	}

	account, err := s.accountRepo.FindByIdentity(ctx, domain.FieldEmail, email)
	if err != nil {
		return s.storageError("find account", err)
	}

	resetToken, err := s.tokenSvc.Issue(domain.PurposePasswordReset, domain.TokenPayload{Email: account.Email}, s.cfg.ResetTokenTTL)
	if err != nil {
		return domain.NewInternalError("issue reset token", err)
	}

	expires := s.now().Add(s.cfg.ResetMirrorTTL)
	if err := s.accountRepo.UpdateFields(ctx, account.ID, domain.AccountPatch{
		ResetToken:        &resetToken,
		ResetTokenExpires: &expires,
	}); err != nil {
		return s.storageError("store reset token", err)
	}

	s.enqueue(ctx, domain.Message{
		Kind:        domain.MessagePasswordReset,
		Channel:     domain.ChannelEmail,
		Destination: account.Email,
		Token:       resetToken,
		AccountID:   account.ID,
	})

	s.audit(ctx, domain.NewAuditEvent(domain.PasswordResetRequestedEvent, account.ID).WithEmail(account.Email))
	return nil
}

// ConsumeResetToken implements domain.AccountService
func (s *AccountServiceImpl) ConsumeResetToken(ctx context.Context, token string) (*domain.Account, error) {
	claims, err := s.tokenSvc.Verify(token, domain.PurposePasswordReset)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			if _, revokeErr := s.accountRepo.RevokeResetToken(ctx, token); revokeErr != nil {
				s.log.WarnContext(ctx, "failed to clear expired reset token", slog.Any("error", revokeErr))
			}
		}
		return nil, domain.ErrResetTokenInvalid
	}

	account, err := s.accountRepo.FindByActiveResetToken(ctx, claims.Email, token, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrResetTokenInvalid
		}
		return nil, domain.NewInternalError("find reset token", err)
	}
	return account, nil
}

// CompletePasswordReset implements domain.AccountService
func (s *AccountServiceImpl) CompletePasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error {
	account, err := s.ConsumeResetToken(ctx, token)
	if err != nil {
		return err
	}
	if newPassword != confirmPassword {
		return domain.ErrPasswordMismatch
	}
	if err := validatePassword("password", newPassword); err != nil {
		return err
	}

	hashedPassword, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accountRepo.UpdateFields(ctx, account.ID, domain.AccountPatch{
		PasswordHash:    &hashedPassword,
		ClearResetToken: true,
	}); err != nil {
		return s.storageError("store password", err)
	}

	s.audit(ctx, domain.NewAuditEvent(domain.PasswordResetCompletedEvent, account.ID).WithEmail(account.Email))
	return nil
}

// UpdatePassword implements domain.AccountService
func (s *AccountServiceImpl) UpdatePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if err := validatePassword("newPassword", newPassword); err != nil {
		return err
	}

	account, err := s.findByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !s.passwordSvc.Verify(account.PasswordHash, currentPassword) {
		s.audit(ctx, domain.NewAuditEvent(domain.PasswordUpdatedEvent, account.ID).WithError(domain.ErrInvalidCredentials))
		return domain.ErrInvalidCredentials
	}

	hashedPassword, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accountRepo.UpdateFields(ctx, account.ID, domain.AccountPatch{PasswordHash: &hashedPassword}); err != nil {
		return s.storageError("store password", err)
	}

	s.audit(ctx, domain.NewAuditEvent(domain.PasswordUpdatedEvent, account.ID))
	return nil
}

// DeleteAccount implements domain.AccountService
func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, principalID, targetID string) error {
	if principalID == "" {
		return domain.ErrUnauthorized
	}
	if principalID != targetID {
		return domain.ErrForbidden
	}
	if err := s.accountRepo.Delete(ctx, targetID); err != nil {
		return s.storageError("delete account", err)
	}

	s.audit(ctx, domain.NewAuditEvent(domain.AccountDeletedEvent, targetID))
	return nil
}

// AuthenticateSession implements domain.AccountService
func (s *AccountServiceImpl) AuthenticateSession(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	claims, err := s.tokenSvc.Verify(token, domain.PurposeSession)
	if err != nil || claims.AccountID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.findByID(ctx, claims.AccountID)
}

// GetProfile implements domain.AccountService
func (s *AccountServiceImpl) GetProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.findByID(ctx, accountID)
}

// ListProfiles implements domain.AccountService
func (s *AccountServiceImpl) ListProfiles(ctx context.Context) ([]*domain.Account, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, domain.NewInternalError("list accounts", err)
	}
	return accounts, nil
}

func (s *AccountServiceImpl) findByID(ctx context.Context, id string) (*domain.Account, error) {
	if id == "" {
		return nil, domain.ErrAccountNotFound
	}
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.storageError("find account", err)
	}
	return account, nil
}

func (s *AccountServiceImpl) hash(password string) (string, error) {
	hashed, err := s.passwordSvc.Hash(password)
	if err != nil {
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			return "", err
		}
		return "", domain.NewInternalError("hash password", err)
	}
	return hashed, nil
}

// nameConflict turns a storage-level duplicate into a ConflictError naming the field when possible
func (s *AccountServiceImpl) nameConflict(ctx context.Context, input domain.RegisterInput) error {
	err := s.guard.EnsureAvailable(ctx, input.Username, input.Email, input.PhoneNumber)
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return conflict
	}
	return &domain.ConflictError{Field: "identity"}
}

func (s *AccountServiceImpl) sendVerification(ctx context.Context, account *domain.Account) {
	token, err := s.tokenSvc.Issue(domain.PurposeEmailVerification, domain.TokenPayload{
		AccountID: account.ID,
		Email:     account.Email,
	}, s.cfg.VerificationTTL)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to issue verification token", slog.String("account_id", account.ID), slog.Any("error", err))
		return
	}

	s.enqueue(ctx, domain.Message{
		Kind:        domain.MessageVerification,
		Channel:     s.cfg.VerificationChannel,
		Destination: s.verificationDestination(account),
		Token:       token,
		AccountID:   account.ID,
	})
}

func (s *AccountServiceImpl) verificationDestination(account *domain.Account) string {
	if s.cfg.VerificationChannel == domain.ChannelSMS {
		return account.PhoneNumber
	}
	return account.Email
}

func (s *AccountServiceImpl) resendVerification(ctx context.Context, account *domain.Account) {
	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, s.verificationDestination(account))
		if err != nil {
			s.log.WarnContext(ctx, "verification throttle unavailable", slog.Any("error", err))
		}
		if !allowed {
			s.log.DebugContext(ctx, "verification re-send throttled", slog.String("account_id", account.ID))
			return
		}
	}
	s.sendVerification(ctx, account)
}

func (s *AccountServiceImpl) enqueue(ctx context.Context, msg domain.Message) {
	if !s.dispatcher.Enqueue(msg) {
		s.log.WarnContext(ctx, "message not queued", slog.String("kind", string(msg.Kind)), slog.String("account_id", msg.AccountID))
	}
}

func (s *AccountServiceImpl) loginFailed(ctx context.Context, accountID string, err error) error {
	s.audit(ctx, domain.NewAuditEvent(domain.AccountLoginFailureEvent, accountID).WithError(err))
	return err
}

func (s *AccountServiceImpl) audit(ctx context.Context, event *domain.AuditEvent) {
	if s.auditLogger == nil {
		return
	}
	event.WithClientContext(domain.ClientContextFrom(ctx))
	if err := s.auditLogger.LogEvent(ctx, event); err != nil {
		s.log.WarnContext(ctx, "failed to record audit event", slog.String("event_type", string(event.EventType)), slog.Any("error", err))
	}
}

// storageError passes ErrAccountNotFound through and wraps anything else as internal
func (s *AccountServiceImpl) storageError(op string, err error) error {
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.ErrAccountNotFound
	}
	return domain.NewInternalError(op, err)
}

func validateRegistration(input domain.RegisterInput) error {
	required := []struct {
		field string
		value string
	}{
		{"username", input.Username},
		{"email", input.Email},
		{"password", input.Password},
		{"phoneNumber", input.PhoneNumber},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domain.NewValidationError(r.field, "is required")
		}
	}
	return validatePassword("password", input.Password)
}

func validatePassword(field, password string) error {
	if password == "" {
		return domain.NewValidationError(field, "is required")
	}
	if len(password) > maxPasswordBytes {
		return domain.NewValidationError(field, fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}
