package e2e

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/you/accountsvc/domain"
)

var fixtureSeq atomic.Int64

// TestUserOptions configures test account creation
type TestUserOptions struct {
	Username string
	Email    string
	Phone    string
	Password string
	Role     string
}

// DefaultTestUser returns unique registration values
func DefaultTestUser() *TestUserOptions {
	n := fixtureSeq.Add(1)
	return &TestUserOptions{
		Username: fmt.Sprintf("user%d", n),
		Email:    fmt.Sprintf("user%d@example.com", n),
		Phone:    fmt.Sprintf("+1555000%04d", n),
		Password: "Test123!@#",
		Role:     domain.RoleUser,
	}
}

// AdminTestUser returns unique registration values for an admin
func AdminTestUser() *TestUserOptions {
	opts := DefaultTestUser()
	opts.Username = "admin" + opts.Username
	opts.Email = "admin-" + opts.Email
	opts.Role = domain.RoleAdmin
	return opts
}

// RegisterBody is the self-service registration payload for opts
func (o *TestUserOptions) RegisterBody() map[string]any {
	return map[string]any{
		"username":    o.Username,
		"email":       o.Email,
		"password":    o.Password,
		"phoneNumber": o.Phone,
	}
}

// CreateVerifiedAccount stores a verified account directly through the service, as the CLI does
func (s *TestServer) CreateVerifiedAccount(t *testing.T, opts *TestUserOptions) *domain.Account {
	t.Helper()
	account, err := s.Container.AccountSvc.Register(t.Context(), domain.RegisterInput{
		Username:    opts.Username,
		Email:       opts.Email,
		Password:    opts.Password,
		PhoneNumber: opts.Phone,
		Role:        opts.Role,
	}, domain.TrustVerified)
	require.NoError(t, err)
	return account
}

// LoginByPhone returns a session token for opts
func (s *TestServer) LoginByPhone(t *testing.T, opts *TestUserOptions) string {
	t.Helper()
	resp := s.Do(t, http.MethodPost, "/users/login", map[string]any{
		"kind":       "phone",
		"identifier": opts.Phone,
		"password":   opts.Password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Raw))
	token, _ := resp.Body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// SignedIn creates a verified account and logs it in
func (s *TestServer) SignedIn(t *testing.T, opts *TestUserOptions) (*domain.Account, string) {
	t.Helper()
	account := s.CreateVerifiedAccount(t, opts)
	return account, s.LoginByPhone(t, opts)
}
