package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/http/middleware"
	"github.com/you/accountsvc/internal/mocks"
)

func signedIn(account *domain.Account) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.AccountKey, account)
		c.Set(middleware.UserIDKey, account.ID)
		c.Set(middleware.RoleKey, account.Role)
	}
}

func alice() *domain.Account {
	return &domain.Account{
		ID:              "acc-1",
		Username:        "alice",
		Email:           "alice@x.com",
		PhoneNumber:     "+15551234567",
		PasswordHash:    "$2a$04$secret",
		IsEmailVerified: true,
		Role:            domain.RoleUser,
	}
}

func validRegisterBody() map[string]any {
	return map[string]any{
		"username":    "alice",
		"email":       "alice@x.com",
		"password":    "Secret1!",
		"phoneNumber": "+15551234567",
		"role":        "admin",
	}
}

func TestAccountHandlers_Register(t *testing.T) {
	tests := []struct {
		name           string
		trusted        bool
		body           any
		setupMocks     func(*mocks.MockAccountService)
		expectedStatus int
		expectedKind   domain.ErrorKind
		expectedField  string
	}{
		{
			name: "self-service ignores role",
			body: validRegisterBody(),
			setupMocks: func(m *mocks.MockAccountService) {
				m.RegisterFunc = func(ctx context.Context, input domain.RegisterInput, trust domain.TrustLevel) (*domain.Account, error) {
					assert.Equal(t, domain.TrustEmailVerification, trust)
					assert.Empty(t, input.Role)
					return alice(), nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:    "trusted passes role",
			trusted: true,
			body:    validRegisterBody(),
			setupMocks: func(m *mocks.MockAccountService) {
				m.RegisterFunc = func(ctx context.Context, input domain.RegisterInput, trust domain.TrustLevel) (*domain.Account, error) {
					assert.Equal(t, domain.TrustVerified, trust)
					assert.Equal(t, "admin", input.Role)
					return alice(), nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing phone",
			body:           map[string]any{"username": "alice", "email": "alice@x.com", "password": "pw"},
			expectedStatus: http.StatusBadRequest,
			expectedKind:   domain.KindValidation,
		},
		{
			name:           "malformed email",
			body:           map[string]any{"username": "alice", "email": "not-an-email", "password": "pw", "phoneNumber": "1"},
			expectedStatus: http.StatusBadRequest,
			expectedKind:   domain.KindValidation,
		},
		{
			name:           "malformed json",
			body:           "{",
			expectedStatus: http.StatusBadRequest,
			expectedKind:   domain.KindValidation,
		},
		{
			name: "conflict names the field",
			body: validRegisterBody(),
			setupMocks: func(m *mocks.MockAccountService) {
				m.RegisterFunc = func(ctx context.Context, input domain.RegisterInput, trust domain.TrustLevel) (*domain.Account, error) {
					return nil, &domain.ConflictError{Field: domain.FieldPhone}
				}
			},
			expectedStatus: http.StatusConflict,
			expectedKind:   domain.KindConflict,
			expectedField:  "phone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockAccountService()
			if tt.setupMocks != nil {
				tt.setupMocks(svc)
			}
			h := NewAccountHandlers(svc)
			handler := h.Register
			if tt.trusted {
				handler = h.RegisterTrusted
			}

			w := performRequest(t, http.MethodPost, "/users/register", tt.body, handler)

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decodeBody(t, w)
			if tt.expectedKind != "" {
				assert.Equal(t, string(tt.expectedKind), body["kind"])
				if tt.expectedField != "" {
					assert.Equal(t, tt.expectedField, body["field"])
				}
				return
			}
			user, ok := body["user"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "acc-1", user["id"])
			assert.NotContains(t, user, "password")
		})
	}
}

func TestAccountHandlers_CheckAvailability(t *testing.T) {
	tests := []struct {
		name           string
		field          string
		body           map[string]any
		expectedValue  string
		taken          bool
		expectedStatus int
	}{
		{name: "username free", field: "username", body: map[string]any{"username": "bob"}, expectedValue: "bob", expectedStatus: http.StatusOK},
		{name: "email taken", field: "email", body: map[string]any{"email": "alice@x.com"}, expectedValue: "alice@x.com", taken: true, expectedStatus: http.StatusConflict},
		{name: "phone alias", field: "phone", body: map[string]any{"phoneNumber": "+1555"}, expectedValue: "+1555", expectedStatus: http.StatusOK},
		{name: "unknown field", field: "nickname", body: map[string]any{}, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockAccountService()
			svc.CheckAvailabilityFunc = func(ctx context.Context, field domain.IdentityField, value string) error {
				assert.Equal(t, tt.expectedValue, value)
				if tt.taken {
					return &domain.ConflictError{Field: field}
				}
				return nil
			}
			h := NewAccountHandlers(svc)

			w := serve(t, http.MethodPost, "/users/check/:field", "/users/check/"+tt.field, tt.body, h.CheckAvailability)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestAccountHandlers_VerifyEmail(t *testing.T) {
	tests := []struct {
		name            string
		result          *domain.VerifyResult
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{name: "verified", result: &domain.VerifyResult{Account: alice()}, expectedStatus: http.StatusOK, expectedMessage: "Email verified."},
		{name: "repeat", result: &domain.VerifyResult{Account: alice(), AlreadyVerified: true}, expectedStatus: http.StatusOK, expectedMessage: "Email already verified."},
		{name: "bad token", err: domain.ErrTokenInvalid, expectedStatus: http.StatusUnauthorized},
		{name: "expired token", err: domain.ErrTokenExpired, expectedStatus: http.StatusUnauthorized},
		{name: "account gone", err: domain.ErrAccountNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockAccountService()
			svc.VerifyEmailFunc = func(ctx context.Context, token string) (*domain.VerifyResult, error) {
				assert.Equal(t, "tok", token)
				return tt.result, tt.err
			}
			h := NewAccountHandlers(svc)

			w := serve(t, http.MethodGet, "/users/verify/:token", "/users/verify/tok", nil, h.VerifyEmail)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedMessage != "" {
				assert.Equal(t, tt.expectedMessage, decodeBody(t, w)["message"])
			}
		})
	}
}

func TestAccountHandlers_Login(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]any
		loginErr       error
		expectedKind   domain.IdentityField
		expectedStatus int
	}{
		{
			name:           "phone with password",
			body:           map[string]any{"kind": "phone", "identifier": "+15551234567", "password": "Secret1!"},
			expectedKind:   domain.FieldPhone,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "phoneNumber alias",
			body:           map[string]any{"kind": "phoneNumber", "identifier": "+15551234567", "password": "Secret1!"},
			expectedKind:   domain.FieldPhone,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "email without password",
			body:           map[string]any{"kind": "email", "identifier": "alice@x.com"},
			expectedKind:   domain.FieldEmail,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unverified",
			body:           map[string]any{"kind": "username", "identifier": "alice"},
			loginErr:       domain.ErrEmailNotVerified,
			expectedKind:   domain.FieldUsername,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "bad credentials",
			body:           map[string]any{"kind": "phone", "identifier": "+1", "password": "x"},
			loginErr:       domain.ErrInvalidCredentials,
			expectedKind:   domain.FieldPhone,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown kind",
			body:           map[string]any{"kind": "id", "identifier": "acc-1"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing identifier",
			body:           map[string]any{"kind": "email"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockAccountService()
			svc.LoginFunc = func(ctx context.Context, input domain.LoginInput) (*domain.AuthResult, error) {
				assert.Equal(t, tt.expectedKind, input.Kind)
				if tt.loginErr != nil {
					return nil, tt.loginErr
				}
				account := alice()
				return &domain.AuthResult{Account: account, SessionToken: "session-token", Profile: account.Public()}, nil
			}
			h := NewAccountHandlers(svc)

			w := performRequest(t, http.MethodPost, "/users/login", tt.body, h.Login)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				body := decodeBody(t, w)
				assert.Equal(t, "session-token", body["token"])
				assert.Equal(t, "alice", body["user"].(map[string]any)["username"])
			}
		})
	}
}

func TestAccountHandlers_PasswordReset(t *testing.T) {
	t.Run("forgot password", func(t *testing.T) {
		svc := mocks.NewMockAccountService()
		var requested string
		svc.InitiatePasswordResetFunc = func(ctx context.Context, email string) error {
			requested = email
			return nil
		}
		h := NewAccountHandlers(svc)

		w := performRequest(t, http.MethodPost, "/users/forgot-password", map[string]any{"email": "alice@x.com"}, h.ForgotPassword)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice@x.com", requested)

		svc.InitiatePasswordResetFunc = func(ctx context.Context, email string) error { return domain.ErrAccountNotFound }
		w = performRequest(t, http.MethodPost, "/users/forgot-password", map[string]any{"email": "nobody@x.com"}, h.ForgotPassword)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("check token", func(t *testing.T) {
		svc := mocks.NewMockAccountService()
		h := NewAccountHandlers(svc)

		w := serve(t, http.MethodGet, "/users/reset-password/:token", "/users/reset-password/tok", nil, h.CheckResetToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, string(domain.KindInvalidOrExpired), decodeBody(t, w)["kind"])

		svc.ConsumeResetTokenFunc = func(ctx context.Context, token string) (*domain.Account, error) { return alice(), nil }
		w = serve(t, http.MethodGet, "/users/reset-password/:token", "/users/reset-password/tok", nil, h.CheckResetToken)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice@x.com", decodeBody(t, w)["email"])
	})

	tests := []struct {
		name           string
		body           map[string]any
		err            error
		expectedStatus int
	}{
		{name: "success", body: map[string]any{"newPassword": "N3!", "confirmPassword": "N3!"}, expectedStatus: http.StatusOK},
		{name: "mismatch", body: map[string]any{"newPassword": "A", "confirmPassword": "B"}, err: domain.ErrPasswordMismatch, expectedStatus: http.StatusBadRequest},
		{name: "used token", body: map[string]any{"newPassword": "A", "confirmPassword": "A"}, err: domain.ErrResetTokenInvalid, expectedStatus: http.StatusUnauthorized},
		{name: "missing confirmation", body: map[string]any{"newPassword": "A"}, expectedStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run("reset "+tt.name, func(t *testing.T) {
			svc := mocks.NewMockAccountService()
			svc.CompletePasswordResetFunc = func(ctx context.Context, token, newPassword, confirmPassword string) error {
				assert.Equal(t, "tok", token)
				return tt.err
			}
			h := NewAccountHandlers(svc)

			w := serve(t, http.MethodPost, "/users/reset-password/:token", "/users/reset-password/tok", tt.body, h.ResetPassword)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestAccountHandlers_SessionRoutes(t *testing.T) {
	t.Run("profile", func(t *testing.T) {
		svc := mocks.NewMockAccountService()
		svc.GetProfileFunc = func(ctx context.Context, id string) (*domain.Account, error) {
			assert.Equal(t, "acc-1", id)
			return alice(), nil
		}
		h := NewAccountHandlers(svc)

		w := performRequest(t, http.MethodGet, "/users/profile", nil, signedIn(alice()), h.Profile)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "alice@x.com", body["email"])
		assert.NotContains(t, body, "password")
	})

	t.Run("profile without session", func(t *testing.T) {
		h := NewAccountHandlers(mocks.NewMockAccountService())
		w := performRequest(t, http.MethodGet, "/users/profile", nil, h.Profile)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("directory hides contact fields", func(t *testing.T) {
		svc := mocks.NewMockAccountService()
		svc.ListProfilesFunc = func(ctx context.Context) ([]*domain.Account, error) {
			return []*domain.Account{alice()}, nil
		}
		h := NewAccountHandlers(svc)

		w := performRequest(t, http.MethodGet, "/users/all", nil, signedIn(alice()), h.ListProfiles)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "alice@x.com")
		assert.Contains(t, w.Body.String(), `"username":"alice"`)
	})

	t.Run("admin account lookup", func(t *testing.T) {
		svc := mocks.NewMockAccountService()
		h := NewAccountHandlers(svc)

		w := serve(t, http.MethodGet, "/users/user/:userId", "/users/user/acc-9", nil, h.GetAccount)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("update password", func(t *testing.T) {
		svc := mocks.NewMockAccountService()
		svc.UpdatePasswordFunc = func(ctx context.Context, accountID, current, next string) error {
			assert.Equal(t, "acc-1", accountID)
			if current != "Secret1!" {
				return domain.ErrInvalidCredentials
			}
			return nil
		}
		h := NewAccountHandlers(svc)

		w := performRequest(t, http.MethodPut, "/users/update-password",
			map[string]any{"currentPassword": "Secret1!", "newPassword": "NewPass2!"}, signedIn(alice()), h.UpdatePassword)
		assert.Equal(t, http.StatusOK, w.Code)

		w = performRequest(t, http.MethodPut, "/users/update-password",
			map[string]any{"currentPassword": "wrong", "newPassword": "NewPass2!"}, signedIn(alice()), h.UpdatePassword)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAccountHandlers_Delete(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		own            bool
		expectedStatus int
	}{
		{name: "delete-account route", own: true, expectedStatus: http.StatusOK},
		{name: "own id in path", target: "acc-1", expectedStatus: http.StatusOK},
		{name: "other id in path", target: "acc-2", expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockAccountService()
			svc.DeleteAccountFunc = func(ctx context.Context, principalID, targetID string) error {
				if principalID != targetID {
					return domain.ErrForbidden
				}
				return nil
			}
			h := NewAccountHandlers(svc)

			var w *httptest.ResponseRecorder
			if tt.own {
				w = performRequest(t, http.MethodDelete, "/users/delete-account", nil, signedIn(alice()), h.DeleteOwnAccount)
			} else {
				w = serve(t, http.MethodDelete, "/users/:userId", "/users/"+tt.target, nil, signedIn(alice()), h.DeleteAccount)
			}

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
