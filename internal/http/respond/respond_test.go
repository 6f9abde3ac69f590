package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/accountsvc/domain"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		kind     domain.ErrorKind
		expected int
	}{
		{domain.KindValidation, http.StatusBadRequest},
		{domain.KindMismatch, http.StatusBadRequest},
		{domain.KindInvalidCredentials, http.StatusUnauthorized},
		{domain.KindInvalidToken, http.StatusUnauthorized},
		{domain.KindInvalidOrExpired, http.StatusUnauthorized},
		{domain.KindUnauthorized, http.StatusUnauthorized},
		{domain.KindEmailNotVerified, http.StatusForbidden},
		{domain.KindForbidden, http.StatusForbidden},
		{domain.KindNotFound, http.StatusNotFound},
		{domain.KindConflict, http.StatusConflict},
		{domain.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, Status(tt.kind))
		})
	}
}

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   map[string]any
	}{
		{
			name:           "conflict names the field",
			err:            &domain.ConflictError{Field: domain.FieldEmail},
			expectedStatus: http.StatusConflict,
			expectedBody:   map[string]any{"error": "email already in use", "kind": "conflict", "field": "email"},
		},
		{
			name:           "validation names the field",
			err:            domain.NewValidationError("username", "is required"),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]any{"error": "username: is required", "kind": "validation_error", "field": "username"},
		},
		{
			name:           "internal detail is hidden",
			err:            domain.NewInternalError("create account", errors.New("pq: connection refused")),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   map[string]any{"error": "internal server error", "kind": "internal_error"},
		},
		{
			name:           "sentinel",
			err:            domain.ErrEmailNotVerified,
			expectedStatus: http.StatusForbidden,
			expectedBody:   map[string]any{"error": "email not verified", "kind": "email_not_verified"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			Error(c, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, c.IsAborted())
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedBody, body)
		})
	}
}
