// Package respond writes JSON error bodies with the status mapped from domain.ErrorKind.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/logger"
)

// Status maps an error kind to its HTTP status
func Status(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindMismatch:
		return http.StatusBadRequest
	case domain.KindInvalidCredentials, domain.KindInvalidToken, domain.KindInvalidOrExpired, domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindEmailNotVerified, domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error aborts the request with the JSON body for err.
// Internal errors are logged and replaced by a generic message.
func Error(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	body := gin.H{"error": err.Error(), "kind": kind}

	var conflict *domain.ConflictError
	var validation *domain.ValidationError
	switch {
	case kind == domain.KindInternal:
		logger.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(), "error", err)
		body["error"] = "internal server error"
	case errors.As(err, &conflict):
		body["field"] = conflict.Field
	case errors.As(err, &validation) && validation.Field != "":
		body["field"] = validation.Field
	}

	c.AbortWithStatusJSON(Status(kind), body)
}

// BadRequest aborts with a validation error for a malformed request body
func BadRequest(c *gin.Context, err error) {
	Error(c, domain.NewValidationError("", err.Error()))
}
