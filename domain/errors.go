package domain

import (
	"errors"
	"fmt"
)

// Account errors
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrDuplicateIdentity   = errors.New("identity already in use")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrUnsupportedIdentity = errors.New("unsupported identity field")
)

// Token errors
var (
	ErrTokenInvalid      = errors.New("invalid token")
	ErrResetTokenInvalid = errors.New("reset token is invalid or expired")
)

// ErrTokenExpired matches ErrTokenInvalid under errors.Is
var ErrTokenExpired = fmt.Errorf("%w: token has expired", ErrTokenInvalid)

// Authorization errors
var (
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("not authorized to perform this action")
	ErrPolicyNotFound = errors.New("policy not found")
)

// ErrorKind is the stable name of an error class exposed to callers
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation_error"
	KindConflict           ErrorKind = "conflict"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindEmailNotVerified   ErrorKind = "email_not_verified"
	KindInvalidToken       ErrorKind = "invalid_token"
	KindInvalidOrExpired   ErrorKind = "invalid_or_expired"
	KindMismatch           ErrorKind = "mismatch"
	KindNotFound           ErrorKind = "not_found"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindForbidden          ErrorKind = "forbidden"
	KindInternal           ErrorKind = "internal_error"
)

// ValidationError reports missing or malformed input
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError reports a uniqueness violation on a named identity field
type ConflictError struct {
	Field IdentityField
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already in use", e.Field)
}

// Is lets errors.Is(err, ErrDuplicateIdentity) match any conflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrDuplicateIdentity
}

// InternalError wraps an unexpected collaborator failure at an operation boundary
type InternalError struct {
	Op  string
	Err error
}

// NewInternalError wraps err for operation op
func NewInternalError(op string, err error) *InternalError {
	return &InternalError{Op: op, Err: err}
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// KindOf classifies err into the error kind exposed to callers
func KindOf(err error) ErrorKind {
	var (
		validation *ValidationError
		conflict   *ConflictError
		internal   *InternalError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &internal):
		return KindInternal
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &conflict), errors.Is(err, ErrDuplicateIdentity):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrEmailNotVerified):
		return KindEmailNotVerified
	case errors.Is(err, ErrResetTokenInvalid):
		return KindInvalidOrExpired
	case errors.Is(err, ErrTokenInvalid):
		return KindInvalidToken
	case errors.Is(err, ErrPasswordMismatch):
		return KindMismatch
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrPolicyNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnsupportedIdentity):
		return KindValidation
	}
	return KindInternal
}
