package services

import (
	"context"
	"errors"
	"strings"

	"github.com/you/accountsvc/domain"
)

// UniquenessGuardImpl implements domain.UniquenessGuard against the account store.
// It is a fast path only; the storage unique indexes decide races.
type UniquenessGuardImpl struct {
	repo domain.AccountRepository
}

// NewUniquenessGuard creates a new uniqueness guard
func NewUniquenessGuard(repo domain.AccountRepository) *UniquenessGuardImpl {
	return &UniquenessGuardImpl{repo: repo}
}

// CheckAvailable implements domain.UniquenessGuard
func (g *UniquenessGuardImpl) CheckAvailable(ctx context.Context, field domain.IdentityField, value string) error {
	switch field {
	case domain.FieldUsername, domain.FieldEmail, domain.FieldPhone:
	default:
		return domain.NewValidationError("field", "unsupported identity field "+string(field))
	}
	value = normalizeIdentity(value)
	if value == "" {
		return domain.NewValidationError(string(field), "is required")
	}

	_, err := g.repo.FindByIdentity(ctx, field, value)
	switch {
	case err == nil:
		return &domain.ConflictError{Field: field}
	case errors.Is(err, domain.ErrAccountNotFound):
		return nil
	default:
		return domain.NewInternalError("check availability", err)
	}
}

// EnsureAvailable implements domain.UniquenessGuard
func (g *UniquenessGuardImpl) EnsureAvailable(ctx context.Context, username, email, phone string) error {
	checks := []struct {
		field domain.IdentityField
		value string
	}{
		{domain.FieldUsername, username},
		{domain.FieldEmail, email},
		{domain.FieldPhone, phone},
	}
	for _, c := range checks {
		if err := g.CheckAvailable(ctx, c.field, c.value); err != nil {
			return err
		}
	}
	return nil
}

// normalizeIdentity is the stored form of a username, email or phone number
func normalizeIdentity(value string) string {
	return strings.TrimSpace(value)
}
