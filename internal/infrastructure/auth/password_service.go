package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/you/accountsvc/domain"
)

// maxPasswordBytes is the bcrypt input limit
const maxPasswordBytes = 72

// PasswordServiceImpl implements domain.PasswordService
type PasswordServiceImpl struct {
	cost int
}

// NewPasswordService creates a bcrypt password service; a cost outside bcrypt's range falls back to the default
func NewPasswordService(cost int) domain.PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordServiceImpl{cost: cost}
}

// Hash implements domain.PasswordService
func (p *PasswordServiceImpl) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", domain.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// Verify implements domain.PasswordService
func (p *PasswordServiceImpl) Verify(hashedPassword, password string) bool {
	if hashedPassword == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
