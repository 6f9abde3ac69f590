package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/you/accountsvc/domain"
)

// AuthMW wraps the account service for session middleware
type AuthMW struct {
	accounts domain.AccountService
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(accounts domain.AccountService) *AuthMW {
	return &AuthMW{accounts: accounts}
}

// WithSession returns the session middleware function
func (mw *AuthMW) WithSession() gin.HandlerFunc {
	return AuthMiddleware(mw.accounts)
}
