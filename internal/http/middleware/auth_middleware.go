package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/http/respond"
)

// Context keys set by AuthMiddleware
const (
	AccountKey = "account"
	UserIDKey  = "user_id"
	RoleKey    = "user_role"
)

// AuthMiddleware resolves the Bearer session token to the current account.
// A token for a deleted account is rejected with NotFound.
func AuthMiddleware(accounts domain.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			respond.Error(c, domain.ErrUnauthorized)
			return
		}

		account, err := accounts.AuthenticateSession(c.Request.Context(), token)
		if err != nil {
			respond.Error(c, err)
			return
		}

		c.Set(AccountKey, account)
		c.Set(UserIDKey, account.ID)
		c.Set(RoleKey, account.Role)
		c.Next()
	}
}

// CurrentAccount returns the account set by AuthMiddleware
func CurrentAccount(c *gin.Context) (*domain.Account, bool) {
	v, ok := c.Get(AccountKey)
	if !ok {
		return nil, false
	}
	account, ok := v.(*domain.Account)
	return account, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
