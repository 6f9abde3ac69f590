package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/config"
	"github.com/you/accountsvc/internal/http/respond"
)

// CasbinMW wraps the casbin enforcer and ownership rules for middleware
type CasbinMW struct {
	enforcer domain.CasbinEnforcer
	rules    []config.OwnershipRule
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(enforcer domain.CasbinEnforcer, rules []config.OwnershipRule) *CasbinMW {
	return &CasbinMW{enforcer: enforcer, rules: rules}
}

// Enforce returns the casbin authorization middleware; it must run after AuthMiddleware
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenUserID := c.GetString(UserIDKey)
		primaryRole := c.GetString(RoleKey)
		if tokenUserID == "" || primaryRole == "" {
			respond.Error(c, domain.ErrUnauthorized)
			return
		}

		headerUserID := c.GetHeader("x-user-id")
		if headerUserID != "" && headerUserID != tokenUserID {
			respond.Error(c, domain.ErrForbidden)
			return
		}

		path := c.Request.URL.Path
		method := c.Request.Method

		allowed, err := mw.enforcer.Enforce("role_"+primaryRole, path, method)
		if err != nil {
			respond.Error(c, domain.NewInternalError("enforce policy", err))
			return
		}

		// role_owner only applies when an ownership rule matched this route
		if !allowed && mw.isOwner(c, tokenUserID) {
			allowed, err = mw.enforcer.Enforce("role_owner", path, method)
			if err != nil {
				respond.Error(c, domain.NewInternalError("enforce owner policy", err))
				return
			}
		}

		if !allowed {
			respond.Error(c, domain.ErrForbidden)
			return
		}
		c.Next()
	}
}

func (mw *CasbinMW) isOwner(c *gin.Context, tokenUserID string) bool {
	for _, rule := range mw.rules {
		if rule.Path == c.FullPath() && rule.Method == c.Request.Method {
			if requestUserID := extractUserID(c, rule.Source, rule.ParamName); requestUserID != "" && requestUserID == tokenUserID {
				return true
			}
		}
	}
	return false
}
