package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/you/accountsvc/domain"
)

// ClientContext records the caller's IP and User-Agent on the request context for audit events
func ClientContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := domain.WithClientContext(c.Request.Context(), &domain.ClientContext{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
