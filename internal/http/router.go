package httpx

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/you/accountsvc/internal/http/handlers"
	"github.com/you/accountsvc/internal/http/middleware"
)

// Deps groups what BuildRouter mounts
type Deps struct {
	Logger   *slog.Logger
	Accounts *handlers.AccountHandlers
	Policies *handlers.PolicyHandlers
	External *handlers.ExternalAuthzHandlers
	Session  *middleware.AuthMW
	Casbin   *middleware.CasbinMW
	Limiter  *middleware.RateLimiter
}

func BuildRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger), middleware.ClientContext())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// Session introspection for sibling services behind a proxy
	external := r.Group("/external")
	external.POST("/authz", d.External.Authorize)
	external.GET("/health", d.External.Health)

	public := r.Group("/users").Use(d.Limiter.Middleware())
	public.POST("/register", d.Accounts.Register)
	public.POST("/check/:field", d.Accounts.CheckAvailability)
	public.GET("/verify/:token", d.Accounts.VerifyEmail)
	public.POST("/login", d.Accounts.Login)
	public.POST("/forgot-password", d.Accounts.ForgotPassword)
	public.GET("/reset-password/:token", d.Accounts.CheckResetToken)
	public.POST("/reset-password/:token", d.Accounts.ResetPassword)

	v := r.Group("/users").Use(d.Session.WithSession(), d.Casbin.Enforce())
	v.POST("/register/trusted", d.Accounts.RegisterTrusted)
	v.GET("/profile", d.Accounts.Profile)
	v.GET("/all", d.Accounts.ListProfiles)
	v.PUT("/update-password", d.Accounts.UpdatePassword)
	v.DELETE("/delete-account", d.Accounts.DeleteOwnAccount)
	v.DELETE("/:userId", d.Accounts.DeleteAccount)
	v.GET("/user/:userId", d.Accounts.GetAccount)

	adm := r.Group("/admin").Use(d.Session.WithSession(), d.Casbin.Enforce())
	adm.GET("/policies", d.Policies.List)
	adm.POST("/policies", d.Policies.Add)
	adm.DELETE("/policies", d.Policies.Remove)

	return r
}
