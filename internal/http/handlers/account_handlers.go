package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/http/middleware"
	"github.com/you/accountsvc/internal/http/respond"
)

// AccountHandlers exposes the account lifecycle over HTTP
type AccountHandlers struct {
	accounts domain.AccountService
}

// NewAccountHandlers creates new account handlers
func NewAccountHandlers(accounts domain.AccountService) *AccountHandlers {
	return &AccountHandlers{accounts: accounts}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Username          string `json:"username" binding:"required"`
	Email             string `json:"email" binding:"required,email"`
	Password          string `json:"password" binding:"required"`
	PhoneNumber       string `json:"phoneNumber" binding:"required"`
	ProfilePictureURL string `json:"profilePicUrl"`
	// Role is honoured only on the trusted route
	Role string `json:"role,omitempty"`
}

// LoginRequest identifies the account by kind (phone, email or username)
type LoginRequest struct {
	Kind       string `json:"kind" binding:"required"`
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password"`
}

// AvailabilityRequest carries the value for one of the check routes
type AvailabilityRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// ForgotPasswordRequest represents a password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest represents the new password for a reset token
type ResetPasswordRequest struct {
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// UpdatePasswordRequest represents a password change by the signed-in account
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// Register handles self-service registration; the account starts unverified
func (h *AccountHandlers) Register(c *gin.Context) {
	h.register(c, domain.TrustEmailVerification)
}

// RegisterTrusted handles admin registration of an already verified account
func (h *AccountHandlers) RegisterTrusted(c *gin.Context) {
	h.register(c, domain.TrustVerified)
}

func (h *AccountHandlers) register(c *gin.Context, trust domain.TrustLevel) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, err)
		return
	}

	input := domain.RegisterInput{
		Username:          req.Username,
		Email:             req.Email,
		Password:          req.Password,
		PhoneNumber:       req.PhoneNumber,
		ProfilePictureURL: req.ProfilePictureURL,
	}
	message := "Account created. Check your inbox to verify your email."
	if trust == domain.TrustVerified {
		input.Role = req.Role
		message = "Account created."
	}

	account, err := h.accounts.Register(c.Request.Context(), input, trust)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": message,
		"user":    account.Public(),
	})
}

// CheckAvailability handles POST /users/check/:field
func (h *AccountHandlers) CheckAvailability(c *gin.Context) {
	field, err := domain.ParseIdentityField(c.Param("field"))
	if err != nil {
		respond.Error(c, err)
		return
	}

	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, err)
		return
	}
	value := map[domain.IdentityField]string{
		domain.FieldUsername: req.Username,
		domain.FieldEmail:    req.Email,
		domain.FieldPhone:    req.PhoneNumber,
	}[field]

	if err := h.accounts.CheckAvailability(c.Request.Context(), field, value); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": string(field) + " available", "available": true})
}

// VerifyEmail handles the link sent in the verification message
func (h *AccountHandlers) VerifyEmail(c *gin.Context) {
	result, err := h.accounts.VerifyEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		respond.Error(c, err)
		return
	}

	message := "Email verified."
	if result.AlreadyVerified {
		message = "Email already verified."
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "user": result.Account.Public()})
}

// Login handles login by phone, email or username
func (h *AccountHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, err)
		return
	}
	kind, err := domain.ParseIdentityField(req.Kind)
	if err != nil {
		respond.Error(c, err)
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), domain.LoginInput{
		Kind:       kind,
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      result.SessionToken,
		"token_type": "Bearer",
		"user":       result.Profile,
	})
}

// ForgotPassword starts a password reset for the account with the given email
func (h *AccountHandlers) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, err)
		return
	}
	if err := h.accounts.InitiatePasswordReset(c.Request.Context(), req.Email); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset link sent successfully."})
}

// CheckResetToken reports whether a reset link is still usable
func (h *AccountHandlers) CheckResetToken(c *gin.Context) {
	account, err := h.accounts.ConsumeResetToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "email": account.Email})
}

// ResetPassword stores the new password for a valid reset token
func (h *AccountHandlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, err)
		return
	}
	if err := h.accounts.CompletePasswordReset(c.Request.Context(), c.Param("token"), req.NewPassword, req.ConfirmPassword); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully."})
}

// Profile returns the signed-in account
func (h *AccountHandlers) Profile(c *gin.Context) {
	principal, ok := middleware.CurrentAccount(c)
	if !ok {
		respond.Error(c, domain.ErrUnauthorized)
		return
	}
	account, err := h.accounts.GetProfile(c.Request.Context(), principal.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, account.Public())
}

// ListProfiles returns the directory view of every account
func (h *AccountHandlers) ListProfiles(c *gin.Context) {
	accounts, err := h.accounts.ListProfiles(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	profiles := make([]domain.PublicProfile, 0, len(accounts))
	for _, account := range accounts {
		profiles = append(profiles, account.Public().Directory())
	}
	c.JSON(http.StatusOK, profiles)
}

// GetAccount returns any account by id; routed behind the admin policy
func (h *AccountHandlers) GetAccount(c *gin.Context) {
	account, err := h.accounts.GetProfile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": account.Public()})
}

// UpdatePassword changes the signed-in account's password
func (h *AccountHandlers) UpdatePassword(c *gin.Context) {
	principal, ok := middleware.CurrentAccount(c)
	if !ok {
		respond.Error(c, domain.ErrUnauthorized)
		return
	}
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, err)
		return
	}
	if err := h.accounts.UpdatePassword(c.Request.Context(), principal.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully."})
}

// DeleteOwnAccount deletes the signed-in account
func (h *AccountHandlers) DeleteOwnAccount(c *gin.Context) {
	principal, ok := middleware.CurrentAccount(c)
	if !ok {
		respond.Error(c, domain.ErrUnauthorized)
		return
	}
	h.deleteAccount(c, principal.ID, principal.ID)
}

// DeleteAccount deletes the account named in the path; the service refuses anyone but its owner
func (h *AccountHandlers) DeleteAccount(c *gin.Context) {
	principal, ok := middleware.CurrentAccount(c)
	if !ok {
		respond.Error(c, domain.ErrUnauthorized)
		return
	}
	h.deleteAccount(c, principal.ID, c.Param("userId"))
}

func (h *AccountHandlers) deleteAccount(c *gin.Context, principalID, targetID string) {
	if err := h.accounts.DeleteAccount(c.Request.Context(), principalID, targetID); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User account deleted successfully."})
}
