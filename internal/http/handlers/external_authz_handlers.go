package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/you/accountsvc/domain"
)

// ExternalAuthzHandlers lets sibling services delegate session checks to this service
// through an Envoy ext_authz style call.
type ExternalAuthzHandlers struct {
	accounts domain.AccountService
	enforcer domain.CasbinEnforcer
}

// NewExternalAuthzHandlers creates new external authorization handlers
func NewExternalAuthzHandlers(accounts domain.AccountService, enforcer domain.CasbinEnforcer) *ExternalAuthzHandlers {
	return &ExternalAuthzHandlers{accounts: accounts, enforcer: enforcer}
}

// EnvoyHTTPRequest is the upstream request being authorized
type EnvoyHTTPRequest struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
}

// EnvoyRequest represents the request format sent by Envoy ext_authz
type EnvoyRequest struct {
	Attributes struct {
		Request struct {
			HTTP EnvoyHTTPRequest `json:"http"`
		} `json:"request"`
	} `json:"attributes"`
}

// AuthzStatus carries the decision code
type AuthzStatus struct {
	Code int `json:"code"`
}

// AuthzResponse represents the response format for Envoy
type AuthzResponse struct {
	Status  AuthzStatus       `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// Authorize resolves the upstream bearer token to an account and checks its role against the upstream path
func (h *ExternalAuthzHandlers) Authorize(c *gin.Context) {
	var envoyReq EnvoyRequest
	if err := c.ShouldBindJSON(&envoyReq); err != nil {
		h.respond(c, http.StatusBadRequest, "invalid request format")
		return
	}
	upstream := envoyReq.Attributes.Request.HTTP

	authHeader := headerValue(upstream.Headers, "authorization")
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		h.respond(c, http.StatusUnauthorized, "authorization header required")
		return
	}

	account, err := h.accounts.AuthenticateSession(c.Request.Context(), token)
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.respond(c, http.StatusInternalServerError, "session check failed")
			return
		}
		h.respond(c, http.StatusUnauthorized, "session invalid")
		return
	}

	path, _, _ := strings.Cut(upstream.Path, "?")
	allowed, err := h.enforcer.Enforce("role_"+account.Role, path, upstream.Method)
	if err != nil {
		h.respond(c, http.StatusInternalServerError, "authorization check failed")
		return
	}
	if !allowed {
		h.respond(c, http.StatusForbidden, "access denied")
		return
	}

	c.JSON(http.StatusOK, AuthzResponse{
		Status: AuthzStatus{Code: http.StatusOK},
		Headers: map[string]string{
			"x-user-id":   account.ID,
			"x-user-role": account.Role,
		},
	})
}

// Health handles health check requests from Envoy
func (h *ExternalAuthzHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "external-authz",
	})
}

func (h *ExternalAuthzHandlers) respond(c *gin.Context, code int, message string) {
	c.JSON(code, AuthzResponse{
		Status: AuthzStatus{Code: code},
		Body:   message,
	})
}

// headerValue looks name up case-insensitively; Envoy lowercases header names but callers may not
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
