package services

import (
	"strings"

	"github.com/casbin/casbin/v2"

	"github.com/you/accountsvc/domain"
)

// CasbinEnforcerWrapper wraps the real Casbin enforcer to implement our interface
type CasbinEnforcerWrapper struct {
	enforcer *casbin.Enforcer
}

// NewCasbinEnforcerWrapper creates a wrapper for the real Casbin enforcer
func NewCasbinEnforcerWrapper(enforcer *casbin.Enforcer) domain.CasbinEnforcer {
	return &CasbinEnforcerWrapper{enforcer: enforcer}
}

func (w *CasbinEnforcerWrapper) AddPolicy(params ...interface{}) (bool, error) {
	return w.enforcer.AddPolicy(params...)
}

func (w *CasbinEnforcerWrapper) RemovePolicy(params ...interface{}) (bool, error) {
	return w.enforcer.RemovePolicy(params...)
}

func (w *CasbinEnforcerWrapper) Enforce(rvals ...interface{}) (bool, error) {
	return w.enforcer.Enforce(rvals...)
}

func (w *CasbinEnforcerWrapper) GetPolicy() ([][]string, error) {
	return w.enforcer.GetPolicy()
}

// PolicyServiceImpl implements domain.PolicyService using Casbin.
// Single policy changes are persisted by the adapter's auto-save.
type PolicyServiceImpl struct {
	enforcer domain.CasbinEnforcer
}

// NewPolicyService creates a new policy service
func NewPolicyService(enforcer *casbin.Enforcer) domain.PolicyService {
	return NewPolicyServiceWithEnforcer(NewCasbinEnforcerWrapper(enforcer))
}

// NewPolicyServiceWithEnforcer creates a new policy service with a CasbinEnforcer interface (for testing)
func NewPolicyServiceWithEnforcer(enforcer domain.CasbinEnforcer) domain.PolicyService {
	return &PolicyServiceImpl{
		enforcer: enforcer,
	}
}

// AddPolicy implements domain.PolicyService
func (p *PolicyServiceImpl) AddPolicy(role, resource, action string) error {
	if err := validatePolicy(role, resource, action); err != nil {
		return err
	}
	if _, err := p.enforcer.AddPolicy(role, resource, action); err != nil {
		return domain.NewInternalError("add policy", err)
	}
	return nil
}

// RemovePolicy implements domain.PolicyService
func (p *PolicyServiceImpl) RemovePolicy(role, resource, action string) error {
	if err := validatePolicy(role, resource, action); err != nil {
		return err
	}
	removed, err := p.enforcer.RemovePolicy(role, resource, action)
	if err != nil {
		return domain.NewInternalError("remove policy", err)
	}
	if !removed {
		return domain.ErrPolicyNotFound
	}
	return nil
}

// CheckPermission implements domain.PolicyService
func (p *PolicyServiceImpl) CheckPermission(role, resource, action string) (bool, error) {
	return p.enforcer.Enforce(role, resource, action)
}

// GetPolicies implements domain.PolicyService
func (p *PolicyServiceImpl) GetPolicies() [][]string {
	policies, _ := p.enforcer.GetPolicy()
	return policies
}

// validatePolicy requires all three parts and a subject in the role_ namespace used by the middleware
func validatePolicy(role, resource, action string) error {
	switch {
	case role == "":
		return domain.NewValidationError("sub", "is required")
	case !strings.HasPrefix(role, "role_"):
		return domain.NewValidationError("sub", "must start with role_")
	case resource == "":
		return domain.NewValidationError("obj", "is required")
	case action == "":
		return domain.NewValidationError("act", "is required")
	}
	return nil
}
