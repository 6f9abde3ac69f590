package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// DefaultModel is used when no model file is configured
const DefaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// DefaultPolicies grant the built-in roles access to the protected account routes.
// role_owner applies only when an ownership rule matched the request.
var DefaultPolicies = [][]string{
	{"role_user", "/users/profile", "GET"},
	{"role_user", "/users/all", "GET"},
	{"role_user", "/users/update-password", "PUT"},
	{"role_user", "/users/delete-account", "DELETE"},
	{"role_owner", "/users/:userId", "DELETE"},
	{"role_admin", "/users/*", ".*"},
	{"role_admin", "/admin/*", ".*"},
}

type CasbinService struct{ E *casbin.Enforcer }

// NewCasbinService loads the model from modelPath, or DefaultModel when empty, and persists policies through db
func NewCasbinService(db *gorm.DB, modelPath string) (*CasbinService, error) {
	m, err := loadModel(modelPath)
	if err != nil {
		return nil, err
	}
	adp, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("casbin adapter: %w", err)
	}
	E, err := casbin.NewEnforcer(m, adp)
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	if err := E.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("casbin load policy: %w", err)
	}
	return &CasbinService{E}, nil
}

// SeedDefaults installs DefaultPolicies when the policy store is empty and reports how many were added
func (s *CasbinService) SeedDefaults() (int, error) {
	existing, err := s.E.GetPolicy()
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	added := 0
	for _, p := range DefaultPolicies {
		ok, err := s.E.AddPolicy(p[0], p[1], p[2])
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

func loadModel(modelPath string) (model.Model, error) {
	if modelPath == "" {
		return model.NewModelFromString(DefaultModel)
	}
	m, err := model.NewModelFromFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("casbin model %s: %w", modelPath, err)
	}
	return m, nil
}
