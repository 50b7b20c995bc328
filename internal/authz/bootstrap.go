package authz

import (
	"fmt"

	"github.com/bookcart-next/internal/constants"
	"github.com/bookcart-next/internal/logger"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
// 父角色需排在子角色之前
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleUser,
			Policies: []Policy{
				{Object: "/cart", Action: "GET"},
				{Object: "/cart", Action: "DELETE"},
				{Object: "/cart/items", Action: "POST"},
				{Object: "/cart/items/:id", Action: "PUT"},
				{Object: "/cart/items/:id", Action: "DELETE"},
				{Object: "/cart/checkout", Action: "POST"},
			},
		},
		{
			Role:     constants.RoleCoach,
			Inherits: []string{constants.RoleUser},
		},
		{
			Role:     constants.RoleAdmin,
			Inherits: []string{constants.RoleUser},
			Policies: []Policy{
				{Object: "/admin/users/:id/cart", Action: "GET"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		if _, err := s.EnsureRole(seed.Role); err != nil {
			return fmt.Errorf("create builtin role failed: %w", err)
		}
		for _, parent := range seed.Inherits {
			if err := s.InheritRole(seed.Role, parent); err != nil {
				return err
			}
		}
		for _, policy := range seed.Policies {
			if NormalizeAction(policy.Action) == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if err := s.GrantRolePolicy(seed.Role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
		if err := s.pruneBuiltinPolicies(seed); err != nil {
			return err
		}
	}
	return s.verifyBuiltinRoles()
}

// pruneBuiltinPolicies 撤销库中残留、已不在预置矩阵内的直连策略
func (s *Service) pruneBuiltinPolicies(seed RoleSeed) error {
	want := make(map[string]struct{}, len(seed.Policies))
	for _, policy := range seed.Policies {
		want[NormalizeObject(policy.Object)+" "+NormalizeAction(policy.Action)] = struct{}{}
	}
	current, err := s.GetRolePolicies(seed.Role)
	if err != nil {
		return err
	}
	for _, policy := range current {
		if _, ok := want[policy.Object+" "+policy.Action]; ok {
			continue
		}
		if err := s.RevokeRolePolicy(seed.Role, policy.Object, policy.Action); err != nil {
			return err
		}
		logger.Infow("authz_builtin_policy_revoked",
			"role", policy.Subject,
			"object", policy.Object,
			"action", policy.Action,
		)
	}
	return nil
}

func (s *Service) verifyBuiltinRoles() error {
	roles, err := s.ListRoles()
	if err != nil {
		return err
	}
	existing := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		existing[role] = struct{}{}
	}
	for _, seed := range BuiltinRoleSeeds() {
		normalized, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}
		if _, ok := existing[normalized]; !ok {
			return fmt.Errorf("builtin role %s missing after bootstrap", normalized)
		}
	}
	return nil
}
