package authz

import (
	"fmt"

	"github.com/shipline-next/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵。
// 路由级门禁只圈定角色可触达的接口，状态流转的细粒度约束在服务层判定。
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "field_staff_base",
			Policies: []Policy{
				{Object: "/ops/me", Action: "GET"},
				{Object: "/ops/overview", Action: "GET"},
				{Object: "/ops/jobs", Action: "GET"},
				{Object: "/ops/jobs/:id", Action: "GET"},
				{Object: "/ops/jobs/:id/timeline", Action: "GET"},
				{Object: "/ops/jobs/:id/next-statuses", Action: "GET"},
				{Object: "/ops/jobs/:id/transition", Action: "POST"},
			},
		},
		{
			Role:     constants.RoleDriver,
			Inherits: []string{"field_staff_base"},
		},
		{
			Role:     constants.RoleDeliveryAgent,
			Inherits: []string{"field_staff_base"},
		},
		{
			Role:     constants.RoleWarehouse,
			Inherits: []string{"field_staff_base"},
			Policies: []Policy{
				{Object: "/ops/batches", Action: "*"},
				{Object: "/ops/batches/:id", Action: "*"},
				{Object: "/ops/batches/:id/promote", Action: "POST"},
				{Object: "/ops/batches/:id/jobs", Action: "*"},
			},
		},
		{
			Role: constants.RoleFinance,
			Policies: []Policy{
				{Object: "/ops/me", Action: "GET"},
				{Object: "/ops/overview", Action: "GET"},
				{Object: "/ops/jobs", Action: "GET"},
				{Object: "/ops/jobs/:id", Action: "GET"},
				{Object: "/ops/jobs/:id/timeline", Action: "GET"},
				{Object: "/ops/jobs/:id/invoice", Action: "GET"},
				{Object: "/ops/jobs/:id/payments", Action: "POST"},
				{Object: "/ops/payments", Action: "GET"},
				{Object: "/ops/batches", Action: "GET"},
				{Object: "/ops/batches/:id", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleCustomerService,
			Inherits: []string{"field_staff_base"},
			Policies: []Policy{
				{Object: "/ops/jobs", Action: "POST"},
				{Object: "/ops/batches", Action: "GET"},
				{Object: "/ops/batches/:id", Action: "GET"},
			},
		},
		{
			Role: constants.RoleAdmin,
			Policies: []Policy{
				{Object: "/ops/*", Action: "*"},
			},
		},
		{
			Role: constants.RoleSuperadmin,
			Policies: []Policy{
				{Object: "/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	changed := false
	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}

		exists, err := s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
		if err != nil {
			return fmt.Errorf("check builtin role failed: %w", err)
		}
		if !exists {
			added, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor)
			if err != nil {
				return fmt.Errorf("create builtin role failed: %w", err)
			}
			if added {
				changed = true
			}
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			added, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole)
			if err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
			if added {
				changed = true
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			added, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action)
			if err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
			if added {
				changed = true
			}
		}
	}

	if changed {
		return s.saveAndReload()
	}
	return nil
}
