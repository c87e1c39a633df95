// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"github.com/canonical/erp-auth/internal/identity"
)

// RolePolicy is the one place role names are mapped to capabilities. It is
// built once from configuration and shared by the evaluator and the guards.
type RolePolicy struct {
	financial map[string]struct{}
	executive map[string]struct{}
	roleAdmin map[string]struct{}
}

func (p *RolePolicy) IsFinancial(roleName string, superAdmin bool) bool {
	return superAdmin || contains(p.financial, roleName)
}

func (p *RolePolicy) IsExecutive(roleName string, superAdmin bool) bool {
	return superAdmin || contains(p.executive, roleName)
}

// IsRoleAdmin gates role and permission management.
func (p *RolePolicy) IsRoleAdmin(roleName string, superAdmin bool) bool {
	return superAdmin || contains(p.roleAdmin, roleName)
}

func contains(set map[string]struct{}, name string) bool {
	_, ok := set[identity.NormalizeRoleName(name)]
	return ok
}

func roleSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n := identity.NormalizeRoleName(n); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func NewRolePolicy(financial, executive, roleAdmin []string) *RolePolicy {
	return &RolePolicy{
		financial: roleSet(financial),
		executive: roleSet(executive),
		roleAdmin: roleSet(roleAdmin),
	}
}
