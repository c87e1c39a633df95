// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package roles

import (
	"github.com/canonical/erp-auth/internal/types"
)

type RoleRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	Level       int    `json:"level" validate:"min=0,max=100"`
	Category    string `json:"category" validate:"required,max=50"`
}

type SetPermissionsRequest struct {
	PermissionIDs []string `json:"permissionIds" validate:"required,dive,required"`
}

type PermissionRequest struct {
	Resource    string `json:"resource" validate:"required,max=100"`
	Action      string `json:"action" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// RoleView is a role with the keys of the permissions it grants.
type RoleView struct {
	*types.Role
	Permissions []string `json:"permissions"`
}

func newRoleView(r *types.Role, perms []*types.Permission) *RoleView {
	keys := make([]string, 0, len(perms))
	for _, p := range perms {
		keys = append(keys, p.Key())
	}
	return &RoleView{Role: r, Permissions: keys}
}
