// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"context"

	"github.com/canonical/erp-auth/internal/types"
)

type EvaluatorInterface interface {
	HasPermissions(context.Context, string, []string) (bool, error)
	HasAdvancedPermission(context.Context, string, AdvancedPermission, string, []string) (bool, error)
	HasFinancialAccess(context.Context, string) (bool, error)
	HasMinimumRoleLevel(context.Context, string, int) (bool, error)
	HasRoleCategory(context.Context, string, []string) (bool, error)
}

type StorageInterface interface {
	// GetUserWithRole loads the user, its role and the role's permission keys
	GetUserWithRole(context.Context, string) (*types.UserWithRole, error)
}
