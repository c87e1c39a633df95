// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package roles

import (
	"context"
	"net/http"

	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/types"
	"github.com/canonical/erp-auth/pkg/audit"
)

type StorageInterface interface {
	ListRoles(context.Context) ([]*types.Role, error)
	GetRole(context.Context, string) (*types.Role, error)
	CreateRole(context.Context, *types.Role) (*types.Role, error)
	UpdateRole(context.Context, *types.Role) error
	DeleteRole(context.Context, string) error
	SetRolePermissions(context.Context, string, []string) error
	ListRolePermissions(context.Context, string) ([]*types.Permission, error)
	ListPermissions(context.Context) ([]*types.Permission, error)
	CreatePermission(context.Context, *types.Permission) (*types.Permission, error)
	DeletePermission(context.Context, string) error
}

type ServiceInterface interface {
	ListRoles(context.Context) ([]*RoleView, error)
	CreateRole(context.Context, *identity.Identity, *RoleRequest) (*RoleView, error)
	UpdateRole(context.Context, *identity.Identity, string, *RoleRequest) (*RoleView, error)
	DeleteRole(context.Context, *identity.Identity, string) error
	SetPermissions(context.Context, *identity.Identity, string, []string) (*RoleView, error)
	ListPermissions(context.Context) ([]*types.Permission, error)
	CreatePermission(context.Context, *identity.Identity, *PermissionRequest) (*types.Permission, error)
	DeletePermission(context.Context, *identity.Identity, string) error
}

type AuditorInterface interface {
	Log(context.Context, audit.Entry)
}

type GuardsInterface interface {
	RoleAdmin(http.Handler) http.Handler
	SuperAdmin(http.Handler) http.Handler
}
