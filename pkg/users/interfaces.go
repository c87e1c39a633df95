// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package users

import (
	"context"
	"net/http"

	"github.com/canonical/erp-auth/internal/authorization"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/types"
	"github.com/canonical/erp-auth/pkg/audit"
)

type StorageInterface interface {
	WithTx(context.Context, func(context.Context) error) error
	ListUsers(context.Context, uint64, uint64) ([]*types.User, error)
	GetUserByID(context.Context, string) (*types.User, error)
	GetUserWithRole(context.Context, string) (*types.UserWithRole, error)
	SetUserActive(context.Context, string, bool) error
	SoftDeleteUser(context.Context, string) error
	AssignRole(context.Context, string, string) error
	GetRole(context.Context, string) (*types.Role, error)
	RevokeAllUserSessions(context.Context, string) (int64, error)
}

type ServiceInterface interface {
	List(context.Context, uint64, uint64) ([]*types.User, error)
	Get(context.Context, string) (*types.User, error)
	Deactivate(context.Context, *identity.Identity, string) error
	Delete(context.Context, *identity.Identity, string) error
	AssignRole(context.Context, *identity.Identity, string, string) (*types.User, error)
}

type AuditorInterface interface {
	Log(context.Context, audit.Entry)
}

type GuardsInterface interface {
	Require(authorization.Requirement) func(http.Handler) http.Handler
}
