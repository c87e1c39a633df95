// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"time"

	"github.com/canonical/erp-auth/internal/types"
)

type StorageInterface interface {
	WithTx(context.Context, func(context.Context) error) error

	CreateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error)
	GetOrganization(ctx context.Context, id string) (*types.Organization, error)

	CreateUser(ctx context.Context, u *types.User) (*types.User, error)
	GetUserByID(ctx context.Context, id string) (*types.User, error)
	GetUserWithRole(ctx context.Context, id string) (*types.UserWithRole, error)
	FindUsersByEmail(ctx context.Context, email string) ([]*types.User, error)
	ListUsers(ctx context.Context, limit, offset uint64) ([]*types.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	SetUserActive(ctx context.Context, id string, active bool) error
	SoftDeleteUser(ctx context.Context, id string) error
	AssignRole(ctx context.Context, userID, roleID string) error

	CreateRole(ctx context.Context, r *types.Role) (*types.Role, error)
	GetRole(ctx context.Context, id string) (*types.Role, error)
	ListRoles(ctx context.Context) ([]*types.Role, error)
	UpdateRole(ctx context.Context, r *types.Role) error
	DeleteRole(ctx context.Context, id string) error
	SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	ListRolePermissions(ctx context.Context, roleID string) ([]*types.Permission, error)

	CreatePermission(ctx context.Context, p *types.Permission) (*types.Permission, error)
	ListPermissions(ctx context.Context) ([]*types.Permission, error)
	DeletePermission(ctx context.Context, id string) error

	CreateSession(ctx context.Context, s *types.Session) (*types.Session, error)
	UpdateSessionToken(ctx context.Context, id, tokenHash string) error
	FindSessionByID(ctx context.Context, id string) (*types.Session, error)
	ConsumeSession(ctx context.Context, id, tokenHash string) (bool, error)
	SetSessionReplacement(ctx context.Context, id, replacedBy string) error
	RevokeSession(ctx context.Context, id string) error
	RevokeAllUserSessions(ctx context.Context, userID string) (int64, error)

	CreateResetToken(ctx context.Context, t *types.PasswordResetToken) (*types.PasswordResetToken, error)
	DeleteUnusedResetTokens(ctx context.Context, userID string) error
	ListResetTokens(ctx context.Context, userID string) ([]*types.PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, id string) (bool, error)

	CreateAPIKey(ctx context.Context, k *types.APIKey) (*types.APIKey, error)
	FindAPIKeysByPrefix(ctx context.Context, prefix string) ([]*types.APIKey, error)
	ListAPIKeys(ctx context.Context, limit, offset uint64) ([]*types.APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
	TouchAPIKey(ctx context.Context, id string, at time.Time) error

	CreateAuditLog(ctx context.Context, e *types.AuditLog) error
	ListAuditLogs(ctx context.Context, filter types.AuditFilter) ([]*types.AuditLog, error)
}
