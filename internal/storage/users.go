// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/erp-auth/internal/types"
)

var userColumns = []string{
	"id", "organization_id", "role_id", "email", "password_hash", "first_name",
	"last_name", "is_active", "deleted_at", "created_at", "updated_at",
}

type rowScanner interface {
	Scan(...interface{}) error
}

func scanUser(row rowScanner, u *types.User) error {
	return row.Scan(
		&u.ID, &u.OrganizationID, &u.RoleID, &u.Email, &u.PasswordHash, &u.FirstName,
		&u.LastName, &u.IsActive, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt,
	)
}

func prefixed(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}

func (s *Storage) CreateUser(ctx context.Context, u *types.User) (*types.User, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateUser")
	defer span.End()

	id, err := newID()
	if err != nil {
		return nil, err
	}

	var user types.User
	err = scanUser(
		s.insertInto(ctx, "users", map[string]interface{}{
			"id":              id,
			"organization_id": u.OrganizationID,
			"role_id":         u.RoleID,
			"email":           strings.ToLower(u.Email),
			"password_hash":   u.PasswordHash,
			"first_name":      u.FirstName,
			"last_name":       u.LastName,
			"is_active":       true,
		}).
			Suffix("RETURNING "+strings.Join(userColumns, ", ")).
			QueryRowContext(ctx),
		&user,
	)

	if err != nil {
		return nil, wrapError(err, "failed to insert user")
	}

	return &user, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetUserByID")
	defer span.End()

	var user types.User
	err := scanUser(
		s.selectFrom(ctx, "users", userColumns...).
			Where(sq.Eq{"id": id}).
			QueryRowContext(ctx),
		&user,
	)

	if err != nil {
		return nil, wrapError(err, "failed to get user")
	}

	return &user, nil
}

// GetUserWithRole loads the user, its role and the role's permission keys.
func (s *Storage) GetUserWithRole(ctx context.Context, id string) (*types.UserWithRole, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetUserWithRole")
	defer span.End()

	var (
		user types.User
		role types.Role
	)

	columns := append(
		prefixed("u", userColumns),
		"r.id", "r.organization_id", "r.name", "r.level", "r.category", "r.is_system", "r.is_system_super_admin",
	)

	err := s.selectFrom(ctx, "users u", columns...).
		Join("roles r ON r.id = u.role_id AND r.organization_id = u.organization_id").
		Where(sq.Eq{"u.id": id}).
		QueryRowContext(ctx).
		Scan(
			&user.ID, &user.OrganizationID, &user.RoleID, &user.Email, &user.PasswordHash, &user.FirstName,
			&user.LastName, &user.IsActive, &user.DeletedAt, &user.CreatedAt, &user.UpdatedAt,
			&role.ID, &role.OrganizationID, &role.Name, &role.Level, &role.Category, &role.IsSystem, &role.IsSystemSuperAdmin,
		)

	if err != nil {
		return nil, wrapError(err, "failed to get user with role")
	}

	permissions, err := s.ListRolePermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(permissions))
	for _, p := range permissions {
		keys = append(keys, p.Key())
	}

	return &types.UserWithRole{User: &user, Role: &role, Permissions: keys}, nil
}

// FindUsersByEmail returns every live user holding the email, oldest first.
// Emails are only unique within an organization, so without a bound tenant
// more than one row may come back.
func (s *Storage) FindUsersByEmail(ctx context.Context, email string) ([]*types.User, error) {
	ctx, span := s.tracer.Start(ctx, "storage.FindUsersByEmail")
	defer span.End()

	rows, err := s.selectFrom(ctx, "users", userColumns...).
		Where(sq.Eq{"email": strings.ToLower(email), "deleted_at": nil}).
		OrderBy("created_at ASC", "id ASC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by email: %w", err)
	}
	defer rows.Close()

	var users []*types.User
	for rows.Next() {
		var u types.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return users, nil
}

func (s *Storage) ListUsers(ctx context.Context, limit, offset uint64) ([]*types.User, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListUsers")
	defer span.End()

	rows, err := s.selectFrom(ctx, "users", userColumns...).
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("created_at ASC").
		Limit(limit).
		Offset(offset).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*types.User, 0)
	for rows.Next() {
		var u types.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return users, nil
}

func (s *Storage) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateUserPassword")
	defer span.End()

	return s.execOne(ctx, "failed to update password",
		s.update(ctx, "users").
			Set("password_hash", passwordHash).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"id": id}),
	)
}

func (s *Storage) SetUserActive(ctx context.Context, id string, active bool) error {
	ctx, span := s.tracer.Start(ctx, "storage.SetUserActive")
	defer span.End()

	return s.execOne(ctx, "failed to update user status",
		s.update(ctx, "users").
			Set("is_active", active).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"id": id, "deleted_at": nil}),
	)
}

func (s *Storage) SoftDeleteUser(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.SoftDeleteUser")
	defer span.End()

	return s.execOne(ctx, "failed to delete user",
		s.update(ctx, "users").
			Set("is_active", false).
			Set("deleted_at", sq.Expr("now()")).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"id": id, "deleted_at": nil}),
	)
}

func (s *Storage) AssignRole(ctx context.Context, userID, roleID string) error {
	ctx, span := s.tracer.Start(ctx, "storage.AssignRole")
	defer span.End()

	return s.execOne(ctx, "failed to assign role",
		s.update(ctx, "users").
			Set("role_id", roleID).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"id": userID, "deleted_at": nil}),
	)
}

// execOne runs a mutation that must hit exactly one row; zero rows means the
// target is missing or belongs to another tenant.
func (s *Storage) execOne(ctx context.Context, op string, q sq.Sqlizer) error {
	var (
		affected int64
		err      error
	)

	switch b := q.(type) {
	case sq.UpdateBuilder:
		affected, err = rowsAffected(b.ExecContext(ctx))
	case sq.DeleteBuilder:
		affected, err = rowsAffected(b.ExecContext(ctx))
	default:
		return fmt.Errorf("%s: unsupported statement %T", op, q)
	}

	if err != nil {
		return wrapError(err, op)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
