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

var roleColumns = []string{
	"id", "organization_id", "name", "description", "level", "category", "is_system", "is_system_super_admin", "created_at",
}

func scanRole(row rowScanner, r *types.Role) error {
	return row.Scan(&r.ID, &r.OrganizationID, &r.Name, &r.Description, &r.Level, &r.Category, &r.IsSystem, &r.IsSystemSuperAdmin, &r.CreatedAt)
}

func (s *Storage) CreateRole(ctx context.Context, r *types.Role) (*types.Role, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateRole")
	defer span.End()

	id, err := newID()
	if err != nil {
		return nil, err
	}

	var role types.Role
	err = scanRole(
		s.insertInto(ctx, "roles", map[string]interface{}{
			"id":                    id,
			"organization_id":       r.OrganizationID,
			"name":                  r.Name,
			"description":           r.Description,
			"level":                 r.Level,
			"category":              r.Category,
			"is_system":             r.IsSystem,
			"is_system_super_admin": r.IsSystemSuperAdmin,
		}).
			Suffix("RETURNING id, organization_id, name, description, level, category, is_system, is_system_super_admin, created_at").
			QueryRowContext(ctx),
		&role,
	)

	if err != nil {
		return nil, wrapError(err, "failed to insert role")
	}

	return &role, nil
}

func (s *Storage) GetRole(ctx context.Context, id string) (*types.Role, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetRole")
	defer span.End()

	var role types.Role
	err := scanRole(
		s.selectFrom(ctx, "roles", roleColumns...).
			Where(sq.Eq{"id": id}).
			QueryRowContext(ctx),
		&role,
	)

	if err != nil {
		return nil, wrapError(err, "failed to get role")
	}

	return &role, nil
}

func (s *Storage) ListRoles(ctx context.Context) ([]*types.Role, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListRoles")
	defer span.End()

	rows, err := s.selectFrom(ctx, "roles", roleColumns...).
		OrderBy("level DESC", "name ASC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]*types.Role, 0)
	for rows.Next() {
		var r types.Role
		if err := scanRole(rows, &r); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return roles, nil
}

// UpdateRole rewrites the mutable fields. System roles are only matched when
// level and category stay as stored, so they cannot be demoted.
func (s *Storage) UpdateRole(ctx context.Context, r *types.Role) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateRole")
	defer span.End()

	return s.execOne(ctx, "failed to update role",
		s.update(ctx, "roles").
			Set("name", r.Name).
			Set("description", r.Description).
			Set("level", r.Level).
			Set("category", r.Category).
			Where(sq.Eq{"id": r.ID}).
			Where(sq.Or{
				sq.Eq{"is_system": false},
				sq.And{sq.Eq{"level": r.Level}, sq.Eq{"category": r.Category}},
			}),
	)
}

func (s *Storage) DeleteRole(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteRole")
	defer span.End()

	return s.execOne(ctx, "failed to delete role",
		s.deleteFrom(ctx, "roles").
			Where(sq.Eq{"id": id, "is_system": false}),
	)
}

// SetRolePermissions replaces the role's grants. The role is looked up
// through the tenant scope first since role_permissions itself is global.
func (s *Storage) SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	ctx, span := s.tracer.Start(ctx, "storage.SetRolePermissions")
	defer span.End()

	return s.db.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.GetRole(ctx, roleID); err != nil {
			return err
		}

		if _, err := s.deleteFrom(ctx, "role_permissions").
			Where(sq.Eq{"role_id": roleID}).
			ExecContext(ctx); err != nil {
			return wrapError(err, "failed to clear role permissions")
		}

		if len(permissionIDs) == 0 {
			return nil
		}

		q := s.sb(ctx).Insert("role_permissions").Columns("role_id", "permission_id")
		for _, pid := range permissionIDs {
			q = q.Values(roleID, pid)
		}

		if _, err := q.ExecContext(ctx); err != nil {
			return wrapError(err, "failed to grant role permissions")
		}

		return nil
	})
}

func (s *Storage) ListRolePermissions(ctx context.Context, roleID string) ([]*types.Permission, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListRolePermissions")
	defer span.End()

	rows, err := s.selectFrom(ctx, "permissions p", "p.id", "p.resource", "p.action", "p.description", "p.created_at").
		Join("role_permissions rp ON rp.permission_id = p.id").
		Where(sq.Eq{"rp.role_id": roleID}).
		OrderBy("p.resource ASC", "p.action ASC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

// GrantPermissionKeys adds the catalogue permissions matching keys to the
// role. Keys missing from the catalogue are skipped.
func (s *Storage) GrantPermissionKeys(ctx context.Context, roleID string, keys []string) error {
	ctx, span := s.tracer.Start(ctx, "storage.GrantPermissionKeys")
	defer span.End()

	if len(keys) == 0 {
		return nil
	}

	match := sq.Or{}
	for _, key := range keys {
		resource, action, _ := strings.Cut(key, ":")
		match = append(match, sq.Eq{"resource": resource, "action": action})
	}

	catalogue := sq.Select().
		Column("CAST(? AS uuid)", roleID).
		Column("id").
		From("permissions").
		Where(match)

	_, err := s.sb(ctx).Insert("role_permissions").
		Columns("role_id", "permission_id").
		Select(catalogue).
		Suffix("ON CONFLICT DO NOTHING").
		ExecContext(ctx)
	if err != nil {
		return wrapError(err, "failed to grant role permissions")
	}

	return nil
}
