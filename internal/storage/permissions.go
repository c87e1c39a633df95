// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/erp-auth/internal/types"
)

func scanPermissions(rows *sql.Rows) ([]*types.Permission, error) {
	permissions := make([]*types.Permission, 0)
	for rows.Next() {
		var p types.Permission
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return permissions, nil
}

func (s *Storage) CreatePermission(ctx context.Context, p *types.Permission) (*types.Permission, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreatePermission")
	defer span.End()

	id, err := newID()
	if err != nil {
		return nil, err
	}

	var perm types.Permission
	err = s.insertInto(ctx, "permissions", map[string]interface{}{
		"id":          id,
		"resource":    p.Resource,
		"action":      p.Action,
		"description": p.Description,
	}).
		Suffix("RETURNING id, resource, action, description, created_at").
		QueryRowContext(ctx).
		Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Description, &perm.CreatedAt)

	if err != nil {
		return nil, wrapError(err, "failed to insert permission")
	}

	return &perm, nil
}

func (s *Storage) ListPermissions(ctx context.Context) ([]*types.Permission, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListPermissions")
	defer span.End()

	rows, err := s.selectFrom(ctx, "permissions", "id", "resource", "action", "description", "created_at").
		OrderBy("resource ASC", "action ASC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

// DeletePermission fails with ErrForeignKeyViolation while any role still
// references the permission.
func (s *Storage) DeletePermission(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.DeletePermission")
	defer span.End()

	return s.execOne(ctx, "failed to delete permission",
		s.deleteFrom(ctx, "permissions").Where(sq.Eq{"id": id}),
	)
}
