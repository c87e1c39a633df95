// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/erp-auth/internal/types"
)

func (s *Storage) CreateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateOrganization")
	defer span.End()

	id, err := newID()
	if err != nil {
		return nil, err
	}

	var org types.Organization
	err = s.insertInto(ctx, "organizations", map[string]interface{}{
		"id":        id,
		"name":      o.Name,
		"slug":      o.Slug,
		"is_active": true,
	}).
		Suffix("RETURNING id, name, slug, is_active, created_at").
		QueryRowContext(ctx).
		Scan(&org.ID, &org.Name, &org.Slug, &org.IsActive, &org.CreatedAt)

	if err != nil {
		return nil, wrapError(err, "failed to insert organization")
	}

	return &org, nil
}

func (s *Storage) GetOrganization(ctx context.Context, id string) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetOrganization")
	defer span.End()

	var org types.Organization
	err := s.selectFrom(ctx, "organizations", "id", "name", "slug", "is_active", "created_at").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&org.ID, &org.Name, &org.Slug, &org.IsActive, &org.CreatedAt)

	if err != nil {
		return nil, wrapError(err, "failed to get organization")
	}

	return &org, nil
}
