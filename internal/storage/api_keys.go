// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/erp-auth/internal/types"
)

var apiKeyColumns = []string{
	"id", "organization_id", "user_id", "name", "prefix", "key_hash", "scopes", "last_used_at", "expires_at", "revoked_at", "created_at",
}

func scanAPIKey(row rowScanner, k *types.APIKey) error {
	var scopes []byte
	if err := row.Scan(&k.ID, &k.OrganizationID, &k.UserID, &k.Name, &k.Prefix, &k.KeyHash, &scopes, &k.LastUsedAt, &k.ExpiresAt, &k.RevokedAt, &k.CreatedAt); err != nil {
		return err
	}

	k.Scopes = []string{}
	if len(scopes) == 0 {
		return nil
	}
	return json.Unmarshal(scopes, &k.Scopes)
}

func (s *Storage) CreateAPIKey(ctx context.Context, k *types.APIKey) (*types.APIKey, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateAPIKey")
	defer span.End()

	id, err := newID()
	if err != nil {
		return nil, err
	}

	scopes, err := json.Marshal(k.Scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scopes: %w", err)
	}

	var key types.APIKey
	err = scanAPIKey(
		s.insertInto(ctx, "api_keys", map[string]interface{}{
			"id":              id,
			"organization_id": k.OrganizationID,
			"user_id":         k.UserID,
			"name":            k.Name,
			"prefix":          k.Prefix,
			"key_hash":        k.KeyHash,
			"scopes":          string(scopes),
			"expires_at":      k.ExpiresAt,
		}).
			Suffix("RETURNING "+strings.Join(apiKeyColumns, ", ")).
			QueryRowContext(ctx),
		&key,
	)

	if err != nil {
		return nil, wrapError(err, "failed to insert api key")
	}

	return &key, nil
}

// FindAPIKeysByPrefix returns the unrevoked candidates sharing prefix.
func (s *Storage) FindAPIKeysByPrefix(ctx context.Context, prefix string) ([]*types.APIKey, error) {
	ctx, span := s.tracer.Start(ctx, "storage.FindAPIKeysByPrefix")
	defer span.End()

	return s.listAPIKeys(ctx,
		s.selectFrom(ctx, "api_keys", apiKeyColumns...).
			Where(sq.Eq{"prefix": prefix, "revoked_at": nil}),
	)
}

func (s *Storage) ListAPIKeys(ctx context.Context, limit, offset uint64) ([]*types.APIKey, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListAPIKeys")
	defer span.End()

	return s.listAPIKeys(ctx,
		s.selectFrom(ctx, "api_keys", apiKeyColumns...).
			OrderBy("created_at DESC").
			Limit(limit).
			Offset(offset),
	)
}

func (s *Storage) listAPIKeys(ctx context.Context, q sq.SelectBuilder) ([]*types.APIKey, error) {
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*types.APIKey, 0)
	for rows.Next() {
		var k types.APIKey
		if err := scanAPIKey(rows, &k); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, &k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return keys, nil
}

func (s *Storage) RevokeAPIKey(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.RevokeAPIKey")
	defer span.End()

	return s.execOne(ctx, "failed to revoke api key",
		s.update(ctx, "api_keys").
			Set("revoked_at", sq.Expr("now()")).
			Where(sq.Eq{"id": id, "revoked_at": nil}),
	)
}

func (s *Storage) TouchAPIKey(ctx context.Context, id string, at time.Time) error {
	ctx, span := s.tracer.Start(ctx, "storage.TouchAPIKey")
	defer span.End()

	_, err := s.update(ctx, "api_keys").
		Set("last_used_at", at).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)

	return wrapError(err, "failed to update api key usage")
}
