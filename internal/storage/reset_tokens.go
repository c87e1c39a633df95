// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/erp-auth/internal/types"
)

func (s *Storage) CreateResetToken(ctx context.Context, t *types.PasswordResetToken) (*types.PasswordResetToken, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateResetToken")
	defer span.End()

	id, err := newID()
	if err != nil {
		return nil, err
	}

	var token types.PasswordResetToken
	err = s.insertInto(ctx, "password_reset_tokens", map[string]interface{}{
		"id":         id,
		"user_id":    t.UserID,
		"token_hash": t.TokenHash,
		"used":       false,
		"expires_at": t.ExpiresAt,
	}).
		Suffix("RETURNING id, user_id, token_hash, used, expires_at, created_at").
		QueryRowContext(ctx).
		Scan(&token.ID, &token.UserID, &token.TokenHash, &token.Used, &token.ExpiresAt, &token.CreatedAt)

	if err != nil {
		return nil, wrapError(err, "failed to insert reset token")
	}

	return &token, nil
}

func (s *Storage) DeleteUnusedResetTokens(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteUnusedResetTokens")
	defer span.End()

	_, err := s.deleteFrom(ctx, "password_reset_tokens").
		Where(sq.Eq{"user_id": userID, "used": false}).
		ExecContext(ctx)

	return wrapError(err, "failed to delete reset tokens")
}

func (s *Storage) ListResetTokens(ctx context.Context, userID string) ([]*types.PasswordResetToken, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListResetTokens")
	defer span.End()

	rows, err := s.selectFrom(ctx, "password_reset_tokens", "id", "user_id", "token_hash", "used", "expires_at", "created_at").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reset tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]*types.PasswordResetToken, 0)
	for rows.Next() {
		var t types.PasswordResetToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Used, &t.ExpiresAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reset token: %w", err)
		}
		tokens = append(tokens, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tokens, nil
}

// MarkResetTokenUsed flips the used flag once; false means another caller
// got there first.
func (s *Storage) MarkResetTokenUsed(ctx context.Context, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.MarkResetTokenUsed")
	defer span.End()

	affected, err := rowsAffected(
		s.update(ctx, "password_reset_tokens").
			Set("used", true).
			Where(sq.Eq{"id": id, "used": false}).
			ExecContext(ctx),
	)
	if err != nil {
		return false, wrapError(err, "failed to mark reset token used")
	}

	return affected == 1, nil
}
