// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/erp-auth/internal/types"
)

var sessionColumns = []string{
	"id", "user_id", "refresh_token_hash", "user_agent", "ip_address", "is_valid", "expires_at", "replaced_by", "revoked_at", "created_at",
}

func scanSession(row rowScanner, ss *types.Session) error {
	return row.Scan(&ss.ID, &ss.UserID, &ss.RefreshTokenHash, &ss.UserAgent, &ss.IPAddress, &ss.IsValid, &ss.ExpiresAt, &ss.ReplacedBy, &ss.RevokedAt, &ss.CreatedAt)
}

func (s *Storage) CreateSession(ctx context.Context, in *types.Session) (*types.Session, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateSession")
	defer span.End()

	id, err := newID()
	if err != nil {
		return nil, err
	}

	hash := in.RefreshTokenHash
	if hash == "" {
		hash = types.PendingTokenHash
	}

	var session types.Session
	err = scanSession(
		s.insertInto(ctx, "sessions", map[string]interface{}{
			"id":                 id,
			"user_id":            in.UserID,
			"refresh_token_hash": hash,
			"user_agent":         in.UserAgent,
			"ip_address":         in.IPAddress,
			"is_valid":           true,
			"expires_at":         in.ExpiresAt,
		}).
			Suffix("RETURNING id, user_id, refresh_token_hash, user_agent, ip_address, is_valid, expires_at, replaced_by, revoked_at, created_at").
			QueryRowContext(ctx),
		&session,
	)

	if err != nil {
		return nil, wrapError(err, "failed to insert session")
	}

	return &session, nil
}

// UpdateSessionToken stores the hash of the refresh token issued for a
// still valid session.
func (s *Storage) UpdateSessionToken(ctx context.Context, id, tokenHash string) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateSessionToken")
	defer span.End()

	return s.execOne(ctx, "failed to update session token",
		s.update(ctx, "sessions").
			Set("refresh_token_hash", tokenHash).
			Where(sq.Eq{"id": id, "is_valid": true}),
	)
}

func (s *Storage) FindSessionByID(ctx context.Context, id string) (*types.Session, error) {
	ctx, span := s.tracer.Start(ctx, "storage.FindSessionByID")
	defer span.End()

	var session types.Session
	err := scanSession(
		s.selectFrom(ctx, "sessions", sessionColumns...).
			Where(sq.Eq{"id": id}).
			QueryRowContext(ctx),
		&session,
	)

	if err != nil {
		return nil, wrapError(err, "failed to get session")
	}

	return &session, nil
}

// ConsumeSession invalidates the session only if it is still valid, unexpired
// and holds tokenHash, in a single statement. Exactly one of any number of
// concurrent callers presenting the same hash gets true.
func (s *Storage) ConsumeSession(ctx context.Context, id, tokenHash string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ConsumeSession")
	defer span.End()

	affected, err := rowsAffected(
		s.update(ctx, "sessions").
			Set("is_valid", false).
			Set("revoked_at", sq.Expr("now()")).
			Where(sq.Eq{"id": id, "is_valid": true, "refresh_token_hash": tokenHash}).
			Where("expires_at > now()").
			ExecContext(ctx),
	)
	if err != nil {
		return false, wrapError(err, "failed to consume session")
	}

	return affected == 1, nil
}

func (s *Storage) SetSessionReplacement(ctx context.Context, id, replacedBy string) error {
	ctx, span := s.tracer.Start(ctx, "storage.SetSessionReplacement")
	defer span.End()

	return s.execOne(ctx, "failed to link session lineage",
		s.update(ctx, "sessions").
			Set("replaced_by", replacedBy).
			Where(sq.Eq{"id": id}),
	)
}

// RevokeSession marks the session invalid. Revoking an already revoked
// session is not an error.
func (s *Storage) RevokeSession(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.RevokeSession")
	defer span.End()

	_, err := s.update(ctx, "sessions").
		Set("is_valid", false).
		Set("revoked_at", sq.Expr("COALESCE(revoked_at, now())")).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)

	return wrapError(err, "failed to revoke session")
}

func (s *Storage) RevokeAllUserSessions(ctx context.Context, userID string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "storage.RevokeAllUserSessions")
	defer span.End()

	affected, err := rowsAffected(
		s.update(ctx, "sessions").
			Set("is_valid", false).
			Set("revoked_at", sq.Expr("now()")).
			Where(sq.Eq{"user_id": userID, "is_valid": true}).
			ExecContext(ctx),
	)
	if err != nil {
		return 0, wrapError(err, "failed to revoke user sessions")
	}

	return affected, nil
}
