// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/erp-auth/internal/types"
)

// CreateAuditLog writes one entry. audit_logs is global, so the organization
// travels on the entry rather than the context.
func (s *Storage) CreateAuditLog(ctx context.Context, e *types.AuditLog) error {
	ctx, span := s.tracer.Start(ctx, "storage.CreateAuditLog")
	defer span.End()

	id, err := newID()
	if err != nil {
		return err
	}

	var details interface{}
	if len(e.Details) > 0 {
		details = string(e.Details)
	}

	_, err = s.insertInto(ctx, "audit_logs", map[string]interface{}{
		"id":              id,
		"organization_id": e.OrganizationID,
		"user_id":         e.UserID,
		"action":          e.Action,
		"resource":        e.Resource,
		"details":         details,
		"ip_address":      e.IPAddress,
		"user_agent":      e.UserAgent,
	}).ExecContext(ctx)

	return wrapError(err, "failed to insert audit log")
}

func (s *Storage) ListAuditLogs(ctx context.Context, filter types.AuditFilter) ([]*types.AuditLog, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListAuditLogs")
	defer span.End()

	q := s.selectFrom(ctx, "audit_logs", "id", "organization_id", "user_id", "action", "resource", "details", "ip_address", "user_agent", "created_at").
		Where(sq.Eq{"organization_id": filter.OrganizationID}).
		OrderBy("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset)

	if filter.ResourcePrefix != "" {
		q = q.Where(sq.Like{"resource": filter.ResourcePrefix + "%"})
	}
	if filter.Action != "" {
		q = q.Where(sq.Eq{"action": filter.Action})
	}

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*types.AuditLog, 0)
	for rows.Next() {
		var (
			l       types.AuditLog
			details []byte
		)
		if err := rows.Scan(&l.ID, &l.OrganizationID, &l.UserID, &l.Action, &l.Resource, &details, &l.IPAddress, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		l.Details = details
		logs = append(logs, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return logs, nil
}
