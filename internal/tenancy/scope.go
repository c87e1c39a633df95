// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// OrganizationColumn is the foreign key every tenant-scoped table carries.
const OrganizationColumn = "organization_id"

// GlobalTables are never filtered by tenant.
var GlobalTables = []string{
	"organizations",
	"permissions",
	"role_permissions",
	"audit_logs",
	"sessions",
	"password_reset_tokens",
}

// Scope rewrites outgoing queries so tenant-scoped tables only ever see the
// rows of the tenant bound to the context. Queries run with no tenant bound
// are left untouched.
type Scope struct {
	global map[string]struct{}
}

func (s *Scope) IsGlobal(table string) bool {
	name, _ := splitTable(table)
	_, ok := s.global[name]
	return ok
}

func (s *Scope) Select(ctx context.Context, sb sq.StatementBuilderType, table string, columns ...string) sq.SelectBuilder {
	q := sb.Select(columns...).From(table)
	if filter, ok := s.filter(ctx, table); ok {
		q = q.Where(filter)
	}
	return q
}

// Insert stamps the bound tenant over any organization_id the caller set.
func (s *Scope) Insert(ctx context.Context, sb sq.StatementBuilderType, table string, values map[string]interface{}) sq.InsertBuilder {
	if tenantID, ok := s.tenant(ctx, table); ok {
		stamped := make(map[string]interface{}, len(values)+1)
		for k, v := range values {
			stamped[k] = v
		}
		stamped[OrganizationColumn] = tenantID
		values = stamped
	}
	return sb.Insert(table).SetMap(values)
}

func (s *Scope) Update(ctx context.Context, sb sq.StatementBuilderType, table string) sq.UpdateBuilder {
	q := sb.Update(table)
	if filter, ok := s.filter(ctx, table); ok {
		q = q.Where(filter)
	}
	return q
}

func (s *Scope) Delete(ctx context.Context, sb sq.StatementBuilderType, table string) sq.DeleteBuilder {
	q := sb.Delete(table)
	if filter, ok := s.filter(ctx, table); ok {
		q = q.Where(filter)
	}
	return q
}

func (s *Scope) tenant(ctx context.Context, table string) (string, bool) {
	if s.IsGlobal(table) {
		return "", false
	}
	return TenantIDFromContext(ctx)
}

func (s *Scope) filter(ctx context.Context, table string) (sq.Eq, bool) {
	tenantID, ok := s.tenant(ctx, table)
	if !ok {
		return nil, false
	}

	column := OrganizationColumn
	if _, alias := splitTable(table); alias != "" {
		column = alias + "." + OrganizationColumn
	}
	return sq.Eq{column: tenantID}, true
}

// splitTable separates "users u" or "users AS u" into name and alias.
func splitTable(table string) (string, string) {
	fields := strings.Fields(table)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[len(fields)-1]
	}
}

// NewScope builds a scope treating the given tables as global, defaulting
// to GlobalTables.
func NewScope(globalTables ...string) *Scope {
	if len(globalTables) == 0 {
		globalTables = GlobalTables
	}

	s := new(Scope)
	s.global = make(map[string]struct{}, len(globalTables))
	for _, t := range globalTables {
		s.global[t] = struct{}{}
	}
	return s
}
