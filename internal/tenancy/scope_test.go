// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statement() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func TestScopeSelect(t *testing.T) {
	scope := NewScope()

	t.Run("tenant merged into caller filter", func(t *testing.T) {
		ctx := WithTenantID(context.Background(), "org-a")

		query, args, err := scope.Select(ctx, statement(), "users", "id", "email").
			Where(sq.Eq{"id": "user-1"}).
			ToSql()

		require.NoError(t, err)
		assert.Equal(t, "SELECT id, email FROM users WHERE organization_id = $1 AND id = $2", query)
		assert.Equal(t, []interface{}{"org-a", "user-1"}, args)
	})

	t.Run("tenant added when caller filter is empty", func(t *testing.T) {
		ctx := WithTenantID(context.Background(), "org-a")

		query, args, err := scope.Select(ctx, statement(), "roles", "id").ToSql()

		require.NoError(t, err)
		assert.Equal(t, "SELECT id FROM roles WHERE organization_id = $1", query)
		assert.Equal(t, []interface{}{"org-a"}, args)
	})

	t.Run("alias qualifies the column", func(t *testing.T) {
		ctx := WithTenantID(context.Background(), "org-b")

		query, _, err := scope.Select(ctx, statement(), "users u", "u.id").
			Join("roles r ON r.id = u.role_id").
			ToSql()

		require.NoError(t, err)
		assert.Contains(t, query, "WHERE u.organization_id = $1")
	})

	t.Run("global tables untouched", func(t *testing.T) {
		ctx := WithTenantID(context.Background(), "org-a")

		for _, table := range GlobalTables {
			query, args, err := scope.Select(ctx, statement(), table, "id").ToSql()

			require.NoError(t, err)
			assert.NotContains(t, query, OrganizationColumn, table)
			assert.Empty(t, args, table)
		}
	})

	t.Run("unbound tenant passes through", func(t *testing.T) {
		query, args, err := scope.Select(context.Background(), statement(), "users", "id").ToSql()

		require.NoError(t, err)
		assert.Equal(t, "SELECT id FROM users", query)
		assert.Empty(t, args)
	})
}

func TestScopeInsertStampsTenant(t *testing.T) {
	scope := NewScope()
	ctx := WithTenantID(context.Background(), "org-a")

	query, args, err := scope.Insert(ctx, statement(), "users", map[string]interface{}{
		"id":              "user-1",
		"email":           "a@x.com",
		"organization_id": "org-b",
	}).ToSql()

	require.NoError(t, err)
	assert.Contains(t, query, "organization_id")
	assert.Contains(t, args, "org-a")
	assert.NotContains(t, args, "org-b")

	query, args, err = scope.Insert(ctx, statement(), "audit_logs", map[string]interface{}{
		"id":              "log-1",
		"organization_id": "org-b",
	}).ToSql()

	require.NoError(t, err)
	assert.Contains(t, query, "organization_id")
	assert.Contains(t, args, "org-b")
}

func TestScopeUpdateAndDelete(t *testing.T) {
	scope := NewScope()
	ctx := WithTenantID(context.Background(), "org-a")

	query, args, err := scope.Update(ctx, statement(), "users").
		Set("is_active", false).
		Where(sq.Eq{"id": "user-1"}).
		ToSql()

	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET is_active = $1 WHERE organization_id = $2 AND id = $3", query)
	assert.Equal(t, []interface{}{false, "org-a", "user-1"}, args)

	query, args, err = scope.Delete(ctx, statement(), "api_keys").
		Where(sq.Eq{"id": "key-1"}).
		ToSql()

	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM api_keys WHERE organization_id = $1 AND id = $2", query)
	assert.Equal(t, []interface{}{"org-a", "key-1"}, args)

	query, _, err = scope.Update(ctx, statement(), "sessions").
		Set("is_valid", false).
		Where(sq.Eq{"id": "session-1"}).
		ToSql()

	require.NoError(t, err)
	assert.NotContains(t, query, OrganizationColumn)
}
