// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/canonical/erp-auth/internal/db"
	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tenancy"
	"github.com/canonical/erp-auth/internal/tracing"
	domain "github.com/canonical/erp-auth/internal/types"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	logger := logging.NewNoopLogger()
	tracer := tracing.NewNoopTracer()
	monitor := monitoring.NewNoopMonitor("test", logger)

	return NewStorage(db.NewDBClientFromDB(conn, tracer, monitor, logger), tracer, monitor, logger), mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows(userColumns)
}

func TestStorage_GetUserByID(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		tenantID    string
		setup       func(sqlmock.Sqlmock)
		expectedErr error
	}{
		{
			name:     "scoped to bound tenant",
			tenantID: "org-a",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`SELECT (.+) FROM users WHERE organization_id = \$1 AND id = \$2`).
					WithArgs("org-a", "user-1").
					WillReturnRows(userRows().AddRow("user-1", "org-a", "role-1", "a@x.com", "hash", "A", "B", true, nil, now, now))
			},
		},
		{
			name:     "row in another tenant is not found",
			tenantID: "org-a",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`SELECT (.+) FROM users WHERE organization_id = \$1 AND id = \$2`).
					WithArgs("org-a", "user-of-org-b").
					WillReturnRows(userRows())
			},
			expectedErr: ErrNotFound,
		},
		{
			name: "no tenant bound",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
					WithArgs("user-1").
					WillReturnRows(userRows().AddRow("user-1", "org-a", "role-1", "a@x.com", "hash", "A", "B", true, nil, now, now))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			tt.setup(mock)

			ctx := context.Background()
			if tt.tenantID != "" {
				ctx = tenancy.WithTenantID(ctx, tt.tenantID)
			}

			id := "user-1"
			if tt.expectedErr != nil {
				id = "user-of-org-b"
			}

			user, err := s.GetUserByID(ctx, id)
			if !errors.Is(err, tt.expectedErr) {
				t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
			}
			if tt.expectedErr == nil && user.OrganizationID != "org-a" {
				t.Errorf("unexpected organization %q", user.OrganizationID)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestStorage_CreateUserDuplicateEmail(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_organization_id_email_key"})

	ctx := tenancy.WithTenantID(context.Background(), "org-a")
	_, err := s.CreateUser(ctx, &domain.User{Email: "A@X.com", RoleID: "role-1"})

	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	if got := types.Classify(ClientError(err, "user")).Status(); got != 409 {
		t.Errorf("expected 409, got %d", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStorage_ConsumeSession(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		expected bool
	}{
		{name: "winner", affected: 1, expected: true},
		{name: "hash mismatch or already revoked", affected: 0, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			mock.ExpectExec(`UPDATE sessions SET is_valid = \$1, revoked_at = now\(\) WHERE id = \$2 AND is_valid = \$3 AND refresh_token_hash = \$4 AND expires_at > now\(\)`).
				WithArgs(false, "session-1", true, "hash-1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := s.ConsumeSession(tenancy.WithTenantID(context.Background(), "org-a"), "session-1", "hash-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, ok)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestStorage_FindSessionByIDNotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(sessionColumns))

	if _, err := s.FindSessionByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStorage_SoftDeleteUserScoped(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`UPDATE users SET is_active = \$1, deleted_at = now\(\), updated_at = now\(\) WHERE organization_id = \$2 AND deleted_at IS NULL AND id = \$3`).
		WithArgs(false, "org-a", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SoftDeleteUser(tenancy.WithTenantID(context.Background(), "org-a"), "user-2")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for row outside tenant, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStorage_DeletePermissionInUse(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`DELETE FROM permissions WHERE id = \$1`).
		WithArgs("perm-1").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := s.DeletePermission(context.Background(), "perm-1")
	if !errors.Is(err, ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStorage_FindUsersByEmailSkipsDeleted(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE deleted_at IS NULL AND email = \$1 ORDER BY created_at ASC, id ASC`).
		WithArgs("a@x.com").
		WillReturnRows(userRows().AddRow("user-2", "org-b", "role-2", "a@x.com", "hash", "A", "B", true, nil, now, now))

	users, err := s.FindUsersByEmail(context.Background(), "A@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || users[0].OrganizationID != "org-b" {
		t.Errorf("expected only the live account of org-b, got %+v", users)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStorage_GrantPermissionKeys(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`INSERT INTO role_permissions \(role_id,permission_id\) SELECT CAST\(\$1 AS uuid\), id FROM permissions WHERE \(action = \$2 AND resource = \$3\) ON CONFLICT DO NOTHING`).
		WithArgs("role-1", "*", "*").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.GrantPermissionKeys(tenancy.WithTenantID(context.Background(), "org-a"), "role-1", []string{"*:*"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.GrantPermissionKeys(context.Background(), "role-1", nil); err != nil {
		t.Fatalf("empty grant should be a no-op, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStorage_MarkResetTokenUsedOnce(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`UPDATE password_reset_tokens SET used = \$1 WHERE id = \$2 AND used = \$3`).
		WithArgs(true, "token-1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE password_reset_tokens SET used = \$1 WHERE id = \$2 AND used = \$3`).
		WithArgs(true, "token-1", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := s.MarkResetTokenUsed(context.Background(), "token-1")
	if err != nil || !first {
		t.Fatalf("expected first mark to win, got %v %v", first, err)
	}

	second, err := s.MarkResetTokenUsed(context.Background(), "token-1")
	if err != nil || second {
		t.Fatalf("expected second mark to lose, got %v %v", second, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStorage_FindAPIKeysByPrefix(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM api_keys WHERE prefix = \$1 AND revoked_at IS NULL`).
		WithArgs("sk_0123abcd").
		WillReturnRows(sqlmock.NewRows(apiKeyColumns).
			AddRow("key-1", "org-a", "user-1", "ci", "sk_0123abcd", "hash", []byte(`["projects:read"]`), nil, nil, nil, now))

	keys, err := s.FindAPIKeysByPrefix(context.Background(), "sk_0123abcd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 1 || len(keys[0].Scopes) != 1 || keys[0].Scopes[0] != "projects:read" {
		t.Errorf("unexpected keys %+v", keys)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
