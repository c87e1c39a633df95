// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/canonical/erp-auth/internal/db"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tenancy"
	"github.com/canonical/erp-auth/internal/tracing"
)

var _ StorageInterface = (*Storage)(nil)

// Storage is the Postgres backend. Every statement against a tenant-scoped
// table goes through scope, which pins it to the tenant bound on the context.
type Storage struct {
	db    db.DBClientInterface
	scope *tenancy.Scope

	logger  logging.LoggerInterface
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
}

func (s *Storage) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return s.db.WithTx(ctx, fn)
}

func (s *Storage) sb(ctx context.Context) sq.StatementBuilderType {
	return s.db.Statement(ctx)
}

func (s *Storage) selectFrom(ctx context.Context, table string, columns ...string) sq.SelectBuilder {
	return s.scope.Select(ctx, s.sb(ctx), table, columns...)
}

func (s *Storage) insertInto(ctx context.Context, table string, values map[string]interface{}) sq.InsertBuilder {
	return s.scope.Insert(ctx, s.sb(ctx), table, values)
}

func (s *Storage) update(ctx context.Context, table string) sq.UpdateBuilder {
	return s.scope.Update(ctx, s.sb(ctx), table)
}

func (s *Storage) deleteFrom(ctx context.Context, table string) sq.DeleteBuilder {
	return s.scope.Delete(ctx, s.sb(ctx), table)
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate ID: %w", err)
	}
	return id.String(), nil
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func NewStorage(c db.DBClientInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Storage {
	s := new(Storage)

	s.db = c
	s.scope = tenancy.NewScope()

	s.logger = logger
	s.tracer = tracer
	s.monitor = monitor

	return s
}
