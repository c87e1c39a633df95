// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tracing"
)

const (
	defaultPageSize  uint64 = 50
	maxPageSize      uint64 = 200
	defaultTxTimeout        = 30 * time.Second
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	TracingEnabled  bool
}

// Offset converts a 1-based page number into a row offset.
func Offset(page int64, pageSize uint64) uint64 {
	if page <= 1 {
		return 0
	}
	return uint64(page-1) * pageSize
}

// PageSize clamps the requested size to (0, maxPageSize].
func PageSize(size int64) uint64 {
	switch {
	case size <= 0:
		return defaultPageSize
	case uint64(size) > maxPageSize:
		return maxPageSize
	default:
		return uint64(size)
	}
}

type lazyTxContextKey struct{}

// lazyTx opens its transaction on first use so read-only paths never pay
// for one.
type lazyTx struct {
	db        *sql.DB
	tx        *sql.Tx
	committed bool
	cancel    context.CancelFunc
}

func (lt *lazyTx) get() (*sql.Tx, error) {
	if lt.tx != nil {
		return lt.tx, nil
	}

	// detached from the request so a client disconnect cannot roll back
	// work the handler already considers done
	ctx, cancel := context.WithTimeout(context.Background(), defaultTxTimeout)
	tx, err := lt.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		cancel()
		return nil, err
	}

	lt.tx = tx
	lt.cancel = cancel
	return tx, nil
}

func (lt *lazyTx) finish(logger logging.LoggerInterface) {
	if lt.tx != nil && !lt.committed {
		if err := lt.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Errorf("failed to rollback transaction: %v", err)
		}
	}
	if lt.cancel != nil {
		lt.cancel()
	}
}

type DBClient struct {
	pool *pgxpool.Pool
	db   *sql.DB

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Statement returns a builder bound to the transaction in ctx when WithTx
// opened one, otherwise to the pool.
func (d *DBClient) Statement(ctx context.Context) sq.StatementBuilderType {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	if lt, ok := ctx.Value(lazyTxContextKey{}).(*lazyTx); ok {
		tx, err := lt.get()
		if err == nil {
			return builder.RunWith(tx)
		}
		d.logger.Errorf("failed to open transaction, running without one: %v", err)
	}

	return builder.RunWith(d.db)
}

// WithTx runs fn inside a transaction committed when fn returns nil.
// Nested calls join the outer transaction.
func (d *DBClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if _, ok := ctx.Value(lazyTxContextKey{}).(*lazyTx); ok {
		return fn(ctx)
	}

	lt := &lazyTx{db: d.db}
	defer lt.finish(d.logger)

	if err := fn(context.WithValue(ctx, lazyTxContextKey{}, lt)); err != nil {
		return err
	}

	if lt.tx == nil {
		return nil
	}

	if err := lt.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	lt.committed = true

	return nil
}

func (d *DBClient) Ping(ctx context.Context) error {
	ctx, span := d.tracer.Start(ctx, "db.DBClient.Ping")
	defer span.End()

	err := d.db.PingContext(ctx)

	available := 1.0
	if err != nil {
		available = 0
	}
	if mErr := d.monitor.SetDependencyAvailability(map[string]string{"component": "postgres"}, available); mErr != nil {
		d.logger.Debugf("failed to record database availability: %v", mErr)
	}

	return err
}

func (d *DBClient) Close() {
	if d.db != nil {
		_ = d.db.Close()
	}

	if d.pool != nil {
		d.pool.Close()
	}
}

// NewDBClient opens a pgx pool and exposes it through database/sql so
// squirrel can run on it.
func NewDBClient(cfg Config, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) (*DBClient, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid DSN: %w", err)
	}

	if cfg.TracingEnabled {
		config.ConnConfig.Tracer = otelpgx.NewTracer()
	}

	config.MaxConns = cfg.MaxConns
	config.MinConns = cfg.MinConns
	config.MaxConnLifetime = cfg.MaxConnLifetime
	config.MaxConnLifetimeJitter = cfg.MaxConnLifetime / 10
	config.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if cfg.TracingEnabled {
		if err := otelpgx.RecordStats(pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to start metrics collection for database: %w", err)
		}
	}

	d := new(DBClient)
	d.pool = pool
	d.db = stdlib.OpenDBFromPool(pool)
	d.tracer = tracer
	d.monitor = monitor
	d.logger = logger

	if err := d.Ping(context.Background()); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	return d, nil
}

// NewDBClientFromDB wraps an existing handle; used with sqlmock in tests.
func NewDBClientFromDB(db *sql.DB, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *DBClient {
	d := new(DBClient)
	d.db = db
	d.tracer = tracer
	d.monitor = monitor
	d.logger = logger

	return d
}
