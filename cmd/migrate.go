// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/canonical/erp-auth/migrations"
)

// migrateCmd performs DB migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down [version]|status|check]",
	Short: "Run database migrations",
	Long:  `Run database migrations. The DSN is read from --dsn or the DSN environment variable.`,
	Args:  migrateArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().String("dsn", "", "PostgreSQL DSN connection string")
	migrateCmd.Flags().StringP("format", "f", "text", "Output format (text or json)")

	rootCmd.AddCommand(migrateCmd)
}

func migrateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(0, 2)(cmd, args); err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "up", "down", "status", "check":
	default:
		return fmt.Errorf("invalid first argument: %q", args[0])
	}

	if len(args) == 2 {
		if args[0] != "down" {
			return fmt.Errorf("invalid argument combination: %q", args)
		}
		if v, err := strconv.Atoi(args[1]); err != nil || v < 0 {
			return fmt.Errorf("invalid version number: %q", args[1])
		}
	}

	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	version := int64(-1)
	if len(args) > 1 {
		version, _ = strconv.ParseInt(args[1], 10, 64)
	}

	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		dsn = os.Getenv("DSN")
	}
	if dsn == "" {
		return fmt.Errorf("a DSN is required, pass --dsn or set DSN")
	}

	format, _ := cmd.Flags().GetString("format")

	db, err := openDB(cmd.Context(), dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	var opts []goose.ProviderOption
	if format == "json" {
		opts = append(opts, goose.WithLogger(goose.NopLogger()))
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.EmbedMigrations, opts...)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	out := migrationOutput{w: cmd.OutOrStdout(), json: format == "json"}
	ctx := cmd.Context()

	switch command {
	case "down":
		return runDown(ctx, provider, version, out)
	case "status":
		return runStatus(ctx, provider, out)
	case "check":
		return runCheck(ctx, provider, out)
	default:
		results, err := provider.Up(ctx)
		if err != nil {
			return err
		}
		return out.results(results)
	}
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("DSN validation failed: %w", err)
	}

	db := stdlib.OpenDB(*config)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB connection failed: %w", err)
	}

	return db, nil
}

func runDown(ctx context.Context, provider *goose.Provider, version int64, out migrationOutput) error {
	if version >= 0 {
		results, err := provider.DownTo(ctx, version)
		if err != nil {
			return err
		}
		return out.results(results)
	}

	result, err := provider.Down(ctx)
	if err != nil {
		return err
	}
	return out.results([]*goose.MigrationResult{result})
}

func runStatus(ctx context.Context, provider *goose.Provider, out migrationOutput) error {
	statuses, err := provider.Status(ctx)
	if err != nil {
		return err
	}
	if out.json {
		return json.NewEncoder(out.w).Encode(statuses)
	}

	fmt.Fprintln(out.w, "    Applied At                  Migration")
	fmt.Fprintln(out.w, "    =======================================")
	for _, s := range statuses {
		appliedAt := "Pending"
		if s.State == goose.StateApplied {
			appliedAt = s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(out.w, "    %-24s -- %s\n", appliedAt, s.Source.Path)
	}
	return nil
}

func runCheck(ctx context.Context, provider *goose.Provider, out migrationOutput) error {
	hasPending, err := provider.HasPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to check pending migrations: %w", err)
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if out.json {
		status := "ok"
		if hasPending {
			status = "pending"
		}
		return json.NewEncoder(out.w).Encode(map[string]interface{}{
			"status":  status,
			"version": current,
		})
	}

	if hasPending {
		return fmt.Errorf("migrations are pending: current version %d", current)
	}

	fmt.Fprintf(out.w, "Database is up to date (version %d)\n", current)
	return nil
}

type migrationOutput struct {
	w    io.Writer
	json bool
}

func (o migrationOutput) results(results []*goose.MigrationResult) error {
	if !o.json {
		for _, r := range results {
			fmt.Fprintln(o.w, r.String())
		}
		return nil
	}

	if results == nil {
		results = []*goose.MigrationResult{}
	}
	return json.NewEncoder(o.w).Encode(map[string]interface{}{
		"applied": results,
	})
}
