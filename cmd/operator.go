// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/canonical/erp-auth/internal/db"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/storage"
	"github.com/canonical/erp-auth/internal/tracing"
	"github.com/canonical/erp-auth/pkg/audit"
	"github.com/canonical/erp-auth/pkg/authentication"
)

var operatorCmd = &cobra.Command{
	Use:   "operator",
	Short: "Manage platform operators",
}

var operatorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a platform operator",
	Long: `Create a platform operator in an organization of its own. The password is read
from the first line of standard input. The DSN is read from --dsn or the DSN environment variable.`,
	Args: cobra.NoArgs,
	RunE: runOperatorCreate,
}

func init() {
	operatorCreateCmd.Flags().String("dsn", "", "PostgreSQL DSN connection string")
	operatorCreateCmd.Flags().String("email", "", "Operator email")
	operatorCreateCmd.Flags().String("first-name", "", "Operator first name")
	operatorCreateCmd.Flags().String("last-name", "", "Operator last name")
	operatorCreateCmd.Flags().String("organization", "", "Name of the operator organization")
	operatorCreateCmd.Flags().Int("bcrypt-cost", 12, "bcrypt cost used for the password hash")

	_ = operatorCreateCmd.MarkFlagRequired("email")
	_ = operatorCreateCmd.MarkFlagRequired("first-name")
	_ = operatorCreateCmd.MarkFlagRequired("last-name")

	operatorCmd.AddCommand(operatorCreateCmd)
	rootCmd.AddCommand(operatorCmd)
}

type operatorRegistrar interface {
	RegisterOperator(context.Context, *authentication.RegisterRequest) (*authentication.UserView, error)
}

func runOperatorCreate(cmd *cobra.Command, _ []string) error {
	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		dsn = os.Getenv("DSN")
	}
	if dsn == "" {
		return errors.New("dsn must be provided with --dsn or the DSN environment variable")
	}

	cost, _ := cmd.Flags().GetInt("bcrypt-cost")

	logger := logging.NewLogger("info")
	defer logger.Sync()

	tracer := tracing.NewNoopTracer()
	monitor := monitoring.NewNoopMonitor(serviceName, logger)

	dbClient, err := db.NewDBClient(db.Config{DSN: dsn, MaxConns: 2, MinConns: 1}, tracer, monitor, logger)
	if err != nil {
		return fmt.Errorf("failed to create database client: %v", err)
	}
	defer dbClient.Close()

	s := storage.NewStorage(dbClient, tracer, monitor, logger)
	dispatcher := audit.NewDispatcher(s, 8, tracer, monitor, logger)

	service := authentication.NewService(
		s,
		authentication.NewTokenService(authentication.TokenConfig{}),
		authentication.NewBcryptHasher(cost),
		dispatcher,
		authentication.NewLogNotifier(false, logger),
		tracer,
		monitor,
		logger,
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	err = createOperator(ctx, cmd, service)

	if cerr := dispatcher.Close(ctx); cerr != nil {
		logger.Errorf("audit queue not drained: %v", cerr)
	}

	return err
}

func createOperator(ctx context.Context, cmd *cobra.Command, registrar operatorRegistrar) error {
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	firstName, _ := cmd.Flags().GetString("first-name")
	lastName, _ := cmd.Flags().GetString("last-name")
	organization, _ := cmd.Flags().GetString("organization")

	user, err := registrar.RegisterOperator(ctx, &authentication.RegisterRequest{
		Email:            email,
		Password:         password,
		FirstName:        firstName,
		LastName:         lastName,
		OrganizationName: organization,
	})
	if err != nil {
		return fmt.Errorf("cannot create operator: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(user)
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("cannot read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password must be supplied on standard input")
	}
	return password, nil
}
