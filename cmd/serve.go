// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/canonical/erp-auth/internal/authorization"
	"github.com/canonical/erp-auth/internal/config"
	"github.com/canonical/erp-auth/internal/db"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring/prometheus"
	"github.com/canonical/erp-auth/internal/ratelimit"
	"github.com/canonical/erp-auth/internal/storage"
	"github.com/canonical/erp-auth/internal/tracing"
	"github.com/canonical/erp-auth/pkg/apikeys"
	"github.com/canonical/erp-auth/pkg/audit"
	"github.com/canonical/erp-auth/pkg/authentication"
	"github.com/canonical/erp-auth/pkg/roles"
	"github.com/canonical/erp-auth/pkg/users"
	"github.com/canonical/erp-auth/pkg/web"
)

const serviceName = "erp-auth"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the web server",
	Long:  `Launch the web application, list of environment variables is available in the readme`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	specs := new(config.EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		return fmt.Errorf("issues with environment sourcing: %w", err)
	}

	logger := logging.NewLogger(specs.LogLevel)
	defer logger.Sync()

	monitor := prometheus.NewMonitor(serviceName, logger)
	tracer := tracing.NewTracer(tracing.NewConfig(specs.TracingEnabled, serviceName, specs.OtelGRPCEndpoint, specs.OtelHTTPEndpoint, logger))

	dbClient, err := db.NewDBClient(
		db.Config{
			DSN:             specs.DSN,
			MaxConns:        specs.DBMaxConns,
			MinConns:        specs.DBMinConns,
			MaxConnLifetime: specs.DBMaxConnLifetime,
			MaxConnIdleTime: specs.DBMaxConnIdleTime,
			TracingEnabled:  specs.TracingEnabled,
		},
		tracer,
		monitor,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create database client: %v", err)
	}
	defer dbClient.Close()

	s := storage.NewStorage(dbClient, tracer, monitor, logger)

	dispatcher := audit.NewDispatcher(s, specs.AuditBufferSize, tracer, monitor, logger)

	tokens := authentication.NewTokenService(authentication.TokenConfig{
		Issuer:        specs.JWTIssuer,
		AccessSecret:  []byte(specs.JWTAccessSecret),
		RefreshSecret: []byte(specs.JWTRefreshSecret),
		ResetSecret:   []byte(specs.JWTResetSecret),
		AccessTTL:     specs.AccessTokenTTL,
		RefreshTTL:    specs.RefreshTokenTTL,
		ResetTTL:      specs.PasswordResetTTL,
	})
	hasher := authentication.NewBcryptHasher(specs.BcryptCost)

	policy := authorization.NewRolePolicy(specs.FinancialRoles, specs.ExecutiveRoles, specs.RoleAdminRoles)
	evaluator := authorization.NewEvaluator(s, policy, tracer, monitor, logger)
	guards := authorization.NewGuards(evaluator, policy, tracer, monitor, logger)

	authService := authentication.NewService(s, tokens, hasher, dispatcher, authentication.NewLogNotifier(specs.Debug, logger), tracer, monitor, logger)
	apiKeyService := apikeys.NewService(s, hasher, evaluator, dispatcher, tracer, monitor, logger)

	limiter, closeLimiter := newLimiter(specs, logger)
	defer closeLimiter()

	router := web.NewRouter(
		web.Services{
			Authentication: authService,
			Users:          users.NewService(s, dispatcher, tracer, monitor, logger),
			Roles:          roles.NewService(s, dispatcher, tracer, monitor, logger),
			APIKeys:        apiKeyService,
			Audit:          audit.NewService(s, tracer, monitor, logger),
		},
		web.Security{
			Authenticator: authentication.NewMiddleware(tokens, s, apiKeyService, tracer, monitor, logger),
			Guards:        guards,
			Limiter:       limiter,
			CORSOrigins:   specs.CORSAllowedOrigins,
			TrustProxy:    specs.TrustProxyHeaders,
		},
		dbClient,
		tracer,
		monitor,
		logger,
	)

	logger.Infof("Starting HTTP server on port %v", specs.Port)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%v", specs.Port),
		WriteTimeout: time.Second * 60,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	var serverError error
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Security().SystemStartup()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError = fmt.Errorf("server error: %w", err)
			c <- os.Interrupt
		}
	}()

	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Security().SystemShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		serverError = fmt.Errorf("server shutdown error: %w", err)
	}

	// Entries still queued are flushed after the last request finished.
	if err := dispatcher.Close(ctx); err != nil {
		logger.Errorf("audit queue not drained: %v", err)
	}

	return serverError
}

// newLimiter shares counters through redis when an address is configured,
// otherwise keeps them in process.
func newLimiter(specs *config.EnvSpec, logger logging.LoggerInterface) (ratelimit.LimiterInterface, func()) {
	requests := specs.RateLimitRequests
	if !specs.RateLimitEnabled {
		requests = 0
	}

	if specs.RedisAddress == "" {
		return ratelimit.NewMemoryLimiter(requests, specs.RateLimitWindow), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     specs.RedisAddress,
		Password: specs.RedisPassword,
		DB:       specs.RedisDB,
	})
	logger.Infof("Using redis rate limiter at %s", specs.RedisAddress)

	return ratelimit.NewRedisLimiter(client, requests, specs.RateLimitWindow), func() {
		if err := client.Close(); err != nil {
			logger.Errorf("failed to close redis client: %v", err)
		}
	}
}
