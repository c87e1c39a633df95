// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/canonical/erp-auth/internal/authorization"
	"github.com/canonical/erp-auth/internal/db"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/ratelimit"
	"github.com/canonical/erp-auth/internal/tenancy"
	"github.com/canonical/erp-auth/internal/tracing"
	"github.com/canonical/erp-auth/pkg/apikeys"
	"github.com/canonical/erp-auth/pkg/audit"
	"github.com/canonical/erp-auth/pkg/authentication"
	"github.com/canonical/erp-auth/pkg/metrics"
	"github.com/canonical/erp-auth/pkg/roles"
	"github.com/canonical/erp-auth/pkg/status"
	"github.com/canonical/erp-auth/pkg/users"
)

// Services bundles the domain services the HTTP surface exposes.
type Services struct {
	Authentication authentication.ServiceInterface
	Users          users.ServiceInterface
	Roles          roles.ServiceInterface
	APIKeys        apikeys.ServiceInterface
	Audit          audit.ServiceInterface
}

// Security bundles the request pipeline stages guarding the API.
type Security struct {
	Authenticator *authentication.Middleware
	Guards        *authorization.Guards
	Limiter       ratelimit.LimiterInterface
	CORSOrigins   []string
	// TrustProxy rewrites RemoteAddr from the forwarding headers.
	TrustProxy bool
}

func NewRouter(
	services Services,
	security Security,
	dbClient db.DBClientInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) http.Handler {
	router := chi.NewMux()

	middlewares := make(chi.Middlewares, 0)
	if security.TrustProxy {
		middlewares = append(middlewares, middleware.RealIP)
	}
	middlewares = append(
		middlewares,
		middleware.RequestID,
		middleware.Recoverer,
		monitoring.NewMiddleware(monitor, logger).ResponseTime(),
		middlewareCORS(security.CORSOrigins),
		tenancy.NewMiddleware(tracer, monitor, logger).Resolve,
	)

	router.Use(middlewares...)

	metrics.NewAPI(logger).RegisterEndpoints(router)
	status.NewAPI(dbClient, tracer, monitor, logger).RegisterEndpoints(router)

	limit := ratelimit.NewMiddleware(security.Limiter, tracer, monitor, logger).Limit
	authAPI := authentication.NewAPI(services.Authentication, tracer, monitor, logger)

	router.Route("/api/v1", func(r chi.Router) {
		authAPI.RegisterPublicEndpoints(r, limit)

		r.Group(func(r chi.Router) {
			r.Use(
				security.Authenticator.Authenticate(),
				tenancy.NewMiddleware(tracer, monitor, logger).Guard,
			)

			authAPI.RegisterEndpoints(r)
			audit.NewAPI(services.Audit, security.Guards, tracer, monitor, logger).RegisterEndpoints(r)

			r.Group(func(r chi.Router) {
				r.Use(db.TransactionMiddleware(dbClient, logger))

				users.NewAPI(services.Users, security.Guards, tracer, monitor, logger).RegisterEndpoints(r)
				roles.NewAPI(services.Roles, security.Guards, tracer, monitor, logger).RegisterEndpoints(r)
				apikeys.NewAPI(services.APIKeys, security.Guards, tracer, monitor, logger).RegisterEndpoints(r)
			})
		})
	})

	return tracing.NewMiddleware(monitor, logger).OpenTelemetry(router)
}

func middlewareCORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(
		cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{
				http.MethodHead,
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodPatch,
				http.MethodDelete,
			},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				tenancy.OrgIDHeader,
				tenancy.TenantIDHeader,
				authentication.APIKeyHeader,
			},
			ExposedHeaders:   []string{"Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		},
	)
}
