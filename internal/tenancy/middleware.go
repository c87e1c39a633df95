// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tracing"
)

const (
	OrgIDHeader    = "X-Org-Id"
	TenantIDHeader = "X-Tenant-Id"

	// TenantClaim is the access and refresh token claim holding the organization id.
	TenantClaim = "tenantId"
)

type Middleware struct {
	parser *jwt.Parser

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Resolve seeds the tenant context from the tenant headers or, failing that,
// from an unverified read of the bearer token. It never rejects a request.
func (m *Middleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID := HeaderTenantID(r.Header)
		if tenantID == "" {
			tenantID = m.tenantFromBearer(r.Header)
		}

		if tenantID != "" {
			ctx = WithTenantID(ctx, tenantID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Guard requires an authenticated identity with a tenant, rejects header
// values naming another tenant and binds the identity tenant when the
// context lacks it.
func (m *Middleware) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.tracer.Start(r.Context(), "tenancy.Middleware.Guard")
		defer span.End()

		id, ok := identity.FromContext(ctx)
		if !ok || id.TenantID == "" {
			types.WriteError(w, r, types.Unauthorized("tenant context is required"), m.logger)
			return
		}

		if header := HeaderTenantID(r.Header); header != "" && header != id.TenantID {
			m.logger.Security().AuthzFailure(id.ID, "tenant", "tenant header does not match identity")
			types.WriteError(w, r, types.Unauthorized("tenant mismatch"), m.logger)
			return
		}

		if current, ok := TenantIDFromContext(ctx); !ok || current != id.TenantID {
			ctx = WithTenantID(ctx, id.TenantID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) tenantFromBearer(headers http.Header) string {
	auth := headers.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := m.parser.ParseUnverified(strings.TrimPrefix(auth, "Bearer "), claims); err != nil {
		m.logger.Debugf("unable to decode bearer token for tenant resolution: %v", err)
		return ""
	}

	tenantID, _ := claims[TenantClaim].(string)
	return tenantID
}

// HeaderTenantID returns the tenant named by X-Org-Id, then X-Tenant-Id.
func HeaderTenantID(headers http.Header) string {
	if v := strings.TrimSpace(headers.Get(OrgIDHeader)); v != "" {
		return v
	}
	return strings.TrimSpace(headers.Get(TenantIDHeader))
}

func NewMiddleware(tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	return &Middleware{
		parser:  jwt.NewParser(),
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
