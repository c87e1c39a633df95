// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"errors"
	"net/http"
	"strings"

	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/storage"
	"github.com/canonical/erp-auth/internal/tenancy"
	"github.com/canonical/erp-auth/internal/tracing"
)

const APIKeyHeader = "X-Api-Key"

type Middleware struct {
	verifier TokenVerifierInterface
	store    IdentityStoreInterface
	apiKeys  APIKeyAuthenticatorInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Authenticate resolves the caller from a bearer token or, when none is
// sent, from an API key, and attaches the identity to the request context.
func (m *Middleware) Authenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "authentication.Middleware.Authenticate")
			defer span.End()

			r = r.WithContext(ctx)

			var (
				id  *identity.Identity
				err error
			)

			if token, found := m.getBearerToken(r.Header); found {
				id, err = m.fromBearer(r, token)
			} else if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" && m.apiKeys != nil {
				id, err = m.apiKeys.Authenticate(ctx, key)
				if err != nil {
					m.logger.Debugf("API key rejected: %v", err)
					err = types.Unauthorized("invalid api key")
				}
			} else {
				err = types.Unauthorized("missing authorization header")
			}

			if err != nil {
				m.monitor.IncAuthEvent(map[string]string{"event": "authenticate", "outcome": "failure"})
				types.WriteError(w, r, err, m.logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

func (m *Middleware) fromBearer(r *http.Request, token string) (*identity.Identity, error) {
	claims, err := m.verifier.VerifyAccessToken(token)
	if errors.Is(err, ErrTokenExpired) {
		return nil, types.Unauthorized("token expired")
	}
	if err != nil {
		m.logger.Debugf("JWT verification failed: %v", err)
		return nil, types.Unauthorized("invalid token")
	}

	if claims.Subject == "" || claims.Email == "" || claims.TenantID == "" {
		return nil, types.Unauthorized("invalid token payload")
	}

	// Looked up by id alone so the organization comparison below is made
	// against the stored user, not against whatever tenant the headers name.
	ctx := tenancy.WithTenantID(r.Context(), "")

	loaded, err := m.store.GetUserWithRole(ctx, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.Unauthorized("user not found")
	}
	if err != nil {
		return nil, err
	}

	if !loaded.User.Usable() {
		return nil, types.Unauthorized("account disabled")
	}

	if loaded.User.OrganizationID != claims.TenantID {
		m.logger.Security().AuthzFailure(claims.Subject, "tenant", "token tenant does not match user organization")
		return nil, types.Unauthorized("tenant mismatch")
	}

	if claims.SessionID != "" {
		session, err := m.store.FindSessionByID(ctx, claims.SessionID)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && !session.IsValid) {
			return nil, types.Unauthorized("session revoked")
		}
		if err != nil {
			return nil, err
		}
	}

	id := &identity.Identity{
		ID:        loaded.User.ID,
		Email:     loaded.User.Email,
		RoleID:    loaded.User.RoleID,
		TenantID:  loaded.User.OrganizationID,
		SessionID: claims.SessionID,
	}
	if loaded.Role != nil {
		id.Role = NormalizeRole(loaded.Role)
	}

	return id, nil
}

func (m *Middleware) getBearerToken(headers http.Header) (string, bool) {
	bearer := headers.Get("Authorization")
	if bearer == "" {
		return "", false
	}

	// Only support "Bearer <token>" format (RFC 6750)
	if !strings.HasPrefix(bearer, "Bearer ") {
		return "", false
	}

	return strings.TrimPrefix(bearer, "Bearer "), true
}

func NewMiddleware(verifier TokenVerifierInterface, store IdentityStoreInterface, apiKeys APIKeyAuthenticatorInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	return &Middleware{
		verifier: verifier,
		store:    store,
		apiKeys:  apiKeys,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}
