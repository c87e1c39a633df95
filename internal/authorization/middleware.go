// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tracing"
)

// ResourceResolver extracts the owner and team of the resource a request
// targets, for scoped checks.
type ResourceResolver func(*http.Request) (ownerID string, teamMemberIDs []string, err error)

type AdvancedRequirement struct {
	Permission AdvancedPermission
	Resolve    ResourceResolver
}

// Requirement is the declarative access rule attached to a route. Every
// non-zero field must hold.
type Requirement struct {
	Permissions []string
	Advanced    []AdvancedRequirement
	Financial   bool
	MinLevel    int
	Categories  []string
}

type Guards struct {
	evaluator EvaluatorInterface
	policy    *RolePolicy

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (g *Guards) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := g.tracer.Start(r.Context(), "authorization.Guards.Require")
			defer span.End()

			id, ok := identity.FromContext(ctx)
			if !ok {
				types.WriteError(w, r, types.Unauthorized("authentication required"), g.logger)
				return
			}

			r = r.WithContext(ctx)

			var (
				reason string
				err    error
			)
			if id.IsAPIKey {
				reason, err = g.checkScopes(r, id, req)
			} else {
				reason, err = g.checkUser(r, id, req)
			}

			if err != nil {
				types.WriteError(w, r, err, g.logger)
				return
			}

			if reason != "" {
				g.deny(w, r, id, reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guards) checkUser(r *http.Request, id *identity.Identity, req Requirement) (string, error) {
	ctx := r.Context()

	if len(req.Permissions) > 0 {
		ok, err := g.evaluator.HasPermissions(ctx, id.ID, req.Permissions)
		if err != nil {
			return "", err
		}
		if !ok {
			return fmt.Sprintf("missing permission: %s", strings.Join(req.Permissions, ", ")), nil
		}
	}

	for _, adv := range req.Advanced {
		ownerID, team, err := resolve(r, adv.Resolve)
		if err != nil {
			return "", err
		}

		ok, err := g.evaluator.HasAdvancedPermission(ctx, id.ID, adv.Permission, ownerID, team)
		if err != nil {
			return "", err
		}
		if !ok {
			return fmt.Sprintf("missing permission: %s (%s)", adv.Permission.Key(), adv.Permission.Scope), nil
		}
	}

	if req.Financial {
		ok, err := g.evaluator.HasFinancialAccess(ctx, id.ID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "financial access required", nil
		}
	}

	if req.MinLevel > 0 {
		ok, err := g.evaluator.HasMinimumRoleLevel(ctx, id.ID, req.MinLevel)
		if err != nil {
			return "", err
		}
		if !ok {
			return fmt.Sprintf("role level %d or higher required", req.MinLevel), nil
		}
	}

	if len(req.Categories) > 0 {
		ok, err := g.evaluator.HasRoleCategory(ctx, id.ID, req.Categories)
		if err != nil {
			return "", err
		}
		if !ok {
			return fmt.Sprintf("role category must be one of: %s", strings.Join(req.Categories, ", ")), nil
		}
	}

	return "", nil
}

// checkScopes evaluates an API key caller. Permission checks run against the
// key's scopes and role checks against the owner's role loaded with the key.
func (g *Guards) checkScopes(r *http.Request, id *identity.Identity, req Requirement) (string, error) {
	if missing, ok := MatchAll(id.Scopes, req.Permissions); !ok {
		return fmt.Sprintf("api key scope missing: %s", missing), nil
	}

	for _, adv := range req.Advanced {
		if !MatchPermission(id.Scopes, adv.Permission.Key()) {
			return fmt.Sprintf("api key scope missing: %s", adv.Permission.Key()), nil
		}

		ownerID, team, err := resolve(r, adv.Resolve)
		if err != nil {
			return "", err
		}
		if !InScope(adv.Permission.Scope, id.ID, ownerID, team) {
			return fmt.Sprintf("missing permission: %s (%s)", adv.Permission.Key(), adv.Permission.Scope), nil
		}
	}

	if req.Financial && !g.policy.IsFinancial(id.Role.Name, id.Role.IsSystemSuperAdmin) {
		return "financial access required", nil
	}

	if req.MinLevel > 0 && id.Role.Level < req.MinLevel {
		return fmt.Sprintf("role level %d or higher required", req.MinLevel), nil
	}

	if len(req.Categories) > 0 && !slices.Contains(req.Categories, id.Role.Category) {
		return fmt.Sprintf("role category must be one of: %s", strings.Join(req.Categories, ", ")), nil
	}

	return "", nil
}

// Financial is the finance module gate. It consults only the role name
// allow-list, never the permission table.
func (g *Guards) Financial(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := g.tracer.Start(r.Context(), "authorization.Guards.Financial")
		defer span.End()

		id, ok := identity.FromContext(ctx)
		if !ok {
			types.WriteError(w, r, types.Unauthorized("authentication required"), g.logger)
			return
		}

		allowed := g.policy.IsFinancial(id.Role.Name, id.Role.IsSystemSuperAdmin)
		if id.IsAPIKey && !holdsResource(id.Scopes, resourceFinance) {
			g.deny(w, r, id, fmt.Sprintf("api key scope missing: %s", PermissionKey(resourceFinance, Wildcard)))
			return
		}
		if !id.IsAPIKey {
			var err error
			if allowed, err = g.evaluator.HasFinancialAccess(ctx, id.ID); err != nil {
				types.WriteError(w, r, err, g.logger)
				return
			}
		}

		if !allowed {
			g.deny(w, r, id, "financial access required")
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RoleAdmin admits super admins and the configured role administrators. API
// keys also need the roles:manage scope.
func (g *Guards) RoleAdmin(next http.Handler) http.Handler {
	return g.predicate("authorization.Guards.RoleAdmin", "role administrator required", ScopeRolesManage, func(id *identity.Identity) bool {
		return g.policy.IsRoleAdmin(id.Role.Name, id.Role.IsSystemSuperAdmin)
	})(next)
}

func (g *Guards) Executive(next http.Handler) http.Handler {
	return g.predicate("authorization.Guards.Executive", "executive role required", ScopeAuditRead, func(id *identity.Identity) bool {
		return g.policy.IsExecutive(id.Role.Name, id.Role.IsSystemSuperAdmin)
	})(next)
}

// SuperAdmin admits platform operators only. It guards the rows shared by
// every organization and is closed to API keys.
func (g *Guards) SuperAdmin(next http.Handler) http.Handler {
	return g.predicate("authorization.Guards.SuperAdmin", "platform operator required", "", func(id *identity.Identity) bool {
		return id.Role.IsSystemSuperAdmin
	})(next)
}

// RequireRoles admits callers holding one of the named roles. API keys are
// refused since a role name says nothing about what the key was scoped to.
func (g *Guards) RequireRoles(names ...string) func(http.Handler) http.Handler {
	message := fmt.Sprintf("one of the roles %s required", strings.Join(names, ", "))
	return g.predicate("authorization.Guards.RequireRoles", message, "", func(id *identity.Identity) bool {
		return id.Role.IsSystemSuperAdmin || id.HasRoleName(names...)
	})
}

// predicate builds a role guard. API keys must additionally carry scope,
// an empty scope shuts them out.
func (g *Guards) predicate(span, message, scope string, allow func(*identity.Identity) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, s := g.tracer.Start(r.Context(), span)
			defer s.End()

			id, ok := identity.FromContext(ctx)
			if !ok {
				types.WriteError(w, r, types.Unauthorized("authentication required"), g.logger)
				return
			}

			if id.IsAPIKey {
				if scope == "" {
					g.deny(w, r, id, "not available to api keys")
					return
				}
				if !MatchPermission(id.Scopes, scope) {
					g.deny(w, r, id, fmt.Sprintf("api key scope missing: %s", scope))
					return
				}
			}

			if !allow(id) {
				g.deny(w, r, id, message)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Guards) deny(w http.ResponseWriter, r *http.Request, id *identity.Identity, reason string) {
	g.logger.Security().AuthzFailure(id.ID, r.Method+" "+r.URL.Path, reason)
	g.monitor.IncAuthEvent(map[string]string{"event": "authorization", "outcome": "denied"})

	types.WriteError(w, r, types.Forbidden(reason), g.logger)
}

func resolve(r *http.Request, fn ResourceResolver) (string, []string, error) {
	if fn == nil {
		return "", nil, nil
	}
	return fn(r)
}

func NewGuards(evaluator EvaluatorInterface, policy *RolePolicy, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Guards {
	g := new(Guards)
	g.evaluator = evaluator
	g.policy = policy
	g.tracer = tracer
	g.monitor = monitor
	g.logger = logger

	return g
}
