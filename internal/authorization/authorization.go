// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"context"
	"errors"
	"slices"

	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/storage"
	"github.com/canonical/erp-auth/internal/tracing"
	"github.com/canonical/erp-auth/internal/types"
)

var _ EvaluatorInterface = (*Evaluator)(nil)

// Evaluator answers permission questions for a user. Every call reloads the
// user, role and permissions so grants and revocations apply on the next
// request.
type Evaluator struct {
	storage StorageInterface
	policy  *RolePolicy

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (e *Evaluator) HasPermissions(ctx context.Context, userID string, required []string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "authorization.Evaluator.HasPermissions")
	defer span.End()

	u, err := e.load(ctx, userID)
	if err != nil || u == nil {
		return false, err
	}

	if u.Role.IsSystemSuperAdmin {
		return true, nil
	}

	missing, ok := MatchAll(u.Permissions, required)
	if !ok {
		e.logger.Debugf("user %s lacks permission %s", userID, missing)
	}
	return ok, nil
}

func (e *Evaluator) HasAdvancedPermission(ctx context.Context, userID string, perm AdvancedPermission, ownerID string, teamMemberIDs []string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "authorization.Evaluator.HasAdvancedPermission")
	defer span.End()

	u, err := e.load(ctx, userID)
	if err != nil || u == nil {
		return false, err
	}

	if u.Role.IsSystemSuperAdmin {
		return true, nil
	}

	if !MatchPermission(u.Permissions, perm.Key()) {
		return false, nil
	}

	return InScope(perm.Scope, userID, ownerID, teamMemberIDs), nil
}

func (e *Evaluator) HasFinancialAccess(ctx context.Context, userID string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "authorization.Evaluator.HasFinancialAccess")
	defer span.End()

	u, err := e.load(ctx, userID)
	if err != nil || u == nil {
		return false, err
	}

	return e.policy.IsFinancial(u.Role.Name, u.Role.IsSystemSuperAdmin), nil
}

func (e *Evaluator) HasMinimumRoleLevel(ctx context.Context, userID string, level int) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "authorization.Evaluator.HasMinimumRoleLevel")
	defer span.End()

	u, err := e.load(ctx, userID)
	if err != nil || u == nil {
		return false, err
	}

	return u.Role.Level >= level, nil
}

func (e *Evaluator) HasRoleCategory(ctx context.Context, userID string, categories []string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "authorization.Evaluator.HasRoleCategory")
	defer span.End()

	u, err := e.load(ctx, userID)
	if err != nil || u == nil {
		return false, err
	}

	return slices.Contains(categories, u.Role.Category), nil
}

// load returns nil without error when the user is gone or disabled, which
// every predicate treats as a deny.
func (e *Evaluator) load(ctx context.Context, userID string) (*types.UserWithRole, error) {
	u, err := e.storage.GetUserWithRole(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		e.logger.Errorf("failed to load user %s for authorization: %v", userID, err)
		return nil, err
	}

	if !u.User.Usable() || u.Role == nil {
		return nil, nil
	}
	return u, nil
}

// InScope narrows an already granted permission to the caller's reach.
func InScope(scope Scope, callerID, ownerID string, teamMemberIDs []string) bool {
	switch scope {
	case ScopeAll, "":
		return true
	case ScopeOwn:
		return ownerID != "" && callerID == ownerID
	case ScopeTeam:
		return (ownerID != "" && callerID == ownerID) || slices.Contains(teamMemberIDs, callerID)
	default:
		return false
	}
}

func NewEvaluator(storage StorageInterface, policy *RolePolicy, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Evaluator {
	e := new(Evaluator)
	e.storage = storage
	e.policy = policy
	e.tracer = tracer
	e.monitor = monitor
	e.logger = logger

	return e
}
