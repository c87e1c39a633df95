// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package users

import (
	"context"
	"errors"

	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/storage"
	"github.com/canonical/erp-auth/internal/tracing"
	domain "github.com/canonical/erp-auth/internal/types"
	"github.com/canonical/erp-auth/pkg/audit"
)

const resourceUser = "user"

var (
	ErrUserNotFound       = types.NotFound("user not found")
	ErrRoleNotFound       = types.NotFound("role not found")
	ErrSelfDeactivation   = types.BadRequest("you cannot deactivate your own account")
	ErrSelfDeletion       = types.BadRequest("you cannot delete your own account")
	ErrSelfRoleChange     = types.BadRequest("you cannot change your own role")
	ErrRoleAboveOwnLevel  = types.Forbidden("cannot assign a role above your own level")
	ErrSuperAdminRequired = types.Forbidden("only a super administrator can assign this role")
	ErrUserAboveOwnLevel  = types.Forbidden("cannot manage a user above your own level")
)

type Service struct {
	storage StorageInterface
	auditor AuditorInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (s *Service) List(ctx context.Context, limit, offset uint64) ([]*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "users.Service.List")
	defer span.End()

	return s.storage.ListUsers(ctx, limit, offset)
}

// Get returns a user of the bound tenant. Users of other organizations are
// reported as missing.
func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "users.Service.Get")
	defer span.End()

	user, err := s.storage.GetUserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if user.DeletedAt != nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// Deactivate disables the account and signs it out everywhere.
func (s *Service) Deactivate(ctx context.Context, caller *identity.Identity, id string) error {
	ctx, span := s.tracer.Start(ctx, "users.Service.Deactivate")
	defer span.End()

	if caller.ID == id {
		return ErrSelfDeactivation
	}

	if err := s.checkTarget(ctx, caller, id); err != nil {
		return err
	}

	var revoked int64
	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		if err := s.storage.SetUserActive(ctx, id, false); err != nil {
			return err
		}

		var err error
		revoked, err = s.storage.RevokeAllUserSessions(ctx, id)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	s.auditor.Log(ctx, audit.Entry{
		UserID:   caller.ID,
		Action:   audit.ActionUserDeactivated,
		Resource: resourceUser,
		Details:  map[string]interface{}{"targetUserId": id, "revokedSessions": revoked},
	})

	return nil
}

// Delete soft deletes the account; the row stays for the audit trail.
func (s *Service) Delete(ctx context.Context, caller *identity.Identity, id string) error {
	ctx, span := s.tracer.Start(ctx, "users.Service.Delete")
	defer span.End()

	if caller.ID == id {
		return ErrSelfDeletion
	}

	if err := s.checkTarget(ctx, caller, id); err != nil {
		return err
	}

	err := s.storage.WithTx(ctx, func(ctx context.Context) error {
		if err := s.storage.SoftDeleteUser(ctx, id); err != nil {
			return err
		}

		_, err := s.storage.RevokeAllUserSessions(ctx, id)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	s.auditor.Log(ctx, audit.Entry{
		UserID:   caller.ID,
		Action:   audit.ActionUserDeleted,
		Resource: resourceUser,
		Details:  map[string]interface{}{"targetUserId": id},
	})

	return nil
}

// AssignRole moves a user to another role of the same organization. Callers
// cannot grant more than they hold.
func (s *Service) AssignRole(ctx context.Context, caller *identity.Identity, userID, roleID string) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "users.Service.AssignRole")
	defer span.End()

	if caller.ID == userID {
		return nil, ErrSelfRoleChange
	}

	if err := s.checkTarget(ctx, caller, userID); err != nil {
		return nil, err
	}

	role, err := s.storage.GetRole(ctx, roleID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, err
	}

	if !caller.Role.IsSystemSuperAdmin {
		if role.IsSystemSuperAdmin {
			return nil, ErrSuperAdminRequired
		}
		if role.Level > caller.Role.Level {
			return nil, ErrRoleAboveOwnLevel
		}
	}

	var user *domain.User
	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		if err := s.storage.AssignRole(ctx, userID, role.ID); err != nil {
			return err
		}

		var err error
		user, err = s.storage.GetUserByID(ctx, userID)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		UserID:   caller.ID,
		Action:   audit.ActionRoleAssigned,
		Resource: resourceUser,
		Details:  map[string]interface{}{"targetUserId": userID, "roleId": role.ID, "roleName": role.Name},
	})

	return user, nil
}

// checkTarget refuses to act on users whose current role outranks the
// caller. Super admins may act on anyone.
func (s *Service) checkTarget(ctx context.Context, caller *identity.Identity, id string) error {
	target, err := s.storage.GetUserWithRole(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	if target.User.DeletedAt != nil {
		return ErrUserNotFound
	}

	if caller.Role.IsSystemSuperAdmin || target.Role == nil {
		return nil
	}

	if target.Role.IsSystemSuperAdmin || target.Role.Level > caller.Role.Level {
		return ErrUserAboveOwnLevel
	}

	return nil
}

func NewService(storage StorageInterface, auditor AuditorInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Service {
	s := new(Service)

	s.storage = storage
	s.auditor = auditor

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
