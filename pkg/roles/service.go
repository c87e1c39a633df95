// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package roles

import (
	"context"
	"errors"

	"github.com/canonical/erp-auth/internal/authorization"
	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/storage"
	"github.com/canonical/erp-auth/internal/tracing"
	domain "github.com/canonical/erp-auth/internal/types"
	"github.com/canonical/erp-auth/pkg/audit"
)

const (
	resourceRole       = "role"
	resourcePermission = "permission"
)

var (
	ErrRoleNotFound         = types.NotFound("role not found")
	ErrRoleNameTaken        = types.Conflict("a role with this name already exists")
	ErrRoleInUse            = types.Conflict("role is assigned to users")
	ErrSystemRoleDelete     = types.BadRequest("system roles cannot be deleted")
	ErrSystemRoleDemote     = types.BadRequest("system roles cannot change level or category")
	ErrRoleAboveOwnLevel    = types.Forbidden("cannot manage a role above your own level")
	ErrUnknownPermission    = types.BadRequest("unknown permission")
	ErrPermissionNotFound   = types.NotFound("permission not found")
	ErrPermissionExists     = types.Conflict("permission already exists")
	ErrPermissionInUse      = types.Conflict("permission is assigned to roles")
	ErrInvalidPermissionKey = types.BadRequest("permission resource and action must not contain ':'")
	ErrOperatorRequired     = types.Forbidden("only a platform operator can change the permission catalogue")
)

type Service struct {
	storage StorageInterface
	auditor AuditorInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (s *Service) ListRoles(ctx context.Context) ([]*RoleView, error) {
	ctx, span := s.tracer.Start(ctx, "roles.Service.ListRoles")
	defer span.End()

	roles, err := s.storage.ListRoles(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]*RoleView, 0, len(roles))
	for _, r := range roles {
		perms, err := s.storage.ListRolePermissions(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, newRoleView(r, perms))
	}

	return views, nil
}

// CreateRole adds a custom role to the caller's organization. Custom roles
// are never system roles.
func (s *Service) CreateRole(ctx context.Context, caller *identity.Identity, req *RoleRequest) (*RoleView, error) {
	ctx, span := s.tracer.Start(ctx, "roles.Service.CreateRole")
	defer span.End()

	if !canManageLevel(caller, req.Level) {
		return nil, ErrRoleAboveOwnLevel
	}

	role, err := s.storage.CreateRole(ctx, &domain.Role{
		Name:        req.Name,
		Description: req.Description,
		Level:       req.Level,
		Category:    req.Category,
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil, ErrRoleNameTaken
	}
	if err != nil {
		return nil, err
	}

	s.audit(ctx, caller, audit.ActionRoleCreated, resourceRole, map[string]interface{}{
		"roleId": role.ID, "name": role.Name, "level": role.Level,
	})

	return newRoleView(role, nil), nil
}

// UpdateRole rewrites a role. System roles keep their level and category.
func (s *Service) UpdateRole(ctx context.Context, caller *identity.Identity, id string, req *RoleRequest) (*RoleView, error) {
	ctx, span := s.tracer.Start(ctx, "roles.Service.UpdateRole")
	defer span.End()

	role, err := s.getRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if role.IsSystem && (role.Level != req.Level || role.Category != req.Category) {
		return nil, ErrSystemRoleDemote
	}
	if !canManageLevel(caller, role.Level) || !canManageLevel(caller, req.Level) {
		return nil, ErrRoleAboveOwnLevel
	}

	updated := *role
	updated.Name = req.Name
	updated.Description = req.Description
	updated.Level = req.Level
	updated.Category = req.Category

	err = s.storage.UpdateRole(ctx, &updated)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrRoleNotFound
	case errors.Is(err, storage.ErrDuplicateKey):
		return nil, ErrRoleNameTaken
	case err != nil:
		return nil, err
	}

	perms, err := s.storage.ListRolePermissions(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, caller, audit.ActionRoleUpdated, resourceRole, map[string]interface{}{
		"roleId":   id,
		"previous": map[string]interface{}{"name": role.Name, "level": role.Level, "category": role.Category},
		"current":  map[string]interface{}{"name": updated.Name, "level": updated.Level, "category": updated.Category},
	})

	return newRoleView(&updated, perms), nil
}

func (s *Service) DeleteRole(ctx context.Context, caller *identity.Identity, id string) error {
	ctx, span := s.tracer.Start(ctx, "roles.Service.DeleteRole")
	defer span.End()

	role, err := s.getRole(ctx, id)
	if err != nil {
		return err
	}

	if role.IsSystem {
		return ErrSystemRoleDelete
	}
	if !canManageLevel(caller, role.Level) {
		return ErrRoleAboveOwnLevel
	}

	err = s.storage.DeleteRole(ctx, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrRoleNotFound
	case errors.Is(err, storage.ErrForeignKeyViolation):
		return ErrRoleInUse
	case err != nil:
		return err
	}

	s.audit(ctx, caller, audit.ActionRoleDeleted, resourceRole, map[string]interface{}{
		"roleId": id, "name": role.Name,
	})

	return nil
}

// SetPermissions replaces the role's grants with permissionIDs.
func (s *Service) SetPermissions(ctx context.Context, caller *identity.Identity, id string, permissionIDs []string) (*RoleView, error) {
	ctx, span := s.tracer.Start(ctx, "roles.Service.SetPermissions")
	defer span.End()

	role, err := s.getRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canManageLevel(caller, role.Level) {
		return nil, ErrRoleAboveOwnLevel
	}

	err = s.storage.SetRolePermissions(ctx, id, dedupe(permissionIDs))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrRoleNotFound
	case errors.Is(err, storage.ErrForeignKeyViolation):
		return nil, ErrUnknownPermission
	case err != nil:
		return nil, err
	}

	perms, err := s.storage.ListRolePermissions(ctx, id)
	if err != nil {
		return nil, err
	}

	view := newRoleView(role, perms)

	s.audit(ctx, caller, audit.ActionRolePermissionsChanged, resourceRole, map[string]interface{}{
		"roleId": id, "permissions": view.Permissions,
	})

	return view, nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]*domain.Permission, error) {
	ctx, span := s.tracer.Start(ctx, "roles.Service.ListPermissions")
	defer span.End()

	return s.storage.ListPermissions(ctx)
}

func (s *Service) CreatePermission(ctx context.Context, caller *identity.Identity, req *PermissionRequest) (*domain.Permission, error) {
	ctx, span := s.tracer.Start(ctx, "roles.Service.CreatePermission")
	defer span.End()

	if !caller.Role.IsSystemSuperAdmin {
		return nil, ErrOperatorRequired
	}

	if !authorization.ValidPermissionKey(req.Resource + ":" + req.Action) {
		return nil, ErrInvalidPermissionKey
	}

	perm, err := s.storage.CreatePermission(ctx, &domain.Permission{
		Resource:    req.Resource,
		Action:      req.Action,
		Description: req.Description,
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil, ErrPermissionExists
	}
	if err != nil {
		return nil, err
	}

	s.audit(ctx, caller, audit.ActionPermissionCreated, resourcePermission, map[string]interface{}{
		"permissionId": perm.ID, "key": perm.Key(),
	})

	return perm, nil
}

// DeletePermission refuses while any role still grants the permission. The
// catalogue is shared by every organization, so only operators change it.
func (s *Service) DeletePermission(ctx context.Context, caller *identity.Identity, id string) error {
	ctx, span := s.tracer.Start(ctx, "roles.Service.DeletePermission")
	defer span.End()

	if !caller.Role.IsSystemSuperAdmin {
		return ErrOperatorRequired
	}

	err := s.storage.DeletePermission(ctx, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrPermissionNotFound
	case errors.Is(err, storage.ErrForeignKeyViolation):
		return ErrPermissionInUse
	case err != nil:
		return err
	}

	s.audit(ctx, caller, audit.ActionPermissionDeleted, resourcePermission, map[string]interface{}{
		"permissionId": id,
	})

	return nil
}

func (s *Service) getRole(ctx context.Context, id string) (*domain.Role, error) {
	role, err := s.storage.GetRole(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRoleNotFound
	}
	return role, err
}

func (s *Service) audit(ctx context.Context, caller *identity.Identity, action, resource string, details map[string]interface{}) {
	s.auditor.Log(ctx, audit.Entry{
		UserID:   caller.ID,
		Action:   action,
		Resource: resource,
		Details:  details,
	})
}

func canManageLevel(caller *identity.Identity, level int) bool {
	return caller.Role.IsSystemSuperAdmin || level <= caller.Role.Level
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
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
