// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package roles

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tracing"
)

type API struct {
	service ServiceInterface
	guards  GuardsInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (a *API) RegisterEndpoints(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.Use(a.guards.RoleAdmin)

		r.Get("/", a.listRoles)
		r.Post("/", a.createRole)
		r.Put("/{id}", a.updateRole)
		r.Delete("/{id}", a.deleteRole)
		r.Put("/{id}/permissions", a.setPermissions)
	})

	r.Route("/permissions", func(r chi.Router) {
		r.Use(a.guards.RoleAdmin)

		r.Get("/", a.listPermissions)
		r.With(a.guards.SuperAdmin).Post("/", a.createPermission)
		r.With(a.guards.SuperAdmin).Delete("/{id}", a.deletePermission)
	})
}

func (a *API) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := a.service.ListRoles(r.Context())
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, roles)
}

func (a *API) createRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}

	req := new(RoleRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	role, err := a.service.CreateRole(r.Context(), caller, req)
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusCreated, role)
}

func (a *API) updateRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}

	req := new(RoleRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	role, err := a.service.UpdateRole(r.Context(), caller, chi.URLParam(r, "id"), req)
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, role)
}

func (a *API) deleteRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}

	if err := a.service.DeleteRole(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, true)
}

func (a *API) setPermissions(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}

	req := new(SetPermissionsRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	role, err := a.service.SetPermissions(r.Context(), caller, chi.URLParam(r, "id"), req.PermissionIDs)
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, role)
}

func (a *API) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := a.service.ListPermissions(r.Context())
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, perms)
}

func (a *API) createPermission(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}

	req := new(PermissionRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	perm, err := a.service.CreatePermission(r.Context(), caller, req)
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusCreated, perm)
}

func (a *API) deletePermission(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}

	if err := a.service.DeletePermission(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, true)
}

func (a *API) caller(w http.ResponseWriter, r *http.Request) (*identity.Identity, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		types.WriteError(w, r, types.Unauthorized("authentication required"), a.logger)
	}
	return id, ok
}

func NewAPI(service ServiceInterface, guards GuardsInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	a := new(API)

	a.service = service
	a.guards = guards

	a.tracer = tracer
	a.monitor = monitor
	a.logger = logger

	return a
}
