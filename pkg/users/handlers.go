// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package users

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/canonical/erp-auth/internal/authorization"
	"github.com/canonical/erp-auth/internal/db"
	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tracing"
)

const (
	PermissionRead   = "users:read"
	PermissionUpdate = "users:update"
	PermissionDelete = "users:delete"
)

type AssignRoleRequest struct {
	RoleID string `json:"roleId" validate:"required"`
}

type API struct {
	service ServiceInterface
	guards  GuardsInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (a *API) RegisterEndpoints(r chi.Router) {
	read := a.guards.Require(authorization.Requirement{Permissions: []string{PermissionRead}})
	update := a.guards.Require(authorization.Requirement{Permissions: []string{PermissionUpdate}})
	remove := a.guards.Require(authorization.Requirement{Permissions: []string{PermissionDelete}})

	r.Route("/users", func(r chi.Router) {
		r.With(read).Get("/", a.list)
		r.With(read).Get("/{id}", a.get)
		r.With(update).Post("/{id}/deactivate", a.deactivate)
		r.With(update).Put("/{id}/role", a.assignRole)
		r.With(remove).Delete("/{id}", a.delete)
	})
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	size, _ := strconv.ParseInt(r.URL.Query().Get("pageSize"), 10, 64)

	limit := db.PageSize(size)

	users, err := a.service.List(r.Context(), limit, db.Offset(page, limit))
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, users)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	user, err := a.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, user)
}

func (a *API) deactivate(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}

	if err := a.service.Deactivate(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, true)
}

func (a *API) delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}

	if err := a.service.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, true)
}

func (a *API) assignRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}

	req := new(AssignRoleRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	user, err := a.service.AssignRole(r.Context(), caller, chi.URLParam(r, "id"), req.RoleID)
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, user)
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
