// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package apikeys

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

const PermissionManage = "api_keys:manage"

type API struct {
	service ServiceInterface
	guards  GuardsInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (a *API) RegisterEndpoints(r chi.Router) {
	r.Route("/api-keys", func(r chi.Router) {
		r.Use(a.guards.Require(authorization.Requirement{Permissions: []string{PermissionManage}}))

		r.Get("/", a.list)
		r.Post("/", a.create)
		r.Delete("/{id}", a.revoke)
	})
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	size, _ := strconv.ParseInt(r.URL.Query().Get("pageSize"), 10, 64)

	limit := db.PageSize(size)

	keys, err := a.service.List(r.Context(), limit, db.Offset(page, limit))
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, keys)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		types.WriteError(w, r, types.Unauthorized("authentication required"), a.logger)
		return
	}

	req := new(CreateRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	key, err := a.service.Create(r.Context(), id, req)
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusCreated, key)
}

func (a *API) revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		types.WriteError(w, r, types.Unauthorized("authentication required"), a.logger)
		return
	}

	if err := a.service.Revoke(r.Context(), id, chi.URLParam(r, "id")); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, true)
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
