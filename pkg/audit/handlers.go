// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/canonical/erp-auth/internal/authorization"
	"github.com/canonical/erp-auth/internal/db"
	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tracing"
	domain "github.com/canonical/erp-auth/internal/types"
)

const financeResourcePrefix = "finance"

type API struct {
	service ServiceInterface
	guards  GuardsInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (a *API) RegisterEndpoints(r chi.Router) {
	r.With(a.guards.Executive).Get("/audit-logs", a.list)
	r.With(a.guards.Require(authorization.Requirement{
		Permissions: []string{"finance:read"},
		Financial:   true,
	})).Get("/finance/audit-logs", a.listFinance)
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	a.respond(w, r, filter)
}

func (a *API) listFinance(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	filter.ResourcePrefix = financeResourcePrefix

	a.respond(w, r, filter)
}

func (a *API) respond(w http.ResponseWriter, r *http.Request, filter domain.AuditFilter) {
	logs, err := a.service.List(r.Context(), filter)
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, logs)
}

func parseFilter(r *http.Request) (domain.AuditFilter, error) {
	q := r.URL.Query()

	page, err := queryInt(q.Get("page"))
	if err != nil {
		return domain.AuditFilter{}, types.BadRequest("page must be a number")
	}

	size, err := queryInt(q.Get("pageSize"))
	if err != nil {
		return domain.AuditFilter{}, types.BadRequest("pageSize must be a number")
	}

	limit := db.PageSize(size)

	return domain.AuditFilter{
		ResourcePrefix: q.Get("resource"),
		Action:         q.Get("action"),
		Limit:          limit,
		Offset:         db.Offset(page, limit),
	}, nil
}

func queryInt(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
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
