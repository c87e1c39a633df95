// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package status

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tracing"
	"github.com/canonical/erp-auth/internal/version"
)

const pingTimeout = 2 * time.Second

type PingerInterface interface {
	Ping(context.Context) error
}

type Status struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type BuildInfo struct {
	Version string `json:"version"`
}

type API struct {
	db PingerInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (a *API) RegisterEndpoints(r chi.Router) {
	r.Get("/api/v0/status", a.alive)
	r.Get("/api/v0/version", a.version)
}

func (a *API) alive(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "status.API.alive")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	res := Status{Status: "ok", Database: "ok"}
	code := http.StatusOK
	available := 1.0

	if err := a.db.Ping(ctx); err != nil {
		a.logger.Errorf("database ping failed: %v", err)
		res = Status{Status: "degraded", Database: "unavailable"}
		code = http.StatusServiceUnavailable
		available = 0
	}

	_ = a.monitor.SetDependencyAvailability(map[string]string{"component": "database"}, available)

	types.WriteJSON(w, r, code, res)
}

func (a *API) version(w http.ResponseWriter, r *http.Request) {
	types.WriteJSON(w, r, http.StatusOK, BuildInfo{Version: version.Version})
}

func NewAPI(db PingerInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	a := new(API)

	a.db = db

	a.tracer = tracer
	a.monitor = monitor
	a.logger = logger

	return a
}
