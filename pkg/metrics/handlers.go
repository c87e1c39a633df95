// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/canonical/erp-auth/internal/logging"
)

type API struct {
	gatherer prometheus.Gatherer

	logger logging.LoggerInterface
}

func (a *API) RegisterEndpoints(r chi.Router) {
	r.Get("/metrics", a.prometheusHTTP)
}

func (a *API) prometheusHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{ErrorLog: zapErrorLog{a.logger}}).ServeHTTP(w, r)
}

type zapErrorLog struct {
	logger logging.LoggerInterface
}

func (l zapErrorLog) Println(v ...interface{}) {
	l.logger.Error(v...)
}

// NewAPI serves the default registry, which the prometheus monitor writes to.
func NewAPI(logger logging.LoggerInterface) *API {
	return NewAPIWithGatherer(prometheus.DefaultGatherer, logger)
}

func NewAPIWithGatherer(gatherer prometheus.Gatherer, logger logging.LoggerInterface) *API {
	a := new(API)

	a.gatherer = gatherer
	a.logger = logger

	return a
}
