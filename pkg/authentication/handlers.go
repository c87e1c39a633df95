// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"net"
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

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// RegisterPublicEndpoints mounts the credential exchanges. limit wraps the
// endpoints exposed to guessing.
func (a *API) RegisterPublicEndpoints(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Post("/auth/register", a.register)
	r.With(limit).Post("/auth/login", a.login)
	r.With(limit).Post("/auth/refresh", a.refresh)
	r.Post("/auth/logout", a.logout)
	r.With(limit).Post("/auth/forgot-password", a.forgotPassword)
	r.Post("/auth/reset-password", a.resetPassword)
}

// RegisterEndpoints mounts the routes needing an authenticated identity.
func (a *API) RegisterEndpoints(r chi.Router) {
	r.Get("/auth/me", a.me)
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	req := new(RegisterRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	res, err := a.service.Register(r.Context(), req, clientInfo(r))
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusCreated, res)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	req := new(LoginRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	res, err := a.service.Login(r.Context(), req, clientInfo(r))
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, res)
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	req := new(RefreshRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, ErrInvalidRefreshToken, a.logger)
		return
	}

	pair, err := a.service.Refresh(r.Context(), req.RefreshToken, clientInfo(r))
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, pair)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	req := new(RefreshRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	if err := a.service.Logout(r.Context(), req.RefreshToken, clientInfo(r)); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, true)
}

func (a *API) forgotPassword(w http.ResponseWriter, r *http.Request) {
	req := new(ForgotPasswordRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	if err := a.service.ForgotPassword(r.Context(), req.Email, clientInfo(r)); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, true)
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	req := new(ResetPasswordRequest)
	if err := types.DecodeAndValidate(r, req); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	if err := a.service.ResetPassword(r.Context(), req.Token, req.Password, clientInfo(r)); err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, true)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		types.WriteError(w, r, types.Unauthorized("authentication required"), a.logger)
		return
	}

	user, err := a.service.Me(r.Context(), id)
	if err != nil {
		types.WriteError(w, r, err, a.logger)
		return
	}

	types.WriteJSON(w, r, http.StatusOK, struct {
		*UserView
		IsAPIKey bool     `json:"isApiKey"`
		Scopes   []string `json:"scopes,omitempty"`
	}{user, id.IsAPIKey, id.Scopes})
}

func clientInfo(r *http.Request) ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	return ClientInfo{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}

func NewAPI(service ServiceInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	a := new(API)

	a.service = service

	a.tracer = tracer
	a.monitor = monitor
	a.logger = logger

	return a
}
