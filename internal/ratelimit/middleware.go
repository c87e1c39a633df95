// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tracing"
)

var ErrTooManyRequests = types.TooManyRequests("too many requests, please try again later")

type Middleware struct {
	limiter LimiterInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Limit counts requests per client address and route. Limiter failures let
// the request through.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.tracer.Start(r.Context(), "ratelimit.Middleware.Limit")
		defer span.End()

		key := clientAddress(r) + ":" + r.URL.Path

		decision, err := m.limiter.Allow(ctx, key)
		if err != nil {
			m.logger.Errorf("rate limiter unavailable: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		if !decision.Allowed {
			m.logger.Warnf("rate limit exceeded for %s", key)
			m.monitor.IncAuthEvent(map[string]string{"event": "rate_limit", "outcome": "rejected"})

			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			types.WriteError(w, r, ErrTooManyRequests, m.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientAddress keys on RemoteAddr. Behind a proxy it is only the client
// when the router mounts chi's RealIP, see TRUST_PROXY_HEADERS.
func clientAddress(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func NewMiddleware(limiter LimiterInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	m := new(Middleware)

	m.limiter = limiter

	m.tracer = tracer
	m.monitor = monitor
	m.logger = logger

	return m
}
