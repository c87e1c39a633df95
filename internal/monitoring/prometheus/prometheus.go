// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
)

var _ monitoring.MonitorInterface = (*Monitor)(nil)

type Monitor struct {
	service string

	responseTime *prometheus.HistogramVec
	dependencies *prometheus.GaugeVec
	authEvents   *prometheus.CounterVec

	logger logging.LoggerInterface
}

func (m *Monitor) GetService() string {
	return m.service
}

func (m *Monitor) SetResponseTimeMetric(tags map[string]string, value float64) error {
	if m.responseTime == nil {
		return fmt.Errorf("metric not instantiated")
	}

	m.responseTime.With(m.labels(tags, "route", "status")).Observe(value)

	return nil
}

func (m *Monitor) SetDependencyAvailability(tags map[string]string, value float64) error {
	if m.dependencies == nil {
		return fmt.Errorf("metric not instantiated")
	}

	m.dependencies.With(m.labels(tags, "component")).Set(value)

	return nil
}

func (m *Monitor) IncAuthEvent(tags map[string]string) error {
	if m.authEvents == nil {
		return fmt.Errorf("metric not instantiated")
	}

	m.authEvents.With(m.labels(tags, "event", "outcome")).Inc()

	return nil
}

// labels keeps only the declared label names so callers passing extra tags
// do not make With panic.
func (m *Monitor) labels(tags map[string]string, names ...string) prometheus.Labels {
	l := prometheus.Labels{"service": m.service}
	for _, n := range names {
		l[n] = tags[n]
	}
	return l
}

func (m *Monitor) register(reg prometheus.Registerer) {
	m.responseTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_response_time_seconds",
			Help: "http_response_time_seconds",
		},
		[]string{"service", "route", "status"},
	)

	m.dependencies = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dependency_available",
			Help: "dependency_available",
		},
		[]string{"service", "component"},
	)

	m.authEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "authentication and authorization outcomes",
		},
		[]string{"service", "event", "outcome"},
	)

	for _, c := range []prometheus.Collector{m.responseTime, m.dependencies, m.authEvents} {
		if err := reg.Register(c); err != nil {
			m.logger.Debugf("metric already registered: %v", err)
		}
	}
}

// NewMonitor registers the service collectors on the default registry.
func NewMonitor(service string, logger logging.LoggerInterface) *Monitor {
	return NewMonitorWithRegistry(service, prometheus.DefaultRegisterer, logger)
}

func NewMonitorWithRegistry(service string, reg prometheus.Registerer, logger logging.LoggerInterface) *Monitor {
	m := new(Monitor)

	m.service = service
	m.logger = logger
	m.register(reg)

	return m
}
