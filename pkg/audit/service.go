// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"context"

	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tenancy"
	"github.com/canonical/erp-auth/internal/tracing"
	domain "github.com/canonical/erp-auth/internal/types"
)

var ErrTenantRequired = types.Unauthorized("tenant context required")

type Service struct {
	storage StorageInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// List returns the audit trail of the organization bound on ctx. Any
// organization named in the filter is overridden.
func (s *Service) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	ctx, span := s.tracer.Start(ctx, "audit.Service.List")
	defer span.End()

	tenant, ok := tenancy.TenantIDFromContext(ctx)
	if !ok {
		return nil, ErrTenantRequired
	}

	filter.OrganizationID = tenant

	return s.storage.ListAuditLogs(ctx, filter)
}

func NewService(storage StorageInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Service {
	s := new(Service)

	s.storage = storage

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
