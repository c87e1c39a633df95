// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"context"
	"net/http"

	"github.com/canonical/erp-auth/internal/authorization"
	"github.com/canonical/erp-auth/internal/types"
)

type StorageInterface interface {
	CreateAuditLog(context.Context, *types.AuditLog) error
	ListAuditLogs(context.Context, types.AuditFilter) ([]*types.AuditLog, error)
}

type ServiceInterface interface {
	List(context.Context, types.AuditFilter) ([]*types.AuditLog, error)
}

type GuardsInterface interface {
	Require(authorization.Requirement) func(http.Handler) http.Handler
	Executive(http.Handler) http.Handler
}
