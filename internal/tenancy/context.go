// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import "context"

type tenantContextKey struct{}

// WithTenantID binds the tenant for everything running under the returned context.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// TenantIDFromContext returns the bound tenant, false when unset.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantContextKey{}).(string)
	return id, ok && id != ""
}
