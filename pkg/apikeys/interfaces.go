// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package apikeys

import (
	"context"
	"net/http"
	"time"

	"github.com/canonical/erp-auth/internal/authorization"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/types"
	"github.com/canonical/erp-auth/pkg/audit"
)

type StorageInterface interface {
	CreateAPIKey(context.Context, *types.APIKey) (*types.APIKey, error)
	FindAPIKeysByPrefix(context.Context, string) ([]*types.APIKey, error)
	ListAPIKeys(context.Context, uint64, uint64) ([]*types.APIKey, error)
	RevokeAPIKey(context.Context, string) error
	TouchAPIKey(context.Context, string, time.Time) error
	GetUserWithRole(context.Context, string) (*types.UserWithRole, error)
}

type ServiceInterface interface {
	Create(context.Context, *identity.Identity, *CreateRequest) (*CreatedKey, error)
	List(context.Context, uint64, uint64) ([]*types.APIKey, error)
	Revoke(context.Context, *identity.Identity, string) error
	Authenticate(context.Context, string) (*identity.Identity, error)
}

type HasherInterface interface {
	Hash(string) (string, error)
	Compare(string, string) bool
}

type EvaluatorInterface interface {
	HasPermissions(context.Context, string, []string) (bool, error)
}

type AuditorInterface interface {
	Log(context.Context, audit.Entry)
}

type GuardsInterface interface {
	Require(authorization.Requirement) func(http.Handler) http.Handler
}
