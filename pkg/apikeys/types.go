// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package apikeys

import (
	"time"

	"github.com/canonical/erp-auth/internal/types"
)

type CreateRequest struct {
	Name      string     `json:"name" validate:"required,max=100"`
	Scopes    []string   `json:"scopes" validate:"required,min=1,dive,required"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// CreatedKey carries the plaintext secret. It is returned once and never
// stored.
type CreatedKey struct {
	*types.APIKey
	Key string `json:"key"`
}
