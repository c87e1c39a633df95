// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package identity

import (
	"context"
	"strings"
)

// Role is the normalized role shape carried on every authenticated request.
type Role struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Level              int    `json:"level"`
	Category           string `json:"category"`
	IsSystemSuperAdmin bool   `json:"isSystemSuperAdmin"`
}

// Identity is the caller resolved from an access token or an API key.
type Identity struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	RoleID    string   `json:"roleId"`
	Role      Role     `json:"role"`
	TenantID  string   `json:"tenantId"`
	SessionID string   `json:"sessionId,omitempty"`
	IsAPIKey  bool     `json:"isApiKey"`
	APIKeyID  string   `json:"apiKeyId,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

// HasRoleName compares role names case and whitespace insensitively.
func (i *Identity) HasRoleName(names ...string) bool {
	if i == nil {
		return false
	}

	current := NormalizeRoleName(i.Role.Name)
	for _, n := range names {
		if NormalizeRoleName(n) == current {
			return true
		}
	}
	return false
}

func NormalizeRoleName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

type contextKey struct{}

var identityContextKey = contextKey{}

// WithIdentity returns a new context carrying the identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// FromContext returns the identity attached by the authentication layer.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	return id, ok && id != nil
}
