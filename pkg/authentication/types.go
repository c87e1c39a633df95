// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/types"
)

type RegisterRequest struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	FirstName        string `json:"firstName" validate:"required,max=100"`
	LastName         string `json:"lastName" validate:"required,max=100"`
	OrganizationName string `json:"organizationName,omitempty" validate:"omitempty,max=200"`
	OrganizationID   string `json:"organizationId,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ClientInfo is the request metadata recorded on sessions and audit entries.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type UserView struct {
	ID             string        `json:"id"`
	Email          string        `json:"email"`
	FirstName      string        `json:"firstName"`
	LastName       string        `json:"lastName"`
	OrganizationID string        `json:"organizationId"`
	Role           identity.Role `json:"role"`
}

type AuthResult struct {
	User *UserView `json:"user"`
	TokenPair
}

func newUserView(u *types.User, r *types.Role) *UserView {
	v := &UserView{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		OrganizationID: u.OrganizationID,
	}
	if r != nil {
		v.Role = NormalizeRole(r)
	}
	return v
}

// NormalizeRole is the single conversion from a stored role to the shape
// carried on identities.
func NormalizeRole(r *types.Role) identity.Role {
	return identity.Role{
		ID:                 r.ID,
		Name:               r.Name,
		Level:              r.Level,
		Category:           r.Category,
		IsSystemSuperAdmin: r.IsSystemSuperAdmin,
	}
}
