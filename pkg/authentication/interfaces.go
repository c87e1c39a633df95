// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"time"

	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/types"
	"github.com/canonical/erp-auth/pkg/audit"
)

type ServiceInterface interface {
	Register(context.Context, *RegisterRequest, ClientInfo) (*AuthResult, error)
	Login(context.Context, *LoginRequest, ClientInfo) (*AuthResult, error)
	Refresh(context.Context, string, ClientInfo) (*TokenPair, error)
	Logout(context.Context, string, ClientInfo) error
	ForgotPassword(context.Context, string, ClientInfo) error
	ResetPassword(context.Context, string, string, ClientInfo) error
	Me(context.Context, *identity.Identity) (*UserView, error)
}

// StorageInterface is the slice of the storage layer the auth flows touch.
type StorageInterface interface {
	WithTx(context.Context, func(context.Context) error) error

	CreateOrganization(context.Context, *types.Organization) (*types.Organization, error)
	CreateRole(context.Context, *types.Role) (*types.Role, error)
	GrantPermissionKeys(context.Context, string, []string) error

	CreateUser(context.Context, *types.User) (*types.User, error)
	GetUserByID(context.Context, string) (*types.User, error)
	GetUserWithRole(context.Context, string) (*types.UserWithRole, error)
	FindUsersByEmail(context.Context, string) ([]*types.User, error)
	UpdateUserPassword(context.Context, string, string) error

	CreateSession(context.Context, *types.Session) (*types.Session, error)
	UpdateSessionToken(context.Context, string, string) error
	FindSessionByID(context.Context, string) (*types.Session, error)
	ConsumeSession(context.Context, string, string) (bool, error)
	SetSessionReplacement(context.Context, string, string) error
	RevokeSession(context.Context, string) error
	RevokeAllUserSessions(context.Context, string) (int64, error)

	CreateResetToken(context.Context, *types.PasswordResetToken) (*types.PasswordResetToken, error)
	DeleteUnusedResetTokens(context.Context, string) error
	ListResetTokens(context.Context, string) ([]*types.PasswordResetToken, error)
	MarkResetTokenUsed(context.Context, string) (bool, error)
}

type TokenServiceInterface interface {
	GenerateTokens(TokenClaims) (*TokenPair, error)
	GenerateResetToken(string) (string, error)
	VerifyAccessToken(string) (*AccessClaims, error)
	VerifyRefreshToken(string) (*RefreshClaims, error)
	VerifyResetToken(string) (*ResetClaims, error)
	RefreshTTL() time.Duration
	ResetTTL() time.Duration
}

type PasswordHasherInterface interface {
	Hash(string) (string, error)
	Compare(string, string) bool
}

type AuditorInterface interface {
	Log(context.Context, audit.Entry)
}

// ResetNotifierInterface delivers a freshly minted reset token to its owner.
type ResetNotifierInterface interface {
	SendResetToken(context.Context, *types.User, string) error
}

type TokenVerifierInterface interface {
	// VerifyAccessToken checks signature, issuer and expiry of a bearer token
	VerifyAccessToken(string) (*AccessClaims, error)
}

type IdentityStoreInterface interface {
	GetUserWithRole(context.Context, string) (*types.UserWithRole, error)
	FindSessionByID(context.Context, string) (*types.Session, error)
}

type APIKeyAuthenticatorInterface interface {
	// Authenticate resolves a raw x-api-key value to the identity acting through it
	Authenticate(context.Context, string) (*identity.Identity, error)
}
