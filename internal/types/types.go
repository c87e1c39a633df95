// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"time"
)

type Organization struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type User struct {
	ID             string     `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organizationId"`
	RoleID         string     `db:"role_id" json:"roleId"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	FirstName      string     `db:"first_name" json:"firstName"`
	LastName       string     `db:"last_name" json:"lastName"`
	IsActive       bool       `db:"is_active" json:"isActive"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// Usable reports whether the account may authenticate.
func (u *User) Usable() bool {
	return u != nil && u.IsActive && u.DeletedAt == nil
}

type Role struct {
	ID                 string    `db:"id" json:"id"`
	OrganizationID     string    `db:"organization_id" json:"organizationId"`
	Name               string    `db:"name" json:"name"`
	Description        string    `db:"description" json:"description,omitempty"`
	Level              int       `db:"level" json:"level"`
	Category           string    `db:"category" json:"category"`
	IsSystem           bool      `db:"is_system" json:"isSystem"`
	IsSystemSuperAdmin bool      `db:"is_system_super_admin" json:"isSystemSuperAdmin"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}

type Permission struct {
	ID          string    `db:"id" json:"id"`
	Resource    string    `db:"resource" json:"resource"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Key renders the permission in resource:action form.
func (p *Permission) Key() string {
	return p.Resource + ":" + p.Action
}

// UserWithRole is a user together with its role and the role's permission
// keys, loaded in one pass for authorization decisions.
type UserWithRole struct {
	User        *User
	Role        *Role
	Permissions []string
}

type Session struct {
	ID               string     `db:"id"`
	UserID           string     `db:"user_id"`
	RefreshTokenHash string     `db:"refresh_token_hash"`
	UserAgent        string     `db:"user_agent"`
	IPAddress        string     `db:"ip_address"`
	IsValid          bool       `db:"is_valid"`
	ExpiresAt        time.Time  `db:"expires_at"`
	ReplacedBy       *string    `db:"replaced_by"`
	RevokedAt        *time.Time `db:"revoked_at"`
	CreatedAt        time.Time  `db:"created_at"`
}

type SessionState string

const (
	// PendingTokenHash marks a session whose refresh token has not been
	// issued yet.
	PendingTokenHash = "pending"

	SessionPending SessionState = "PENDING"
	SessionActive  SessionState = "ACTIVE"
	SessionRevoked SessionState = "REVOKED"
)

func (s *Session) State() SessionState {
	switch {
	case !s.IsValid:
		return SessionRevoked
	case s.RefreshTokenHash == PendingTokenHash:
		return SessionPending
	default:
		return SessionActive
	}
}

type PasswordResetToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	Used      bool      `db:"used"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

type APIKey struct {
	ID             string     `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organizationId"`
	UserID         string     `db:"user_id" json:"userId"`
	Name           string     `db:"name" json:"name"`
	Prefix         string     `db:"prefix" json:"prefix"`
	KeyHash        string     `db:"key_hash" json:"-"`
	Scopes         []string   `db:"scopes" json:"scopes"`
	LastUsedAt     *time.Time `db:"last_used_at" json:"lastUsedAt,omitempty"`
	ExpiresAt      *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
	RevokedAt      *time.Time `db:"revoked_at" json:"revokedAt,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

type AuditLog struct {
	ID             string          `db:"id" json:"id"`
	OrganizationID *string         `db:"organization_id" json:"organizationId,omitempty"`
	UserID         *string         `db:"user_id" json:"userId,omitempty"`
	Action         string          `db:"action" json:"action"`
	Resource       string          `db:"resource" json:"resource"`
	Details        json.RawMessage `db:"details" json:"details,omitempty"`
	IPAddress      string          `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent      string          `db:"user_agent" json:"userAgent,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

// AuditFilter narrows an audit listing; empty fields are ignored.
type AuditFilter struct {
	OrganizationID string
	ResourcePrefix string
	Action         string
	Limit          uint64
	Offset         uint64
}
