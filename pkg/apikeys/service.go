// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package apikeys

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/canonical/erp-auth/internal/authorization"
	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/storage"
	"github.com/canonical/erp-auth/internal/tenancy"
	"github.com/canonical/erp-auth/internal/tracing"
	domain "github.com/canonical/erp-auth/internal/types"
	"github.com/canonical/erp-auth/pkg/audit"
	"github.com/canonical/erp-auth/pkg/authentication"
)

const (
	KeyPrefix = "sk_"

	secretBytes = 32
	// PrefixLength covers "sk_" and the first 8 hex characters.
	PrefixLength = len(KeyPrefix) + 8
	keyLength    = len(KeyPrefix) + 2*secretBytes

	resourceAPIKey = "api_key"
)

var (
	ErrInvalidAPIKey  = types.Unauthorized("invalid api key")
	ErrAPIKeyNotFound = types.NotFound("api key not found")
	ErrKeyMintsKey    = types.Forbidden("api keys cannot create api keys")
	ErrExpiryInPast   = types.BadRequest("expiresAt must be in the future")
	ErrTenantRequired = types.Unauthorized("tenant context required")

	ErrScopeNotGranted = types.Forbidden("scopes exceed your permissions")
)

type Service struct {
	storage   StorageInterface
	hasher    HasherInterface
	evaluator EvaluatorInterface
	auditor   AuditorInterface
	now       func() time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Create mints a key owned by the caller. Scopes may not exceed what the
// caller's role grants.
func (s *Service) Create(ctx context.Context, caller *identity.Identity, req *CreateRequest) (*CreatedKey, error) {
	ctx, span := s.tracer.Start(ctx, "apikeys.Service.Create")
	defer span.End()

	if caller.IsAPIKey {
		return nil, ErrKeyMintsKey
	}

	tenant, ok := tenancy.TenantIDFromContext(ctx)
	if !ok {
		return nil, ErrTenantRequired
	}

	scopes := make([]string, 0, len(req.Scopes))
	for _, scope := range req.Scopes {
		scope = strings.TrimSpace(scope)
		if !authorization.ValidPermissionKey(scope) {
			return nil, types.BadRequest(fmt.Sprintf("invalid scope: %q", scope))
		}
		scopes = append(scopes, scope)
	}

	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, ErrExpiryInPast
	}

	granted, err := s.evaluator.HasPermissions(ctx, caller.ID, scopes)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, ErrScopeNotGranted
	}

	raw, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(raw)
	if err != nil {
		return nil, err
	}

	key, err := s.storage.CreateAPIKey(ctx, &domain.APIKey{
		OrganizationID: tenant,
		UserID:         caller.ID,
		Name:           strings.TrimSpace(req.Name),
		Prefix:         raw[:PrefixLength],
		KeyHash:        hash,
		Scopes:         scopes,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		UserID:   caller.ID,
		Action:   audit.ActionAPIKeyCreated,
		Resource: resourceAPIKey,
		Details:  map[string]interface{}{"apiKeyId": key.ID, "name": key.Name, "prefix": key.Prefix, "scopes": key.Scopes},
	})

	return &CreatedKey{APIKey: key, Key: raw}, nil
}

func (s *Service) List(ctx context.Context, limit, offset uint64) ([]*domain.APIKey, error) {
	ctx, span := s.tracer.Start(ctx, "apikeys.Service.List")
	defer span.End()

	return s.storage.ListAPIKeys(ctx, limit, offset)
}

func (s *Service) Revoke(ctx context.Context, caller *identity.Identity, id string) error {
	ctx, span := s.tracer.Start(ctx, "apikeys.Service.Revoke")
	defer span.End()

	err := s.storage.RevokeAPIKey(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrAPIKeyNotFound
	}
	if err != nil {
		return err
	}

	s.auditor.Log(ctx, audit.Entry{
		UserID:   caller.ID,
		Action:   audit.ActionAPIKeyRevoked,
		Resource: resourceAPIKey,
		Details:  map[string]interface{}{"apiKeyId": id},
	})

	return nil
}

// Authenticate resolves a raw key to the identity of its owner. Candidates
// are looked up by prefix across organizations; the bcrypt comparison
// decides.
func (s *Service) Authenticate(ctx context.Context, raw string) (*identity.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "apikeys.Service.Authenticate")
	defer span.End()

	if !wellFormed(raw) {
		return nil, ErrInvalidAPIKey
	}

	unscoped := tenancy.WithTenantID(ctx, "")

	candidates, err := s.storage.FindAPIKeysByPrefix(unscoped, raw[:PrefixLength])
	if err != nil {
		return nil, err
	}

	var key *domain.APIKey
	for _, c := range candidates {
		if s.hasher.Compare(c.KeyHash, raw) {
			key = c
			break
		}
	}

	if key == nil || key.RevokedAt != nil {
		s.logger.Security().AuthnFailure(raw[:PrefixLength], "api_key_unknown")
		return nil, ErrInvalidAPIKey
	}

	now := s.now()
	if key.ExpiresAt != nil && !now.Before(*key.ExpiresAt) {
		s.logger.Security().AuthnFailure(key.Prefix, "api_key_expired")
		return nil, ErrInvalidAPIKey
	}

	scoped := tenancy.WithTenantID(ctx, key.OrganizationID)

	if err := s.storage.TouchAPIKey(scoped, key.ID, now); err != nil {
		s.logger.Warnf("failed to record api key %s usage: %v", key.ID, err)
	}

	owner, err := s.storage.GetUserWithRole(scoped, key.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, err
	}

	if !owner.User.Usable() || owner.User.OrganizationID != key.OrganizationID {
		s.logger.Security().AuthnFailure(key.Prefix, "api_key_owner_disabled")
		return nil, ErrInvalidAPIKey
	}

	s.logger.Security().AuthnSuccess(owner.User.ID, key.OrganizationID, "api_key")

	id := &identity.Identity{
		ID:       owner.User.ID,
		Email:    owner.User.Email,
		RoleID:   owner.User.RoleID,
		TenantID: key.OrganizationID,
		IsAPIKey: true,
		APIKeyID: key.ID,
		Scopes:   key.Scopes,
	}
	if owner.Role != nil {
		id.Role = authentication.NormalizeRole(owner.Role)
	}

	return id, nil
}

// GenerateKey returns a fresh raw key.
func GenerateKey() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(b), nil
}

func wellFormed(raw string) bool {
	if len(raw) != keyLength || !strings.HasPrefix(raw, KeyPrefix) {
		return false
	}
	_, err := hex.DecodeString(raw[len(KeyPrefix):])
	return err == nil
}

// HashKey derives the stored form of a raw key, for seeding keys offline.
func HashKey(hasher HasherInterface, raw string) (prefix, hash string, err error) {
	if !wellFormed(raw) {
		return "", "", ErrInvalidAPIKey
	}

	hash, err = hasher.Hash(raw)
	if err != nil {
		return "", "", err
	}

	return raw[:PrefixLength], hash, nil
}

func NewService(
	storage StorageInterface,
	hasher HasherInterface,
	evaluator EvaluatorInterface,
	auditor AuditorInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	s := new(Service)

	s.storage = storage
	s.hasher = hasher
	s.evaluator = evaluator
	s.auditor = auditor
	s.now = time.Now

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
