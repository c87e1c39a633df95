// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package apikeys

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/storage"
	"github.com/canonical/erp-auth/internal/tenancy"
	"github.com/canonical/erp-auth/internal/tracing"
	"github.com/canonical/erp-auth/internal/types"
	"github.com/canonical/erp-auth/pkg/audit"
	"github.com/canonical/erp-auth/pkg/authentication"
)

//go:generate mockgen -build_flags=--mod=mod -package apikeys -destination ./mock_apikeys.go -source=./interfaces.go

type serviceMocks struct {
	storage   *MockStorageInterface
	evaluator *MockEvaluatorInterface
	auditor   *MockAuditorInterface
}

func newTestService(ctrl *gomock.Controller) (*Service, *serviceMocks) {
	mocks := &serviceMocks{
		storage:   NewMockStorageInterface(ctrl),
		evaluator: NewMockEvaluatorInterface(ctrl),
		auditor:   NewMockAuditorInterface(ctrl),
	}

	logger := logging.NewNoopLogger()
	s := NewService(
		mocks.storage,
		authentication.NewBcryptHasher(bcrypt.MinCost),
		mocks.evaluator,
		mocks.auditor,
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test", logger),
		logger,
	)

	return s, mocks
}

func TestService_Create(t *testing.T) {
	caller := &identity.Identity{ID: "user-1", TenantID: "org-1"}
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-time.Hour)

	testCases := []struct {
		name        string
		caller      *identity.Identity
		req         *CreateRequest
		setupMocks  func(*serviceMocks)
		expectedErr error
	}{
		{
			name:   "success",
			caller: caller,
			req:    &CreateRequest{Name: " ci ", Scopes: []string{"users:read", "invoices:*"}, ExpiresAt: &future},
			setupMocks: func(m *serviceMocks) {
				m.evaluator.EXPECT().HasPermissions(gomock.Any(), "user-1", []string{"users:read", "invoices:*"}).Return(true, nil)
				m.storage.EXPECT().CreateAPIKey(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, k *types.APIKey) (*types.APIKey, error) {
						if k.OrganizationID != "org-1" || k.UserID != "user-1" || k.Name != "ci" {
							t.Errorf("unexpected key %+v", k)
						}
						if !strings.HasPrefix(k.Prefix, KeyPrefix) || len(k.Prefix) != PrefixLength {
							t.Errorf("unexpected prefix %q", k.Prefix)
						}
						out := *k
						out.ID = "key-1"
						return &out, nil
					},
				)
				m.auditor.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
					if e.Action != audit.ActionAPIKeyCreated {
						t.Errorf("unexpected audit action %s", e.Action)
					}
				})
			},
		},
		{
			name:        "api key caller",
			caller:      &identity.Identity{ID: "user-1", TenantID: "org-1", IsAPIKey: true},
			req:         &CreateRequest{Name: "ci", Scopes: []string{"users:read"}},
			setupMocks:  func(*serviceMocks) {},
			expectedErr: ErrKeyMintsKey,
		},
		{
			name:        "expiry in the past",
			caller:      caller,
			req:         &CreateRequest{Name: "ci", Scopes: []string{"users:read"}, ExpiresAt: &past},
			setupMocks:  func(*serviceMocks) {},
			expectedErr: ErrExpiryInPast,
		},
		{
			name:   "scope beyond caller permissions",
			caller: caller,
			req:    &CreateRequest{Name: "ci", Scopes: []string{"*:*"}},
			setupMocks: func(m *serviceMocks) {
				m.evaluator.EXPECT().HasPermissions(gomock.Any(), "user-1", []string{"*:*"}).Return(false, nil)
			},
			expectedErr: ErrScopeNotGranted,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, mocks := newTestService(ctrl)
			tc.setupMocks(mocks)

			ctx := tenancy.WithTenantID(context.Background(), "org-1")
			created, err := s.Create(ctx, tc.caller, tc.req)

			if tc.expectedErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(created.Key) != keyLength || !strings.HasPrefix(created.Key, created.Prefix) {
					t.Errorf("unexpected raw key %q", created.Key)
				}
				if bcrypt.CompareHashAndPassword([]byte(created.KeyHash), []byte(created.Key)) != nil {
					t.Error("stored hash does not match the returned key")
				}
				return
			}

			if !errors.Is(err, tc.expectedErr) {
				t.Fatalf("expected %v, got %v", tc.expectedErr, err)
			}
		})
	}
}

func TestService_CreateRejectsMalformedScope(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, _ := newTestService(ctrl)

	ctx := tenancy.WithTenantID(context.Background(), "org-1")
	_, err := s.Create(ctx, &identity.Identity{ID: "user-1"}, &CreateRequest{Name: "ci", Scopes: []string{"users"}})
	if err == nil || !strings.Contains(err.Error(), "invalid scope") {
		t.Fatalf("expected invalid scope error, got %v", err)
	}
}

func TestService_Authenticate(t *testing.T) {
	raw, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	other, _ := GenerateKey()
	otherHash, _ := bcrypt.GenerateFromPassword([]byte(other), bcrypt.MinCost)

	past := time.Now().Add(-time.Hour)
	revoked := time.Now().Add(-time.Minute)

	key := func() *types.APIKey {
		return &types.APIKey{
			ID:             "key-1",
			OrganizationID: "org-1",
			UserID:         "user-1",
			Prefix:         raw[:PrefixLength],
			KeyHash:        string(hash),
			Scopes:         []string{"users:read"},
		}
	}
	owner := func(active bool, org string) *types.UserWithRole {
		return &types.UserWithRole{
			User: &types.User{ID: "user-1", OrganizationID: org, Email: "a@x.com", RoleID: "role-1", IsActive: active},
			Role: &types.Role{ID: "role-1", Name: "Accountant", Level: 40, Category: "financial"},
		}
	}

	testCases := []struct {
		name        string
		raw         string
		setupMocks  func(*serviceMocks)
		expectedErr error
	}{
		{
			name: "success",
			raw:  raw,
			setupMocks: func(m *serviceMocks) {
				collision := key()
				collision.ID = "key-0"
				collision.KeyHash = string(otherHash)

				m.storage.EXPECT().FindAPIKeysByPrefix(gomock.Any(), raw[:PrefixLength]).DoAndReturn(
					func(ctx context.Context, _ string) ([]*types.APIKey, error) {
						if _, ok := tenancy.TenantIDFromContext(ctx); ok {
							t.Error("prefix lookup must not be tenant scoped")
						}
						return []*types.APIKey{collision, key()}, nil
					},
				)
				m.storage.EXPECT().TouchAPIKey(gomock.Any(), "key-1", gomock.Any()).Return(nil)
				m.storage.EXPECT().GetUserWithRole(gomock.Any(), "user-1").DoAndReturn(
					func(ctx context.Context, _ string) (*types.UserWithRole, error) {
						if tenant, _ := tenancy.TenantIDFromContext(ctx); tenant != "org-1" {
							t.Errorf("owner lookup bound to %q", tenant)
						}
						return owner(true, "org-1"), nil
					},
				)
			},
		},
		{
			name:        "malformed",
			raw:         "sk_nothex",
			setupMocks:  func(*serviceMocks) {},
			expectedErr: ErrInvalidAPIKey,
		},
		{
			name: "no candidate matches",
			raw:  raw,
			setupMocks: func(m *serviceMocks) {
				k := key()
				k.KeyHash = string(otherHash)
				m.storage.EXPECT().FindAPIKeysByPrefix(gomock.Any(), gomock.Any()).Return([]*types.APIKey{k}, nil)
			},
			expectedErr: ErrInvalidAPIKey,
		},
		{
			name: "revoked",
			raw:  raw,
			setupMocks: func(m *serviceMocks) {
				k := key()
				k.RevokedAt = &revoked
				m.storage.EXPECT().FindAPIKeysByPrefix(gomock.Any(), gomock.Any()).Return([]*types.APIKey{k}, nil)
			},
			expectedErr: ErrInvalidAPIKey,
		},
		{
			name: "expired",
			raw:  raw,
			setupMocks: func(m *serviceMocks) {
				k := key()
				k.ExpiresAt = &past
				m.storage.EXPECT().FindAPIKeysByPrefix(gomock.Any(), gomock.Any()).Return([]*types.APIKey{k}, nil)
			},
			expectedErr: ErrInvalidAPIKey,
		},
		{
			name: "owner deactivated",
			raw:  raw,
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().FindAPIKeysByPrefix(gomock.Any(), gomock.Any()).Return([]*types.APIKey{key()}, nil)
				m.storage.EXPECT().TouchAPIKey(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				m.storage.EXPECT().GetUserWithRole(gomock.Any(), "user-1").Return(owner(false, "org-1"), nil)
			},
			expectedErr: ErrInvalidAPIKey,
		},
		{
			name: "owner gone",
			raw:  raw,
			setupMocks: func(m *serviceMocks) {
				m.storage.EXPECT().FindAPIKeysByPrefix(gomock.Any(), gomock.Any()).Return([]*types.APIKey{key()}, nil)
				m.storage.EXPECT().TouchAPIKey(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("timeout"))
				m.storage.EXPECT().GetUserWithRole(gomock.Any(), "user-1").Return(nil, storage.ErrNotFound)
			},
			expectedErr: ErrInvalidAPIKey,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, mocks := newTestService(ctrl)
			tc.setupMocks(mocks)

			id, err := s.Authenticate(tenancy.WithTenantID(context.Background(), "org-header"), tc.raw)

			if !errors.Is(err, tc.expectedErr) {
				t.Fatalf("expected %v, got %v", tc.expectedErr, err)
			}
			if tc.expectedErr != nil {
				return
			}

			if !id.IsAPIKey || id.APIKeyID != "key-1" || id.TenantID != "org-1" {
				t.Errorf("unexpected identity %+v", id)
			}
			if id.Role.Name != "Accountant" || len(id.Scopes) != 1 || id.Scopes[0] != "users:read" {
				t.Errorf("unexpected role or scopes %+v", id)
			}
		})
	}
}

func TestService_Revoke(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, mocks := newTestService(ctrl)
	caller := &identity.Identity{ID: "user-1", TenantID: "org-1"}

	mocks.storage.EXPECT().RevokeAPIKey(gomock.Any(), "key-1").Return(nil)
	mocks.auditor.EXPECT().Log(gomock.Any(), gomock.Any())
	if err := s.Revoke(context.Background(), caller, "key-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mocks.storage.EXPECT().RevokeAPIKey(gomock.Any(), "key-other-org").Return(storage.ErrNotFound)
	if err := s.Revoke(context.Background(), caller, "key-other-org"); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHashKey(t *testing.T) {
	raw, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	prefix, hash, err := HashKey(authentication.NewBcryptHasher(bcrypt.MinCost), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prefix != raw[:PrefixLength] {
		t.Errorf("expected prefix %q, got %q", raw[:PrefixLength], prefix)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) != nil {
		t.Error("hash does not match")
	}

	if _, _, err := HashKey(authentication.NewBcryptHasher(bcrypt.MinCost), "nope"); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("expected invalid key, got %v", err)
	}
}
