// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/mock/gomock"

	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/storage"
	"github.com/canonical/erp-auth/internal/tracing"
	"github.com/canonical/erp-auth/internal/types"
)

//go:generate mockgen -build_flags=--mod=mod -package authentication -destination ./mock_identity.go github.com/canonical/erp-auth/pkg/authentication TokenVerifierInterface,IdentityStoreInterface,APIKeyAuthenticatorInterface

type middlewareMocks struct {
	verifier *MockTokenVerifierInterface
	store    *MockIdentityStoreInterface
	apiKeys  *MockAPIKeyAuthenticatorInterface
}

func validClaims() *AccessClaims {
	return &AccessClaims{
		Email:     "a@x.com",
		SessionID: "session-1",
		TenantID:  "org-1",
		Type:      AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1",
		},
	}
}

func loadedUser(orgID string, active bool) *types.UserWithRole {
	return &types.UserWithRole{
		User: &types.User{ID: "user-1", OrganizationID: orgID, RoleID: "role-1", Email: "a@x.com", IsActive: active},
		Role: &types.Role{ID: "role-1", Name: "Sales Manager", Level: 60, Category: "management"},
	}
}

func TestMiddleware_Authenticate(t *testing.T) {
	tests := []struct {
		name               string
		headers            map[string]string
		setupMocks         func(*middlewareMocks)
		expectedStatusCode int
		expectedMessage    string
		expectedIdentity   func(*testing.T, *identity.Identity)
	}{
		{
			name:               "Missing credentials - rejects request",
			setupMocks:         func(*middlewareMocks) {},
			expectedStatusCode: http.StatusUnauthorized,
			expectedMessage:    "missing authorization header",
		},
		{
			name:               "Raw token without Bearer prefix - rejects request",
			headers:            map[string]string{"Authorization": "InvalidToken"},
			setupMocks:         func(*middlewareMocks) {},
			expectedStatusCode: http.StatusUnauthorized,
			expectedMessage:    "missing authorization header",
		},
		{
			name:    "Token verification fails - rejects request",
			headers: map[string]string{"Authorization": "Bearer invalid-token"},
			setupMocks: func(m *middlewareMocks) {
				m.verifier.EXPECT().VerifyAccessToken("invalid-token").Return(nil, fmt.Errorf("%w: bad signature", ErrTokenInvalid))
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedMessage:    "invalid token",
		},
		{
			name:    "Expired token - rejects request",
			headers: map[string]string{"Authorization": "Bearer old-token"},
			setupMocks: func(m *middlewareMocks) {
				m.verifier.EXPECT().VerifyAccessToken("old-token").Return(nil, ErrTokenExpired)
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedMessage:    "token expired",
		},
		{
			name:    "Token without tenant - rejects request",
			headers: map[string]string{"Authorization": "Bearer valid-token"},
			setupMocks: func(m *middlewareMocks) {
				claims := validClaims()
				claims.TenantID = ""
				m.verifier.EXPECT().VerifyAccessToken("valid-token").Return(claims, nil)
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedMessage:    "invalid token payload",
		},
		{
			name:    "Unknown user - rejects request",
			headers: map[string]string{"Authorization": "Bearer valid-token"},
			setupMocks: func(m *middlewareMocks) {
				m.verifier.EXPECT().VerifyAccessToken("valid-token").Return(validClaims(), nil)
				m.store.EXPECT().GetUserWithRole(gomock.Any(), "user-1").Return(nil, storage.ErrNotFound)
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedMessage:    "user not found",
		},
		{
			name:    "Deactivated user - rejects request",
			headers: map[string]string{"Authorization": "Bearer valid-token"},
			setupMocks: func(m *middlewareMocks) {
				m.verifier.EXPECT().VerifyAccessToken("valid-token").Return(validClaims(), nil)
				m.store.EXPECT().GetUserWithRole(gomock.Any(), "user-1").Return(loadedUser("org-1", false), nil)
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedMessage:    "account disabled",
		},
		{
			name:    "Token tenant differs from user organization - rejects request",
			headers: map[string]string{"Authorization": "Bearer valid-token"},
			setupMocks: func(m *middlewareMocks) {
				m.verifier.EXPECT().VerifyAccessToken("valid-token").Return(validClaims(), nil)
				m.store.EXPECT().GetUserWithRole(gomock.Any(), "user-1").Return(loadedUser("org-2", true), nil)
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedMessage:    "tenant mismatch",
		},
		{
			name:    "Revoked session - rejects request",
			headers: map[string]string{"Authorization": "Bearer valid-token"},
			setupMocks: func(m *middlewareMocks) {
				m.verifier.EXPECT().VerifyAccessToken("valid-token").Return(validClaims(), nil)
				m.store.EXPECT().GetUserWithRole(gomock.Any(), "user-1").Return(loadedUser("org-1", true), nil)
				m.store.EXPECT().FindSessionByID(gomock.Any(), "session-1").Return(&types.Session{ID: "session-1", IsValid: false}, nil)
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedMessage:    "session revoked",
		},
		{
			name:    "Storage failure - internal error",
			headers: map[string]string{"Authorization": "Bearer valid-token"},
			setupMocks: func(m *middlewareMocks) {
				m.verifier.EXPECT().VerifyAccessToken("valid-token").Return(validClaims(), nil)
				m.store.EXPECT().GetUserWithRole(gomock.Any(), "user-1").Return(nil, fmt.Errorf("connection reset"))
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedMessage:    "internal server error",
		},
		{
			name:    "Valid token",
			headers: map[string]string{"Authorization": "Bearer valid-token"},
			setupMocks: func(m *middlewareMocks) {
				m.verifier.EXPECT().VerifyAccessToken("valid-token").Return(validClaims(), nil)
				m.store.EXPECT().GetUserWithRole(gomock.Any(), "user-1").Return(loadedUser("org-1", true), nil)
				m.store.EXPECT().FindSessionByID(gomock.Any(), "session-1").Return(&types.Session{ID: "session-1", IsValid: true}, nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedIdentity: func(t *testing.T, id *identity.Identity) {
				if id.ID != "user-1" || id.TenantID != "org-1" || id.SessionID != "session-1" {
					t.Errorf("unexpected identity %+v", id)
				}
				if id.Role.Name != "Sales Manager" || id.Role.Level != 60 {
					t.Errorf("unexpected role %+v", id.Role)
				}
				if id.IsAPIKey {
					t.Errorf("bearer identity flagged as api key")
				}
			},
		},
		{
			name:    "Bearer wins over api key",
			headers: map[string]string{"Authorization": "Bearer invalid-token", APIKeyHeader: "sk_abc"},
			setupMocks: func(m *middlewareMocks) {
				m.verifier.EXPECT().VerifyAccessToken("invalid-token").Return(nil, ErrTokenInvalid)
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedMessage:    "invalid token",
		},
		{
			name:    "Invalid api key - rejects request",
			headers: map[string]string{APIKeyHeader: "sk_bad"},
			setupMocks: func(m *middlewareMocks) {
				m.apiKeys.EXPECT().Authenticate(gomock.Any(), "sk_bad").Return(nil, fmt.Errorf("no key with prefix"))
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedMessage:    "invalid api key",
		},
		{
			name:    "Valid api key",
			headers: map[string]string{APIKeyHeader: "sk_good"},
			setupMocks: func(m *middlewareMocks) {
				m.apiKeys.EXPECT().Authenticate(gomock.Any(), "sk_good").Return(&identity.Identity{
					ID:       "user-1",
					TenantID: "org-1",
					IsAPIKey: true,
					APIKeyID: "key-1",
					Scopes:   []string{"users:read"},
				}, nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedIdentity: func(t *testing.T, id *identity.Identity) {
				if !id.IsAPIKey || id.APIKeyID != "key-1" {
					t.Errorf("unexpected identity %+v", id)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mocks := &middlewareMocks{
				verifier: NewMockTokenVerifierInterface(ctrl),
				store:    NewMockIdentityStoreInterface(ctrl),
				apiKeys:  NewMockAPIKeyAuthenticatorInterface(ctrl),
			}
			tt.setupMocks(mocks)

			logger := logging.NewNoopLogger()
			middleware := NewMiddleware(mocks.verifier, mocks.store, mocks.apiKeys, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", logger), logger)

			var got *identity.Identity
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = identity.FromContext(r.Context())
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("success"))
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()

			middleware.Authenticate()(handler).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatusCode {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatusCode, rr.Code, rr.Body.String())
			}

			if tt.expectedMessage != "" {
				var body struct {
					Message string `json:"message"`
				}
				if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if body.Message != tt.expectedMessage {
					t.Errorf("expected message %q, got %q", tt.expectedMessage, body.Message)
				}
			}

			if tt.expectedIdentity != nil {
				if got == nil {
					t.Fatal("expected identity in context")
				}
				tt.expectedIdentity(t, got)
			}
		})
	}
}

func TestMiddleware_GetBearerToken(t *testing.T) {
	tests := []struct {
		name          string
		authHeader    string
		expectedToken string
		expectedFound bool
	}{
		{
			name:          "No Authorization header",
			authHeader:    "",
			expectedToken: "",
			expectedFound: false,
		},
		{
			name:          "Bearer token",
			authHeader:    "Bearer my-token-123",
			expectedToken: "my-token-123",
			expectedFound: true,
		},
		{
			name:          "Raw token without Bearer prefix",
			authHeader:    "my-token-123",
			expectedToken: "",
			expectedFound: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			logger := logging.NewNoopLogger()
			middleware := NewMiddleware(nil, nil, nil, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", logger), logger)

			headers := http.Header{}
			if test.authHeader != "" {
				headers.Set("Authorization", test.authHeader)
			}

			token, found := middleware.getBearerToken(headers)

			if token != test.expectedToken {
				t.Errorf("expected token %q, got %q", test.expectedToken, token)
			}
			if found != test.expectedFound {
				t.Errorf("expected found %v, got %v", test.expectedFound, found)
			}
		})
	}
}
