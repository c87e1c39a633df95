// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tracing"
	"github.com/canonical/erp-auth/pkg/audit"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Path    string          `json:"path"`
}

func newTestRouter(t *testing.T, env *testEnv, id *identity.Identity) http.Handler {
	t.Helper()

	logger := logging.NewNoopLogger()
	api := NewAPI(env.service, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", logger), logger)

	passthrough := func(next http.Handler) http.Handler { return next }

	r := chi.NewRouter()
	api.RegisterPublicEndpoints(r, passthrough)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if id != nil {
					req = req.WithContext(identity.WithIdentity(req.Context(), id))
				}
				next.ServeHTTP(w, req)
			})
		})
		api.RegisterEndpoints(r)
	})

	return r
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:5555"
	req.Header.Set("User-Agent", "handler-test")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())

	return rec.Code, env
}

func TestAPI_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	h := newTestRouter(t, env, nil)

	code, body := do(t, h, http.MethodPost, "/auth/register", map[string]string{
		"email":     "a@x.com",
		"password":  "Abc12345!",
		"firstName": "A",
		"lastName":  "B",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, body.Success)
	assert.Equal(t, "/auth/register", body.Path)

	var registered struct {
		User struct {
			Email string        `json:"email"`
			Role  identity.Role `json:"role"`
		} `json:"user"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int64  `json:"expiresIn"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &registered))
	assert.Equal(t, "a@x.com", registered.User.Email)
	assert.Equal(t, AdminRoleName, registered.User.Role.Name)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)
	assert.Equal(t, int64(900), registered.ExpiresIn)

	entries := env.auditor.actions(audit.ActionRegisterOrg)
	require.Len(t, entries, 1)
	assert.Equal(t, "192.0.2.10", entries[0].IPAddress)
	assert.Equal(t, "handler-test", entries[0].UserAgent)

	code, body = do(t, h, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "Abc12345!"})
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)

	code, body = do(t, h, http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, body.Success)
	assert.Equal(t, "Invalid credentials", body.Message)
}

func TestAPI_RegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{
			name: "missing email",
			body: map[string]string{"password": "Abc12345!", "firstName": "A", "lastName": "B"},
			want: http.StatusBadRequest,
		},
		{
			name: "bad email",
			body: map[string]string{"email": "nope", "password": "Abc12345!", "firstName": "A", "lastName": "B"},
			want: http.StatusBadRequest,
		},
		{
			name: "weak password",
			body: map[string]string{"email": "a@x.com", "password": "abcdefgh", "firstName": "A", "lastName": "B"},
			want: http.StatusBadRequest,
		},
		{
			name: "join existing organization",
			body: map[string]string{"email": "a@x.com", "password": "Abc12345!", "firstName": "A", "lastName": "B", "organizationId": "org-1"},
			want: http.StatusBadRequest,
		},
		{
			name: "malformed json",
			body: "not an object",
			want: http.StatusBadRequest,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(t)
			code, body := do(t, newTestRouter(t, env, nil), http.MethodPost, "/auth/register", test.body)

			assert.Equal(t, test.want, code)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestAPI_RefreshAndLogout(t *testing.T) {
	env := newTestEnv(t)
	h := newTestRouter(t, env, nil)
	res := env.register(t, "a@x.com")

	code, body := do(t, h, http.MethodPost, "/auth/refresh", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid refresh token", body.Message)

	code, body = do(t, h, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": res.RefreshToken})
	require.Equal(t, http.StatusOK, code)

	var pair TokenPair
	require.NoError(t, json.Unmarshal(body.Data, &pair))
	assert.NotEmpty(t, pair.RefreshToken)

	code, body = do(t, h, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": res.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid refresh token", body.Message)

	for i := 0; i < 2; i++ {
		code, body = do(t, h, http.MethodPost, "/auth/logout", map[string]string{"refreshToken": pair.RefreshToken})
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, "true", string(body.Data))
	}
}

func TestAPI_PasswordReset(t *testing.T) {
	env := newTestEnv(t)
	h := newTestRouter(t, env, nil)
	env.register(t, "a@x.com")

	code, body := do(t, h, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "ghost@x.com"})
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, "true", string(body.Data))

	code, _ = do(t, h, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, code)
	token := env.notifier.last()
	require.NotEmpty(t, token)

	code, _ = do(t, h, http.MethodPost, "/auth/reset-password", map[string]string{"token": token, "password": "NewPass123!"})
	assert.Equal(t, http.StatusOK, code)

	code, body = do(t, h, http.MethodPost, "/auth/reset-password", map[string]string{"token": token, "password": "Other123!"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token already used", body.Message)
}

func TestAPI_Me(t *testing.T) {
	env := newTestEnv(t)
	res := env.register(t, "a@x.com")

	code, body := do(t, newTestRouter(t, env, nil), http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, body.Success)

	id := &identity.Identity{
		ID:       res.User.ID,
		Email:    res.User.Email,
		TenantID: res.User.OrganizationID,
		IsAPIKey: true,
		Scopes:   []string{"users:read"},
	}

	code, body = do(t, newTestRouter(t, env, id), http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, code)

	var me struct {
		ID       string        `json:"id"`
		Role     identity.Role `json:"role"`
		IsAPIKey bool          `json:"isApiKey"`
		Scopes   []string      `json:"scopes"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &me))
	assert.Equal(t, res.User.ID, me.ID)
	assert.Equal(t, AdminRoleName, me.Role.Name)
	assert.True(t, me.IsAPIKey)
	assert.Equal(t, []string{"users:read"}, me.Scopes)
}
