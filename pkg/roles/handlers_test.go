// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package roles

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/canonical/erp-auth/internal/authorization"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/tracing"
	"github.com/canonical/erp-auth/internal/types"
)

func TestAPI_Endpoints(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		url            string
		body           string
		deny           bool
		denyCatalogue  bool
		setupService   func(*MockServiceInterface)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "list roles",
			method: http.MethodGet,
			url:    "/roles",
			setupService: func(s *MockServiceInterface) {
				s.EXPECT().ListRoles(gomock.Any()).Return([]*RoleView{{Role: &types.Role{ID: "role-1"}, Permissions: []string{"*:*"}}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"permissions":["*:*"]`,
		},
		{
			name:           "not a role administrator",
			method:         http.MethodGet,
			url:            "/roles",
			deny:           true,
			setupService:   func(*MockServiceInterface) {},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:   "create role",
			method: http.MethodPost,
			url:    "/roles",
			body:   `{"name":"Analyst","level":40,"category":"FINANCE"}`,
			setupService: func(s *MockServiceInterface) {
				s.EXPECT().CreateRole(gomock.Any(), gomock.Any(), &RoleRequest{Name: "Analyst", Level: 40, Category: "FINANCE"}).
					Return(&RoleView{Role: &types.Role{ID: "role-9", Name: "Analyst"}, Permissions: []string{}}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"id":"role-9"`,
		},
		{
			name:           "create role level out of range",
			method:         http.MethodPost,
			url:            "/roles",
			body:           `{"name":"Analyst","level":140,"category":"FINANCE"}`,
			setupService:   func(*MockServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "delete system role",
			method: http.MethodDelete,
			url:    "/roles/role-1",
			setupService: func(s *MockServiceInterface) {
				s.EXPECT().DeleteRole(gomock.Any(), gomock.Any(), "role-1").Return(ErrSystemRoleDelete)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "system roles cannot be deleted",
		},
		{
			name:   "set permissions",
			method: http.MethodPut,
			url:    "/roles/role-1/permissions",
			body:   `{"permissionIds":["perm-1"]}`,
			setupService: func(s *MockServiceInterface) {
				s.EXPECT().SetPermissions(gomock.Any(), gomock.Any(), "role-1", []string{"perm-1"}).
					Return(&RoleView{Role: &types.Role{ID: "role-1"}, Permissions: []string{"invoices:read"}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "invoices:read",
		},
		{
			name:           "set permissions without list",
			method:         http.MethodPut,
			url:            "/roles/role-1/permissions",
			body:           `{}`,
			setupService:   func(*MockServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "delete permission in use",
			method: http.MethodDelete,
			url:    "/permissions/perm-1",
			setupService: func(s *MockServiceInterface) {
				s.EXPECT().DeletePermission(gomock.Any(), gomock.Any(), "perm-1").Return(ErrPermissionInUse)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   "permission is assigned to roles",
		},
		{
			name:           "catalogue changes need an operator",
			method:         http.MethodDelete,
			url:            "/permissions/perm-1",
			denyCatalogue:  true,
			setupService:   func(*MockServiceInterface) {},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:          "tenant admins still list the catalogue",
			method:        http.MethodGet,
			url:           "/permissions",
			denyCatalogue: true,
			setupService: func(s *MockServiceInterface) {
				s.EXPECT().ListPermissions(gomock.Any()).Return([]*types.Permission{{ID: "perm-1", Resource: "users", Action: "read"}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"id":"perm-1"`,
		},
		{
			name:   "create permission",
			method: http.MethodPost,
			url:    "/permissions",
			body:   `{"resource":"invoices","action":"approve"}`,
			setupService: func(s *MockServiceInterface) {
				s.EXPECT().CreatePermission(gomock.Any(), gomock.Any(), &PermissionRequest{Resource: "invoices", Action: "approve"}).
					Return(&types.Permission{ID: "perm-9", Resource: "invoices", Action: "approve"}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"id":"perm-9"`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := NewMockServiceInterface(ctrl)
			mockGuards := NewMockGuardsInterface(ctrl)

			mockGuards.EXPECT().RoleAdmin(gomock.Any()).DoAndReturn(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if test.deny {
						w.WriteHeader(http.StatusForbidden)
						return
					}
					next.ServeHTTP(w, r)
				})
			}).AnyTimes()
			mockGuards.EXPECT().SuperAdmin(gomock.Any()).DoAndReturn(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if test.denyCatalogue {
						w.WriteHeader(http.StatusForbidden)
						return
					}
					next.ServeHTTP(w, r)
				})
			}).AnyTimes()
			test.setupService(mockService)

			logger := logging.NewNoopLogger()
			api := NewAPI(mockService, mockGuards, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", logger), logger)

			r := chi.NewRouter()
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					next.ServeHTTP(w, req.WithContext(identity.WithIdentity(req.Context(), ceo)))
				})
			})
			api.RegisterEndpoints(r)

			req := httptest.NewRequest(test.method, test.url, strings.NewReader(test.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, test.expectedStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), test.expectedBody)
		})
	}
}

func TestAPI_OrganizationAdminCannotChangeCatalogue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	logger := logging.NewNoopLogger()
	tracer := tracing.NewNoopTracer()
	monitor := monitoring.NewNoopMonitor("test", logger)

	policy := authorization.NewRolePolicy(nil, nil, []string{"Admin"})
	guards := authorization.NewGuards(authorization.NewMockEvaluatorInterface(ctrl), policy, tracer, monitor, logger)

	api := NewAPI(NewMockServiceInterface(ctrl), guards, tracer, monitor, logger)

	owner := &identity.Identity{ID: "user-1", TenantID: "org-1", Role: identity.Role{Name: "Admin", Level: 100}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(identity.WithIdentity(req.Context(), owner)))
		})
	})
	api.RegisterEndpoints(r)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodDelete, "/permissions/perm-1", nil),
		httptest.NewRequest(http.MethodPost, "/permissions", strings.NewReader(`{"resource":"invoices","action":"void"}`)),
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "platform operator required")
	}
}
