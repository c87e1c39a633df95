// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/canonical/erp-auth/internal/logging"
)

func TestWriteErrorEnvelope(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:            "authentication failure",
			err:             Unauthorized("Invalid credentials"),
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid credentials",
		},
		{
			name:            "wrapped authorization failure",
			err:             fmt.Errorf("guard: %w", Forbidden("missing permission users:read")),
			expectedStatus:  http.StatusForbidden,
			expectedMessage: "missing permission users:read",
		},
		{
			name:            "not found",
			err:             NotFound("user not found"),
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "user not found",
		},
		{
			name:            "cause is hidden",
			err:             Wrap(Conflict("email already registered"), errors.New("pq: duplicate key users_org_email_key")),
			expectedStatus:  http.StatusConflict,
			expectedMessage: "email already registered",
		},
		{
			name:            "unknown error is generic",
			err:             errors.New("dial tcp 10.0.0.1:5432: connection refused"),
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: internalErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
			rr := httptest.NewRecorder()

			WriteError(rr, req, tt.err, logging.NewNoopLogger())

			if rr.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}

			var body map[string]interface{}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}

			if body["success"] != false {
				t.Errorf("expected success false, got %v", body["success"])
			}
			if v, ok := body["data"]; !ok || v != nil {
				t.Errorf("expected data null, got %v", v)
			}
			if body["message"] != tt.expectedMessage {
				t.Errorf("expected message %q, got %v", tt.expectedMessage, body["message"])
			}
			if body["path"] != "/api/v1/auth/login" {
				t.Errorf("unexpected path %v", body["path"])
			}
			if body["timestamp"] == "" {
				t.Error("expected timestamp")
			}
			if strings.Contains(rr.Body.String(), "10.0.0.1") || strings.Contains(rr.Body.String(), "users_org_email_key") {
				t.Error("internal detail leaked to client")
			}
		})
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{name: "valid", body: `{"email":"a@x.com","password":"secret"}`, expectedStatus: 0},
		{name: "missing password", body: `{"email":"a@x.com"}`, expectedStatus: http.StatusBadRequest},
		{name: "bad email", body: `{"email":"nope","password":"x"}`, expectedStatus: http.StatusBadRequest},
		{name: "malformed", body: `{"email":`, expectedStatus: http.StatusBadRequest},
		{name: "empty", body: ``, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			err := DecodeAndValidate(req, new(loginRequest))
			if tt.expectedStatus == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if got := Classify(err).Status(); got != tt.expectedStatus {
				t.Errorf("expected status %d, got %d (%v)", tt.expectedStatus, got, err)
			}
		})
	}
}
