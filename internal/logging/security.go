// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

import (
	"go.uber.org/zap"
)

const (
	eventAuthnSuccess   = "authn_login_success"
	eventAuthnFailure   = "authn_login_fail"
	eventAuthzFailure   = "authz_fail"
	eventTokenReuse     = "authn_token_reuse"
	eventSystemStartup  = "sys_startup"
	eventSystemShutdown = "sys_shutdown"
)

type SecurityLogger struct {
	l *zap.Logger
}

func (s *SecurityLogger) AuthnSuccess(userID, tenantID, method string) {
	s.l.Info("authentication succeeded",
		zap.String("event", eventAuthnSuccess),
		zap.String("user_id", userID),
		zap.String("tenant_id", tenantID),
		zap.String("method", method),
	)
}

func (s *SecurityLogger) AuthnFailure(subject, reason string) {
	s.l.Warn("authentication failed",
		zap.String("event", eventAuthnFailure),
		zap.String("subject", subject),
		zap.String("reason", reason),
	)
}

func (s *SecurityLogger) AuthzFailure(userID, resource, reason string) {
	s.l.Warn("authorization denied",
		zap.String("event", eventAuthzFailure),
		zap.String("user_id", userID),
		zap.String("resource", resource),
		zap.String("reason", reason),
	)
}

func (s *SecurityLogger) TokenReuse(userID, sessionID string) {
	s.l.Error("refresh token reuse detected, session revoked",
		zap.String("event", eventTokenReuse),
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
	)
}

func (s *SecurityLogger) SystemStartup() {
	s.l.Info("service starting", zap.String("event", eventSystemStartup))
}

func (s *SecurityLogger) SystemShutdown() {
	s.l.Info("service stopping", zap.String("event", eventSystemShutdown))
}

func newSecurityLogger(l *zap.Logger) *SecurityLogger {
	return &SecurityLogger{l: l}
}
