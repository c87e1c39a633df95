// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

type LoggerInterface interface {
	Errorf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Debugf(string, ...interface{})
	Fatalf(string, ...interface{})
	Error(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Debug(...interface{})
	Fatal(...interface{})
	Security() SecurityLoggerInterface
	Sync() error
}

// SecurityLoggerInterface emits authentication and authorization events
// on a dedicated structured stream.
type SecurityLoggerInterface interface {
	AuthnSuccess(userID, tenantID, method string)
	AuthnFailure(subject, reason string)
	AuthzFailure(userID, resource, reason string)
	TokenReuse(userID, sessionID string)
	SystemStartup()
	SystemShutdown()
}
