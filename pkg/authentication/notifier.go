// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"

	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/types"
)

// LogNotifier stands in for a mail integration. The token itself is only
// written when debug is on, which must never be the case in production.
type LogNotifier struct {
	debug  bool
	logger logging.LoggerInterface
}

func (n *LogNotifier) SendResetToken(_ context.Context, user *types.User, token string) error {
	if n.debug {
		n.logger.Debugf("password reset token for %s: %s", user.Email, token)
		return nil
	}

	n.logger.Infof("password reset requested for user %s", user.ID)
	return nil
}

func NewLogNotifier(debug bool, logger logging.LoggerInterface) *LogNotifier {
	return &LogNotifier{debug: debug, logger: logger}
}
