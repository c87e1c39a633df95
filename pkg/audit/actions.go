// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

const (
	ActionRegisterOrg            = "REGISTER_ORG"
	ActionOperatorCreated        = "OPERATOR_CREATED"
	ActionLoginSuccess           = "LOGIN_SUCCESS"
	ActionLoginFailed            = "LOGIN_FAILED"
	ActionLogout                 = "LOGOUT"
	ActionTokenReuseDetected     = "TOKEN_REUSE_DETECTED"
	ActionPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	ActionPasswordReset          = "PASSWORD_RESET"

	ActionUserDeactivated = "USER_DEACTIVATED"
	ActionUserDeleted     = "USER_DELETED"
	ActionRoleAssigned    = "ROLE_ASSIGNED"

	ActionRoleCreated            = "ROLE_CREATED"
	ActionRoleUpdated            = "ROLE_UPDATED"
	ActionRoleDeleted            = "ROLE_DELETED"
	ActionRolePermissionsChanged = "ROLE_PERMISSIONS_CHANGED"
	ActionPermissionCreated      = "PERMISSION_CREATED"
	ActionPermissionDeleted      = "PERMISSION_DELETED"

	ActionAPIKeyCreated = "API_KEY_CREATED"
	ActionAPIKeyRevoked = "API_KEY_REVOKED"
)
