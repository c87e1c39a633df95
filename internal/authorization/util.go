// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import "strings"

const (
	Wildcard = "*"

	ScopeOwn  Scope = "OWN"
	ScopeTeam Scope = "TEAM"
	ScopeAll  Scope = "ALL"

	CategoryExecutive   = "executive"
	CategoryManagement  = "management"
	CategoryOperational = "operational"
	CategoryFinancial   = "financial"

	// Scopes an API key needs to pass the role guards.
	ScopeRolesManage = "roles:manage"
	ScopeAuditRead   = "audit:read"

	resourceFinance = "finance"
)

// Scope narrows a resource:action grant to the rows a caller may touch.
type Scope string

type AdvancedPermission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Scope    Scope  `json:"scope"`
}

func (p AdvancedPermission) Key() string {
	return PermissionKey(p.Resource, p.Action)
}

func PermissionKey(resource, action string) string {
	return resource + ":" + action
}

// MatchPermission reports whether granted covers required through an exact
// match or one of the resource:*, *:action and *:* wildcards.
func MatchPermission(granted []string, required string) bool {
	resource, action, ok := strings.Cut(required, ":")
	if !ok {
		return false
	}

	candidates := [...]string{
		required,
		PermissionKey(resource, Wildcard),
		PermissionKey(Wildcard, action),
		PermissionKey(Wildcard, Wildcard),
	}

	for _, g := range granted {
		for _, c := range candidates {
			if g == c {
				return true
			}
		}
	}
	return false
}

// MatchAll reports whether every required permission is covered, returning
// the first one that is not.
func MatchAll(granted []string, required []string) (string, bool) {
	for _, r := range required {
		if !MatchPermission(granted, r) {
			return r, false
		}
	}
	return "", true
}

// ValidPermissionKey accepts resource:action pairs with non-empty halves.
func ValidPermissionKey(key string) bool {
	resource, action, ok := strings.Cut(key, ":")
	return ok && resource != "" && action != "" && !strings.Contains(action, ":")
}

// holdsResource reports whether any granted key covers some action on
// resource.
func holdsResource(granted []string, resource string) bool {
	for _, g := range granted {
		r, _, ok := strings.Cut(g, ":")
		if ok && (r == resource || r == Wildcard) {
			return true
		}
	}
	return false
}
