// Package rbac maps roles to their fixed permission sets and gates protected
// operations. The table is static: permissions are computed, never persisted.
package rbac

import (
	"net/http"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/kernel"
)

// Permission is a named capability, e.g. "flags:write".
type Permission string

const (
	PermFlagsRead         Permission = "flags:read"
	PermFlagsWrite        Permission = "flags:write"
	PermFlagsDelete       Permission = "flags:delete"
	PermAPIKeysRead       Permission = "api-keys:read"
	PermAPIKeysWrite      Permission = "api-keys:write"
	PermAPIKeysRevoke     Permission = "api-keys:revoke"
	PermUsersRead         Permission = "users:read"
	PermUsersWrite        Permission = "users:write"
	PermEnvironmentsRead  Permission = "environments:read"
	PermEnvironmentsWrite Permission = "environments:write"
	PermAuditLogsRead     Permission = "audit-logs:read"
	PermOrganizationRead  Permission = "organization:read"
	PermOrganizationWrite Permission = "organization:write"
)

// rolePermissions is the full static table. ADMIN holds every permission;
// MEMBER holds the read-only subset.
var rolePermissions = map[kernel.Role][]Permission{
	kernel.RoleAdmin: {
		PermFlagsRead, PermFlagsWrite, PermFlagsDelete,
		PermAPIKeysRead, PermAPIKeysWrite, PermAPIKeysRevoke,
		PermUsersRead, PermUsersWrite,
		PermEnvironmentsRead, PermEnvironmentsWrite,
		PermAuditLogsRead,
		PermOrganizationRead, PermOrganizationWrite,
	},
	kernel.RoleMember: {
		PermFlagsRead,
		PermEnvironmentsRead,
		PermAuditLogsRead,
		PermOrganizationRead,
	},
}

// HasPermission reports whether role holds permission.
func HasPermission(role kernel.Role, permission Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// Permissions returns a copy of the permission set for role.
func Permissions(role kernel.Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("RBAC")

var (
	CodeForbidden = ErrRegistry.Register("FORBIDDEN", errx.TypeForbidden, http.StatusForbidden, "Insufficient permissions")
)

// Check gates a protected operation: nil if role holds permission, a
// Forbidden error naming the missing permission otherwise.
func Check(role kernel.Role, permission Permission) error {
	if HasPermission(role, permission) {
		return nil
	}
	return ErrRegistry.New(CodeForbidden).WithDetail("required", string(permission))
}
