package service

import "github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"

// Roles from highest to lowest
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// roleLevel returns numeric level for role comparison (higher = more permissions)
func roleLevel(role string) int {
	switch role {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleMember:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// CompareRoles orders a against b over the fixed hierarchy
// viewer < member < admin < owner. Negative means a ranks below b, zero equal,
// positive above. Unknown roles rank below viewer.
func CompareRoles(a, b string) int {
	la, lb := roleLevel(a), roleLevel(b)
	switch {
	case la < lb:
		return -1
	case la > lb:
		return 1
	default:
		return 0
	}
}

// ValidRole reports whether role is one of the four assignable roles.
func ValidRole(role string) bool {
	return roleLevel(role) > 0
}

// roleBypassesPermissions reports whether the role short-circuits every
// permission-flag check.
func roleBypassesPermissions(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

// DefaultPermissions returns the role-derived grants applied when a member is
// added without explicit flags.
func DefaultPermissions(role string) repository.PermissionSet {
	switch role {
	case RoleOwner, RoleAdmin:
		return repository.AllPermissions()
	case RoleMember:
		return repository.PermissionSet{
			CanCreateProjects: true,
			CanCreateTasks:    true,
			CanEditTasks:      true,
		}
	default:
		return repository.PermissionSet{}
	}
}
