package gatekeeper

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleGuest, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleIsAtLeast checks if the role meets the minimum required level
func RoleIsAtLeast(r, minRole Role) bool {
	roleHierarchy := map[Role]int{
		RoleGuest:     0,
		RoleModerator: 1,
		RoleAdmin:     2,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleGuest,
		RoleModerator,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role, falling back to guest for
// unknown values
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	if !IsValidRole(role) {
		return RoleGuest, false
	}
	return role, true
}
