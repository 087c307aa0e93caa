package auth

import "strings"

// UserRole defines the access level of a user
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role grants administrative access
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}

// String returns the role name
func (r UserRole) String() string {
	return string(r)
}

// In reports whether the role is one of the given roles
func (r UserRole) In(roles ...string) bool {
	for _, role := range roles {
		if strings.EqualFold(string(r), role) {
			return true
		}
	}
	return false
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleUser,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type.
// Empty strings resolve to RoleUser.
func ParseRole(roleStr string) (UserRole, bool) {
	if roleStr == "" {
		return RoleUser, true
	}
	role := UserRole(strings.ToLower(roleStr))
	return role, role.IsValid()
}
