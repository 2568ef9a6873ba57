package models

import "github.com/google/uuid"

// Role constants for investigation participants.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleAdmin, RoleMember}

// IsValidRole checks if the given role is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Principal is the verified identity handed to the engine by the auth layer.
// The engine trusts it; token validation happens upstream.
type Principal struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

// IsAdmin returns true if the principal carries the elevated role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
