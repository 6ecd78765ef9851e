package models

import "strings"

// Portal user roles carried in the auth token.
const (
	RoleFamilia      = "familia"
	RoleDocente      = "docente"
	RoleCoordinacion = "coordinacion"
	RoleSuperadmin   = "superadmin"
)

// StaffRoles may publish and manage activities.
var StaffRoles = []string{RoleDocente, RoleCoordinacion, RoleSuperadmin}

// IsStaffRole reports whether role belongs to school staff.
func IsStaffRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, staff := range StaffRoles {
		if staff == role {
			return true
		}
	}
	return false
}
