package models

import "strings"

// Role is the closed set of account roles
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleRegistrar Role = "registrar"
	RoleLecturer  Role = "lecturer"
	RoleFinance   Role = "finance"
	RoleStudent   Role = "student"
	RoleApplicant Role = "applicant"
)

// AllRoles lists every role known to the system
var AllRoles = []Role{RoleAdmin, RoleRegistrar, RoleLecturer, RoleFinance, RoleStudent, RoleApplicant}

// StaffRoles are the roles an administrator may assign when creating accounts
var StaffRoles = []Role{RoleAdmin, RoleRegistrar, RoleLecturer, RoleFinance}

// ParseRole converts a raw string into a Role
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllRoles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// IsStaff reports whether the role belongs to institution staff
func (r Role) IsStaff() bool {
	for _, s := range StaffRoles {
		if r == s {
			return true
		}
	}
	return false
}
