// Package auth holds the role to capability table used for access control.
package auth

import "github.com/yigit/uniadmit/internal/app/models"

// Capability names one guarded group of operations
type Capability string

// Capabilities checked by the HTTP layer
const (
	CapApply              Capability = "application:own"
	CapStudy              Capability = "student:own"
	CapReviewApplications Capability = "application:review"
	CapDecideApplications Capability = "application:decide"
	CapManageCourses      Capability = "course:manage"
	CapManageGrading      Capability = "grading:manage"
	CapRecordGrades       Capability = "grade:record"
	CapManageVouchers     Capability = "voucher:manage"
	CapManagePrograms     Capability = "program:manage"
	CapManageSettings     Capability = "setting:manage"
	CapManageAccounts     Capability = "account:manage"
	CapManageFinance      Capability = "finance:manage"
)

var capabilities = map[models.Role][]Capability{
	models.RoleAdmin: {
		CapReviewApplications, CapDecideApplications, CapManageCourses, CapManageGrading,
		CapRecordGrades, CapManageVouchers, CapManagePrograms, CapManageSettings,
		CapManageAccounts, CapManageFinance,
	},
	models.RoleRegistrar: {CapReviewApplications, CapDecideApplications, CapManageCourses, CapManageGrading},
	models.RoleLecturer:  {CapRecordGrades},
	models.RoleFinance:   {CapManageFinance},
	models.RoleStudent:   {CapStudy},
	models.RoleApplicant: {CapApply},
}

// Can reports whether role grants capability
func Can(role models.Role, capability Capability) bool {
	for _, c := range capabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// Capabilities returns the capabilities granted to role
func Capabilities(role models.Role) []Capability {
	out := make([]Capability, len(capabilities[role]))
	copy(out, capabilities[role])
	return out
}
