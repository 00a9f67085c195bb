package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yigit/uniadmit/internal/app/models"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role models.Role
		cap  Capability
		want bool
	}{
		{models.RoleAdmin, CapManageVouchers, true},
		{models.RoleAdmin, CapApply, false},
		{models.RoleRegistrar, CapDecideApplications, true},
		{models.RoleRegistrar, CapManageVouchers, false},
		{models.RoleLecturer, CapRecordGrades, true},
		{models.RoleLecturer, CapDecideApplications, false},
		{models.RoleFinance, CapManageFinance, true},
		{models.RoleStudent, CapStudy, true},
		{models.RoleApplicant, CapApply, true},
		{models.RoleApplicant, CapStudy, false},
		{models.Role("guest"), CapApply, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.cap), func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.role, tt.cap))
		})
	}
}

func TestCapabilitiesReturnsCopy(t *testing.T) {
	caps := Capabilities(models.RoleFinance)
	caps[0] = CapManageAccounts
	assert.False(t, Can(models.RoleFinance, CapManageAccounts))
}
