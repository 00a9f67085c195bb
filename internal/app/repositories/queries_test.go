package repositories

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/app/models"
)

func TestRedeemQueryGuardsStatusAndExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	sql, args, err := redeemQuery("SN-001", "123456", now).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "UPDATE vouchers SET status = $1, used_at = $2 WHERE "), sql)
	assert.Contains(t, sql, "pin = $3")
	assert.Contains(t, sql, "serial_number = $4")
	assert.Contains(t, sql, "status = $5")
	assert.Contains(t, sql, "expires_at > $6")
	assert.Contains(t, sql, "RETURNING "+joinColumns(voucherColumns))
	assert.NotContains(t, sql, "?")
	assert.Equal(t, []interface{}{models.VoucherUsed, now, "123456", "SN-001", models.VoucherSold, now}, args)
}

func TestPromoteQueryOnlyMatchesUnpromotedAccounts(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	sql, args, err := promoteQuery(42, "2025000123", 7, now).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE accounts SET role = $1, system_id = $2, admitted_program_id = $3, updated_at = $4 WHERE id = $5 AND system_id IS NULL",
		sql)
	assert.Equal(t, []interface{}{models.RoleStudent, "2025000123", int64(7), now, int64(42)}, args)
}
