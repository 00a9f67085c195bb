package inmem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

func soldVoucher(serial, pin string, expires time.Time) *models.Voucher {
	return &models.Voucher{
		SerialNumber: serial,
		PIN:          pin,
		Type:         models.VoucherUndergraduate,
		Price:        100,
		Status:       models.VoucherSold,
		ExpiresAt:    expires,
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		require.NoError(t, repos.Programs.Create(ctx, &models.Program{Code: "CS", Name: "Computer Science"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	programs, err := store.Repositories().Programs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, programs)
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	store := New()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
			_ = repos.Settings.Upsert(ctx, map[string]string{"k": "v"})
			panic("explode")
		})
	})

	settings, err := store.Repositories().Settings.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings)
}

func TestWithinTxCommits(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Programs.Create(ctx, &models.Program{Code: "CS", Name: "Computer Science"})
	}))

	programs, err := store.Repositories().Programs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, programs, 1)
}

func TestVoucherRedeemIsSingleUse(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repos.Vouchers.Create(ctx, soldVoucher("1234567890", "12345678", now.Add(time.Hour))))

	v, err := repos.Vouchers.Redeem(ctx, "1234567890", "12345678", now)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherUsed, v.Status)

	_, err = repos.Vouchers.Redeem(ctx, "1234567890", "12345678", now)
	assert.ErrorIs(t, err, apperrors.ErrInvalidVoucher)
}

func TestVoucherRedeemRejectsExpiredAndWrongPIN(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repos.Vouchers.Create(ctx, soldVoucher("1111111111", "11111111", now.Add(-time.Minute))))
	require.NoError(t, repos.Vouchers.Create(ctx, soldVoucher("2222222222", "22222222", now.Add(time.Hour))))

	_, err := repos.Vouchers.Redeem(ctx, "1111111111", "11111111", now)
	assert.ErrorIs(t, err, apperrors.ErrInvalidVoucher)
	_, err = repos.Vouchers.Redeem(ctx, "2222222222", "00000000", now)
	assert.ErrorIs(t, err, apperrors.ErrInvalidVoucher)
}

func TestVoucherUniqueSerial(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, repos.Vouchers.Create(ctx, soldVoucher("3333333333", "1", exp)))
	err := repos.Vouchers.Create(ctx, soldVoucher("3333333333", "2", exp))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateVoucherSerial)
}

func TestExpireBefore(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	now := time.Now()

	stale := soldVoucher("4444444444", "1", now.Add(-time.Hour))
	stale.Status = models.VoucherUnsold
	require.NoError(t, repos.Vouchers.Create(ctx, stale))
	require.NoError(t, repos.Vouchers.Create(ctx, soldVoucher("5555555555", "1", now.Add(time.Hour))))

	n, err := repos.Vouchers.ExpireBefore(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	v, err := repos.Vouchers.GetBySerial(ctx, "4444444444")
	require.NoError(t, err)
	assert.Equal(t, models.VoucherExpired, v.Status)
}

func TestAccountUniqueness(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()

	require.NoError(t, repos.Accounts.Create(ctx, &models.Account{Email: "a@x.com", Username: "alpha", Role: models.RoleApplicant}))
	assert.ErrorIs(t, repos.Accounts.Create(ctx, &models.Account{Email: "A@x.com", Username: "beta"}), apperrors.ErrEmailAlreadyExists)
	assert.ErrorIs(t, repos.Accounts.Create(ctx, &models.Account{Email: "b@x.com", Username: "Alpha"}), apperrors.ErrUsernameAlreadyExists)
}

func TestPromoteRejectsDuplicateSystemID(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()

	first := &models.Account{Email: "a@x.com", Username: "a", Role: models.RoleApplicant}
	second := &models.Account{Email: "b@x.com", Username: "b", Role: models.RoleApplicant}
	require.NoError(t, repos.Accounts.Create(ctx, first))
	require.NoError(t, repos.Accounts.Create(ctx, second))
	program := &models.Program{Code: "CS"}
	require.NoError(t, repos.Programs.Create(ctx, program))

	require.NoError(t, repos.Accounts.Promote(ctx, first.ID, "UNI2025CS0001", program.ID))
	assert.ErrorIs(t, repos.Accounts.Promote(ctx, second.ID, "uni2025cs0001", program.ID), apperrors.ErrDuplicateSystemID)

	found, err := repos.Accounts.GetByIdentifier(ctx, "uni2025cs0001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, models.RoleStudent, found.Role)
}

func TestStoredRecordsAreIsolatedFromCallers(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()

	p := &models.Program{Code: "CS", Name: "Computer Science"}
	require.NoError(t, repos.Programs.Create(ctx, p))
	p.Name = "mutated"

	got, err := repos.Programs.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", got.Name)
}

func TestListPagination(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		require.NoError(t, repos.Accounts.Create(ctx, &models.Account{Email: email, Username: email[:1], Role: models.RoleApplicant}))
	}

	page, total, err := repos.Accounts.List(ctx, models.AccountFilter{Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "c@x.com", page[0].Email)
}

func TestInvoiceTransitions(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()

	acct := &models.Account{Email: "s@x.com", Username: "s", Role: models.RoleStudent}
	require.NoError(t, repos.Accounts.Create(ctx, acct))
	inv := &models.Invoice{AccountID: acct.ID, Description: "Tuition", Amount: 100, Currency: "GHS"}
	require.NoError(t, repos.Invoices.Create(ctx, inv))

	require.NoError(t, repos.Invoices.MarkPaid(ctx, inv.ID, "INV-1", time.Now()))
	assert.ErrorIs(t, repos.Invoices.Cancel(ctx, inv.ID), apperrors.ErrInvoiceNotPayable)
	assert.ErrorIs(t, repos.Invoices.Cancel(ctx, 999), apperrors.ErrInvoiceNotFound)
}
