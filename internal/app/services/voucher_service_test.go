package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/codes"
)

func TestGenerateBatch(t *testing.T) {
	env := newTestEnv(t)

	batch, err := env.vouchers.GenerateBatch(context.Background(), 3, "undergraduate", 100)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	serials := map[string]bool{}
	for _, v := range batch {
		assert.Equal(t, models.VoucherUnsold, v.Status)
		assert.Equal(t, models.VoucherUndergraduate, v.Type)
		assert.EqualValues(t, 100, v.Price)
		assert.Len(t, v.SerialNumber, 10)
		assert.Len(t, v.PIN, 8)
		serials[v.SerialNumber] = true
	}
	assert.Len(t, serials, 3)
}

func TestGenerateBatchBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, count := range []int{0, -1, 1001} {
		_, err := env.vouchers.GenerateBatch(ctx, count, models.VoucherUndergraduate, 100)
		assert.ErrorIs(t, err, apperrors.ErrValidationFailed, "count %d", count)
	}
	_, err := env.vouchers.GenerateBatch(ctx, 1, "Doctorate", 100)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	_, err = env.vouchers.GenerateBatch(ctx, 1, models.VoucherUndergraduate, -5)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestGenerateBatchRedrawsCollidingSerial(t *testing.T) {
	env := newTestEnv(t)
	// serial, pin, then the same serial again, then a fresh one
	env.vouchers.codes = sequence(codes.Digits,
		"1111111111", "22222222",
		"1111111111", "33333333",
		"4444444444", "55555555",
	)

	batch, err := env.vouchers.GenerateBatch(context.Background(), 2, models.VoucherPostgraduate, 200)
	require.NoError(t, err)
	assert.Equal(t, "1111111111", batch[0].SerialNumber)
	assert.Equal(t, "4444444444", batch[1].SerialNumber)
	assert.Equal(t, "55555555", batch[1].PIN)
}

func TestGenerateBatchGivesUpAfterRetries(t *testing.T) {
	env := newTestEnv(t)
	env.vouchers.cfg.SerialRetries = 2
	env.vouchers.codes = func(n int) (string, error) {
		if n == serialLength {
			return "9999999999", nil
		}
		return "12345678", nil
	}

	_, err := env.vouchers.GenerateBatch(context.Background(), 2, models.VoucherUndergraduate, 100)
	require.ErrorIs(t, err, apperrors.ErrDuplicateVoucherSerial)

	// the whole batch rolled back
	_, total, err := env.vouchers.List(context.Background(), models.VoucherFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSellIsIdempotentOnReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := SellRequest{
		BuyerEmail:       "buyer@example.com",
		BuyerPhone:       "+233200000009",
		Type:             models.VoucherUndergraduate,
		Price:            15000,
		GatewayReference: "VCH-ref-1",
	}

	first, err := env.vouchers.Sell(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherSold, first.Status)
	require.NotNil(t, first.SoldAt)
	require.NotNil(t, first.BuyerPhone)

	second, err := env.vouchers.Sell(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.PIN, second.PIN)

	_, total, err := env.vouchers.List(ctx, models.VoucherFilter{Status: models.VoucherSold})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, err = env.vouchers.Sell(ctx, SellRequest{Type: models.VoucherUndergraduate})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestRedeemOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.soldVoucher(t)

	used, err := env.vouchers.Redeem(ctx, " "+v.SerialNumber+" ", v.PIN)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherUsed, used.Status)
	assert.NotNil(t, used.UsedAt)

	_, err = env.vouchers.Redeem(ctx, v.SerialNumber, v.PIN)
	assert.ErrorIs(t, err, apperrors.ErrInvalidVoucher)
}

func TestRedeemRejectsWrongPinAndExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.soldVoucher(t)

	_, err := env.vouchers.Redeem(ctx, v.SerialNumber, "00000000")
	assert.ErrorIs(t, err, apperrors.ErrInvalidVoucher)

	env.vouchers.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	_, err = env.vouchers.Redeem(ctx, v.SerialNumber, v.PIN)
	assert.ErrorIs(t, err, apperrors.ErrInvalidVoucher)
}

func TestExpireStale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.vouchers.GenerateBatch(ctx, 2, models.VoucherUndergraduate, 100)
	require.NoError(t, err)
	sold := env.soldVoucher(t)
	used := env.soldVoucher(t)
	_, err = env.vouchers.Redeem(ctx, used.SerialNumber, used.PIN)
	require.NoError(t, err)

	n, err := env.vouchers.ExpireStale(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = env.vouchers.ExpireStale(ctx, time.Now().Add(31*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err := env.vouchers.GetBySerial(ctx, sold.SerialNumber)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherExpired, got.Status)

	got, err = env.vouchers.GetBySerial(ctx, used.SerialNumber)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherUsed, got.Status)
}
