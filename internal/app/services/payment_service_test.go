package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/notifications"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/paystack"
)

func chargeSuccess(reference string) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"status":"success"}}`, reference))
}

func TestVoucherPrice(t *testing.T) {
	env := newTestEnv(t)

	price, err := env.payments.VoucherPrice(map[string]string{}, models.VoucherUndergraduate)
	require.NoError(t, err)
	assert.EqualValues(t, 15000, price)

	price, err = env.payments.VoucherPrice(map[string]string{"voucher_price_undergraduate": "18000"}, models.VoucherUndergraduate)
	require.NoError(t, err)
	assert.EqualValues(t, 18000, price)

	_, err = env.payments.VoucherPrice(map[string]string{"voucher_price_undergraduate": "abc"}, models.VoucherUndergraduate)
	assert.Error(t, err)

	_, err = env.payments.VoucherPrice(map[string]string{}, models.VoucherPostgraduate)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestInitializeVoucherPurchase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.payments.InitializeVoucherPurchase(ctx, " Buyer@Example.com ", "+233200000009", "undergraduate")
	require.NoError(t, err)
	assert.Contains(t, resp.Reference, "VCH-")
	assert.EqualValues(t, 15000, resp.Amount)
	assert.Equal(t, "https://checkout.example/"+resp.Reference, resp.AuthorizationURL)

	require.Len(t, env.gateway.initialized, 1)
	sent := env.gateway.initialized[0]
	assert.Equal(t, "buyer@example.com", sent.Email)
	assert.Equal(t, "GHS", sent.Currency)
	assert.Equal(t, "voucher", sent.Metadata["purpose"])

	payment, err := env.repos.Payments.GetByReference(ctx, resp.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, models.VoucherUndergraduate, *payment.VoucherType)

	_, err = env.payments.InitializeVoucherPurchase(ctx, "buyer@example.com", "", "Doctorate")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestInitializeMarksPaymentFailedWhenGatewayDown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.gateway.initErr = paystack.ErrUnavailable

	_, err := env.payments.InitializeVoucherPurchase(ctx, "buyer@example.com", "", models.VoucherUndergraduate)
	require.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)

	payments, _, err := env.payments.List(ctx, models.PaymentFilter{Status: models.PaymentFailed})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	body := chargeSuccess("VCH-unknown")

	err := env.payments.HandleWebhook(context.Background(), body, "deadbeef", "10.0.0.1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
	err = env.payments.HandleWebhook(context.Background(), body, paystack.Sign("other-secret", body), "10.0.0.1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
	assert.Zero(t, env.gateway.verifyCalls)
}

func TestWebhookSellsVoucherOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	init, err := env.payments.InitializeVoucherPurchase(ctx, "buyer@example.com", "+233200000009", models.VoucherUndergraduate)
	require.NoError(t, err)
	env.gateway.settle(init.Reference, 15000, paystack.StatusSuccess)

	body := chargeSuccess(init.Reference)
	sig := paystack.Sign(webhookSecret, body)
	require.NoError(t, env.payments.HandleWebhook(ctx, body, sig, "10.0.0.1"))
	require.NoError(t, env.payments.HandleWebhook(ctx, body, sig, "10.0.0.1"))

	sold, total, err := env.vouchers.List(ctx, models.VoucherFilter{Status: models.VoucherSold})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, init.Reference, *sold[0].TransactionID)
	assert.Equal(t, "buyer@example.com", *sold[0].BuyerEmail)

	payment, err := env.repos.Payments.GetByReference(ctx, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, payment.Status)
	require.NotNil(t, payment.VoucherID)
	assert.Equal(t, sold[0].ID, *payment.VoucherID)

	assert.Equal(t, []notifications.Kind{notifications.KindVoucherSold}, env.queue.kinds())
	msg := env.queue.last()
	assert.Equal(t, sold[0].PIN, msg.Data["pin"])
	assert.Equal(t, "+233200000009", msg.Phone)

	// the redirect path sees the same outcome with credentials
	out, err := env.payments.Confirm(ctx, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentSuccess), out.Status)
	require.NotNil(t, out.Voucher)
	assert.Equal(t, sold[0].SerialNumber, out.Voucher.SerialNumber)
	assert.Equal(t, 1, env.gateway.verifyCalls)
}

func TestWebhookIgnoresOtherEventsAndUnknownReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	body := []byte(`{"event":"transfer.success","data":{"reference":"TRF-1"}}`)
	assert.NoError(t, env.payments.HandleWebhook(ctx, body, paystack.Sign(webhookSecret, body), ""))

	body = chargeSuccess("VCH-nobody")
	assert.NoError(t, env.payments.HandleWebhook(ctx, body, paystack.Sign(webhookSecret, body), ""))

	body = []byte(`not json`)
	assert.ErrorIs(t, env.payments.HandleWebhook(ctx, body, paystack.Sign(webhookSecret, body), ""), apperrors.ErrValidationFailed)
}

func TestConfirmAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	init, err := env.payments.InitializeVoucherPurchase(ctx, "buyer@example.com", "", models.VoucherUndergraduate)
	require.NoError(t, err)
	env.gateway.settle(init.Reference, 100, paystack.StatusSuccess)

	_, err = env.payments.Confirm(ctx, init.Reference)
	require.ErrorIs(t, err, apperrors.ErrAmountMismatch)

	payment, err := env.repos.Payments.GetByReference(ctx, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, payment.Status)

	_, total, err := env.vouchers.List(ctx, models.VoucherFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestConfirmFailedAndPendingAtGateway(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	abandoned, err := env.payments.InitializeVoucherPurchase(ctx, "buyer@example.com", "", models.VoucherUndergraduate)
	require.NoError(t, err)
	env.gateway.settle(abandoned.Reference, 15000, paystack.StatusAbandoned)

	out, err := env.payments.Confirm(ctx, abandoned.Reference)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentFailed), out.Status)
	assert.Nil(t, out.Voucher)

	ongoing, err := env.payments.InitializeVoucherPurchase(ctx, "buyer@example.com", "", models.VoucherUndergraduate)
	require.NoError(t, err)
	env.gateway.settle(ongoing.Reference, 15000, "ongoing")

	out, err = env.payments.Confirm(ctx, ongoing.Reference)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentPending), out.Status)

	env.gateway.verifyErr = errors.New("timeout")
	_, err = env.payments.Confirm(ctx, ongoing.Reference)
	assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)

	_, err = env.payments.Confirm(ctx, "VCH-missing")
	assert.ErrorIs(t, err, apperrors.ErrPaymentNotFound)
}

func TestInvoicePayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.applicant(t, "ama@example.com", "ama")
	other := env.applicant(t, "kofi@example.com", "kofi")
	inv, err := env.invoices.Create(ctx, &dto.CreateInvoiceRequest{AccountID: owner.Account.ID, Description: "Tuition", Amount: 250000})
	require.NoError(t, err)

	_, err = env.payments.InitializeInvoicePayment(ctx, other.Account.ID, inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	init, err := env.payments.InitializeInvoicePayment(ctx, owner.Account.ID, inv.ID)
	require.NoError(t, err)
	assert.Contains(t, init.Reference, "INV-")
	env.gateway.settle(init.Reference, 250000, paystack.StatusSuccess)

	out, err := env.payments.Confirm(ctx, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentSuccess), out.Status)
	assert.Equal(t, inv.ID, *out.InvoiceID)

	paid, err := env.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, paid.Status)
	assert.Equal(t, init.Reference, *paid.PaymentReference)

	msg := env.queue.last()
	assert.Equal(t, notifications.KindInvoicePaid, msg.Kind)
	assert.Equal(t, owner.Account.ID, msg.AccountID)
	assert.Equal(t, "Tuition", msg.Data["description"])

	_, err = env.payments.InitializeInvoicePayment(ctx, owner.Account.ID, inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvoiceNotPayable)
}

func TestInvoicePaidAfterCancellationIsRecorded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.applicant(t, "ama@example.com", "ama")
	inv, err := env.invoices.Create(ctx, &dto.CreateInvoiceRequest{AccountID: owner.Account.ID, Description: "Tuition", Amount: 1000})
	require.NoError(t, err)
	init, err := env.payments.InitializeInvoicePayment(ctx, owner.Account.ID, inv.ID)
	require.NoError(t, err)

	_, err = env.invoices.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	env.gateway.settle(init.Reference, 1000, paystack.StatusSuccess)

	out, err := env.payments.Confirm(ctx, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentSuccess), out.Status)

	got, err := env.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceCancelled, got.Status)
}

func TestReconcilePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	paid, err := env.payments.InitializeVoucherPurchase(ctx, "a@example.com", "", models.VoucherUndergraduate)
	require.NoError(t, err)
	env.gateway.settle(paid.Reference, 15000, paystack.StatusSuccess)
	unknown, err := env.payments.InitializeVoucherPurchase(ctx, "b@example.com", "", models.VoucherUndergraduate)
	require.NoError(t, err)

	env.payments.now = func() time.Time { return time.Now().Add(time.Hour) }
	settled, err := env.payments.ReconcilePending(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	p, err := env.repos.Payments.GetByReference(ctx, unknown.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)

	_, total, err := env.vouchers.List(ctx, models.VoucherFilter{Status: models.VoucherSold})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
