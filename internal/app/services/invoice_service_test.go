package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

func TestInvoiceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")

	inv, err := env.invoices.Create(ctx, &dto.CreateInvoiceRequest{AccountID: reg.Account.ID, Description: " Hostel fees ", Amount: 50000})
	require.NoError(t, err)
	assert.Equal(t, "GHS", inv.Currency)
	assert.Equal(t, "Hostel fees", inv.Description)
	assert.Equal(t, models.InvoiceUnpaid, inv.Status)

	mine, err := env.invoices.ListMine(ctx, reg.Account.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	cancelled, err := env.invoices.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceCancelled, cancelled.Status)

	_, err = env.invoices.Cancel(ctx, inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvoiceNotPayable)

	_, err = env.invoices.Create(ctx, &dto.CreateInvoiceRequest{AccountID: 9999, Description: "x", Amount: 1})
	assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)
}
