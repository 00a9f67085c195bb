package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/notifications"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/letter"
	"github.com/yigit/uniadmit/internal/pkg/paystack"
)

// Payment reference prefixes
const (
	voucherReferencePrefix = "VCH-"
	invoiceReferencePrefix = "INV-"
)

// Gateway is the part of the Paystack client the payment flow needs
type Gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// PaymentConfig holds gateway and pricing settings
type PaymentConfig struct {
	SecretKey   string
	CallbackURL string
	// VoucherPrices are the defaults used when no voucher_price_<type> setting exists
	VoucherPrices map[models.VoucherType]int64
}

// PaymentService takes online payments for vouchers and invoices
type PaymentService struct {
	tx       repositories.Transactor
	repos    *repositories.Repositories
	gateway  Gateway
	vouchers *VoucherService
	invoices *InvoiceService
	queue    notifications.Queue
	cfg      PaymentConfig
	now      Clock
	logger   zerolog.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	tx repositories.Transactor,
	repos *repositories.Repositories,
	gateway Gateway,
	vouchers *VoucherService,
	invoices *InvoiceService,
	queue notifications.Queue,
	cfg PaymentConfig,
	logger zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		tx:       tx,
		repos:    repos,
		gateway:  gateway,
		vouchers: vouchers,
		invoices: invoices,
		queue:    queue,
		cfg:      cfg,
		now:      utcNow,
		logger:   logger.With().Str("component", "payments").Logger(),
	}
}

// VoucherPrice resolves the current price of a voucher type
func (s *PaymentService) VoucherPrice(settings map[string]string, vtype models.VoucherType) (int64, error) {
	key := models.SettingVoucherPricePrefix + strings.ToLower(string(vtype))
	if raw, ok := settings[key]; ok && strings.TrimSpace(raw) != "" {
		price, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || price <= 0 {
			return 0, fmt.Errorf("setting %s holds an invalid price %q", key, raw)
		}
		return price, nil
	}
	if price, ok := s.cfg.VoucherPrices[vtype]; ok && price > 0 {
		return price, nil
	}
	return 0, apperrors.NewValidationError(fmt.Sprintf("no price configured for %s vouchers", vtype))
}

func (s *PaymentService) initialize(ctx context.Context, payment *models.Payment, metadata map[string]interface{}) (*dto.PaymentInitResponse, error) {
	if err := s.repos.Payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	metadata["purpose"] = string(payment.Purpose)
	resp, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:       payment.Email,
		Amount:      payment.Amount,
		Reference:   payment.Reference,
		Currency:    payment.Currency,
		CallbackURL: s.cfg.CallbackURL,
		Metadata:    metadata,
	})
	if err != nil {
		if markErr := s.repos.Payments.MarkFailed(ctx, payment.Reference, err.Error()); markErr != nil {
			s.logger.Error().Err(markErr).Str("reference", payment.Reference).Msg("Failed to mark payment failed")
		}
		s.logger.Error().Err(err).Str("reference", payment.Reference).Msg("Gateway initialization failed")
		return nil, apperrors.NewCustomError(apperrors.ErrGatewayUnavailable, "payment gateway is unavailable, please try again")
	}

	s.logger.Info().Str("reference", payment.Reference).Str("purpose", string(payment.Purpose)).Int64("amount", payment.Amount).Msg("Payment initialized")
	return &dto.PaymentInitResponse{
		Reference:        payment.Reference,
		AuthorizationURL: resp.AuthorizationURL,
		AccessCode:       resp.AccessCode,
		Amount:           payment.Amount,
	}, nil
}

// InitializeVoucherPurchase starts an online voucher purchase
func (s *PaymentService) InitializeVoucherPurchase(ctx context.Context, email, phone string, vtype models.VoucherType) (*dto.PaymentInitResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewValidationError("email is required")
	}
	vtype, err := models.ParseVoucherType(string(vtype))
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	settings, err := s.repos.Settings.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	price, err := s.VoucherPrice(settings, vtype)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		Reference:   voucherReferencePrefix + uuid.New().String(),
		Purpose:     models.PaymentForVoucher,
		Email:       email,
		Phone:       strings.TrimSpace(phone),
		Amount:      price,
		Currency:    models.InstitutionFromMap(settings).Currency,
		Status:      models.PaymentPending,
		VoucherType: &vtype,
	}
	return s.initialize(ctx, payment, map[string]interface{}{"voucherType": string(vtype)})
}

// InitializeInvoicePayment starts payment of an Unpaid invoice owned by the caller
func (s *PaymentService) InitializeInvoicePayment(ctx context.Context, accountID, invoiceID int64) (*dto.PaymentInitResponse, error) {
	invoice, err := s.repos.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.AccountID != accountID {
		return nil, apperrors.NewForbiddenError("invoice belongs to another account")
	}
	if invoice.Status != models.InvoiceUnpaid {
		return nil, apperrors.ErrInvoiceNotPayable
	}
	account, err := s.repos.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		Reference: invoiceReferencePrefix + uuid.New().String(),
		Purpose:   models.PaymentForInvoice,
		Email:     account.Email,
		Phone:     account.Phone,
		Amount:    invoice.Amount,
		Currency:  invoice.Currency,
		Status:    models.PaymentPending,
		InvoiceID: &invoice.ID,
		AccountID: &accountID,
	}
	return s.initialize(ctx, payment, map[string]interface{}{"invoiceId": invoice.ID})
}

// HandleWebhook authenticates a gateway callback and confirms successful charges
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature, remoteAddr string) error {
	if !paystack.VerifySignature(s.cfg.SecretKey, body, signature) {
		s.logger.Warn().Str("remoteAddr", remoteAddr).Int("bytes", len(body)).Msg("Rejected webhook with invalid signature")
		return apperrors.ErrInvalidSignature
	}

	event, err := paystack.ParseEvent(body)
	if err != nil {
		return apperrors.NewValidationError("malformed webhook payload")
	}
	if event.Event != paystack.EventChargeSuccess {
		s.logger.Debug().Str("event", event.Event).Msg("Ignoring webhook event")
		return nil
	}

	_, err = s.Confirm(ctx, event.Data.Reference)
	if errors.Is(err, apperrors.ErrPaymentNotFound) {
		s.logger.Warn().Str("reference", event.Data.Reference).Msg("Webhook for unknown payment reference")
		return nil
	}
	return err
}

// Confirm verifies a payment with the gateway and fulfils it exactly once.
// Confirming an already settled payment returns its recorded outcome.
func (s *PaymentService) Confirm(ctx context.Context, reference string) (*dto.PaymentVerifyResponse, error) {
	payment, err := s.repos.Payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentPending {
		return s.outcome(ctx, payment)
	}

	txn, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.logger.Error().Err(err).Str("reference", reference).Msg("Gateway verification failed")
		return nil, apperrors.NewCustomError(apperrors.ErrGatewayUnavailable, "could not verify payment with the gateway")
	}

	if !txn.Successful() {
		switch txn.Status {
		case paystack.StatusFailed, paystack.StatusAbandoned, paystack.StatusReversed:
			if err := s.repos.Payments.MarkFailed(ctx, reference, txn.GatewayResponse); err != nil {
				return nil, fmt.Errorf("failed to mark payment failed: %w", err)
			}
			s.logger.Info().Str("reference", reference).Str("status", txn.Status).Msg("Payment failed at gateway")
			payment.Status = models.PaymentFailed
		}
		return s.outcome(ctx, payment)
	}

	if txn.Amount != payment.Amount {
		s.logger.Error().Str("reference", reference).Int64("expected", payment.Amount).Int64("paid", txn.Amount).Msg("Paid amount mismatch")
		if err := s.repos.Payments.MarkFailed(ctx, reference, "amount mismatch"); err != nil {
			s.logger.Error().Err(err).Str("reference", reference).Msg("Failed to mark payment failed")
		}
		return nil, apperrors.ErrAmountMismatch
	}

	paidAt := s.now()
	if txn.PaidAt != nil {
		paidAt = txn.PaidAt.UTC()
	}

	var (
		fulfilled bool
		voucher   *models.Voucher
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		changed, err := repos.Payments.MarkSuccess(ctx, reference, txn.GatewayResponse, paidAt)
		if err != nil {
			return err
		}
		if !changed {
			// settled concurrently
			return nil
		}
		fulfilled = true

		switch payment.Purpose {
		case models.PaymentForVoucher:
			if payment.VoucherType == nil {
				return fmt.Errorf("voucher payment %s has no voucher type", reference)
			}
			v, _, err := s.vouchers.sell(ctx, repos, SellRequest{
				BuyerEmail:       payment.Email,
				BuyerPhone:       payment.Phone,
				Type:             *payment.VoucherType,
				Price:            payment.Amount,
				GatewayReference: reference,
			})
			if err != nil {
				return err
			}
			voucher = v
			return repos.Payments.AttachVoucher(ctx, reference, v.ID)
		case models.PaymentForInvoice:
			if payment.InvoiceID == nil {
				return fmt.Errorf("invoice payment %s has no invoice", reference)
			}
			err := s.invoices.MarkPaid(ctx, repos, *payment.InvoiceID, reference, paidAt)
			if errors.Is(err, apperrors.ErrInvoiceNotPayable) {
				s.logger.Error().Str("reference", reference).Int64("invoiceID", *payment.InvoiceID).Msg("Payment received for an invoice that is no longer payable")
				return nil
			}
			return err
		}
		return fmt.Errorf("unknown payment purpose %q", payment.Purpose)
	})
	if err != nil {
		return nil, err
	}

	settled, err := s.repos.Payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if fulfilled {
		s.logger.Info().Str("reference", reference).Str("purpose", string(payment.Purpose)).Msg("Payment confirmed")
		s.notify(ctx, settled, voucher)
	}
	return s.outcome(ctx, settled)
}

func (s *PaymentService) notify(ctx context.Context, payment *models.Payment, voucher *models.Voucher) {
	amount := letter.FormatMoney(payment.Amount, payment.Currency)
	switch {
	case voucher != nil:
		enqueueAfterCommit(ctx, s.queue, s.logger, notifications.Message{
			Kind:  notifications.KindVoucherSold,
			To:    payment.Email,
			Phone: payment.Phone,
		}.
			With("type", string(voucher.Type)).
			With("amount", amount).
			With("serial", voucher.SerialNumber).
			With("pin", voucher.PIN).
			With("reference", payment.Reference))
	case payment.InvoiceID != nil:
		msg := notifications.Message{Kind: notifications.KindInvoicePaid, To: payment.Email, Phone: payment.Phone}.
			With("amount", amount).
			With("reference", payment.Reference)
		if payment.AccountID != nil {
			msg.AccountID = *payment.AccountID
			if account, err := s.repos.Accounts.GetByID(ctx, *payment.AccountID); err == nil {
				msg.ToName = account.FullName()
			}
		}
		if invoice, err := s.repos.Invoices.GetByID(ctx, *payment.InvoiceID); err == nil {
			msg = msg.With("description", invoice.Description)
		}
		enqueueAfterCommit(ctx, s.queue, s.logger, msg)
	}
}

// outcome reports the recorded state of a payment
func (s *PaymentService) outcome(ctx context.Context, payment *models.Payment) (*dto.PaymentVerifyResponse, error) {
	resp := &dto.PaymentVerifyResponse{
		Reference: payment.Reference,
		Status:    string(payment.Status),
		Purpose:   string(payment.Purpose),
		Amount:    payment.Amount,
		InvoiceID: payment.InvoiceID,
	}
	if payment.Purpose == models.PaymentForVoucher && payment.Status == models.PaymentSuccess {
		v, err := s.repos.Vouchers.GetByTransactionID(ctx, payment.Reference)
		if err != nil && !errors.Is(err, apperrors.ErrVoucherNotFound) {
			return nil, err
		}
		if v != nil {
			resp.Voucher = &dto.VoucherCredentials{SerialNumber: v.SerialNumber, PIN: v.PIN, Type: string(v.Type)}
		}
	}
	return resp, nil
}

// ReconcilePending re-verifies payments left Pending for longer than olderThan
func (s *PaymentService) ReconcilePending(ctx context.Context, olderThan time.Duration) (int, error) {
	pending, err := s.repos.Payments.ListPendingBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to list pending payments: %w", err)
	}

	settled := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		out, err := s.Confirm(ctx, p.Reference)
		if err != nil {
			s.logger.Warn().Err(err).Str("reference", p.Reference).Msg("Reconciliation failed")
			continue
		}
		if out.Status != string(models.PaymentPending) {
			settled++
		}
	}
	if len(pending) > 0 {
		s.logger.Info().Int("pending", len(pending)).Int("settled", settled).Msg("Payment reconciliation finished")
	}
	return settled, nil
}

// List returns a page of payments and the total match count
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, int64, error) {
	payments, total, err := s.repos.Payments.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, total, nil
}
