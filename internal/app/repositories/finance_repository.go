package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/db"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/dberrors"
	"github.com/yigit/uniadmit/internal/pkg/logger"
)

var invoiceColumns = []string{
	"id", "account_id", "description", "amount", "currency", "status", "due_date", "paid_at", "payment_reference", "created_at",
}

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct {
	db db.DBTX
}

// NewInvoiceRepository creates a new InvoiceRepository
func NewInvoiceRepository(conn db.DBTX) *InvoiceRepository {
	return &InvoiceRepository{db: conn}
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var i models.Invoice
	err := row.Scan(&i.ID, &i.AccountID, &i.Description, &i.Amount, &i.Currency, &i.Status,
		&i.DueDate, &i.PaidAt, &i.PaymentReference, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create inserts an invoice
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	inv.CreatedAt = time.Now().UTC()
	if inv.Status == "" {
		inv.Status = models.InvoiceUnpaid
	}
	sql, args, err := psql.Insert("invoices").
		Columns("account_id", "description", "amount", "currency", "status", "due_date", "created_at").
		Values(inv.AccountID, inv.Description, inv.Amount, inv.Currency, inv.Status, inv.DueDate, inv.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create invoice query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&inv.ID); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrAccountNotFound
		}
		logger.Error().Err(err).Int64("accountID", inv.AccountID).Msg("Error executing create invoice query")
		return fmt.Errorf("error creating invoice: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice by ID
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*models.Invoice, error) {
	sql, args, err := psql.Select(invoiceColumns...).From("invoices").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get invoice query: %w", err)
	}
	inv, err := scanInvoice(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("error retrieving invoice: %w", err)
	}
	return inv, nil
}

// List returns invoices matching filter
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, int64, error) {
	where := squirrel.Eq{}
	if filter.AccountID > 0 {
		where["account_id"] = filter.AccountID
	}
	if filter.Status != "" {
		where["status"] = filter.Status
	}

	total, err := count(ctx, r.db, psql.Select("COUNT(*)").From("invoices").Where(where))
	if err != nil {
		return nil, 0, fmt.Errorf("error counting invoices: %w", err)
	}
	sql, args, err := paginate(psql.Select(invoiceColumns...).From("invoices").Where(where).OrderBy("id DESC"),
		filter.Offset, filter.Limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list invoices query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (r *InvoiceRepository) transitionUnpaid(ctx context.Context, id int64, set map[string]interface{}) error {
	sql, args, err := psql.Update("invoices").SetMap(set).
		Where(squirrel.Eq{"id": id, "status": models.InvoiceUnpaid}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build invoice status query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrInvoiceNotPayable
	}
	return nil
}

// MarkPaid settles an Unpaid invoice
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id int64, reference string, at time.Time) error {
	return r.transitionUnpaid(ctx, id, map[string]interface{}{
		"status":            models.InvoicePaid,
		"paid_at":           at,
		"payment_reference": reference,
	})
}

// Cancel voids an Unpaid invoice
func (r *InvoiceRepository) Cancel(ctx context.Context, id int64) error {
	return r.transitionUnpaid(ctx, id, map[string]interface{}{"status": models.InvoiceCancelled})
}

var paymentColumns = []string{
	"id", "reference", "purpose", "email", "phone", "amount", "currency", "status", "voucher_type",
	"invoice_id", "voucher_id", "account_id", "gateway_response", "paid_at", "created_at",
}

// PaymentRepository handles payment database operations
type PaymentRepository struct {
	db db.DBTX
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(conn db.DBTX) *PaymentRepository {
	return &PaymentRepository{db: conn}
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.Reference, &p.Purpose, &p.Email, &p.Phone, &p.Amount, &p.Currency, &p.Status,
		&p.VoucherType, &p.InvoiceID, &p.VoucherID, &p.AccountID, &p.GatewayResponse, &p.PaidAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a Pending payment
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	p.CreatedAt = time.Now().UTC()
	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	sql, args, err := psql.Insert("payments").
		Columns("reference", "purpose", "email", "phone", "amount", "currency", "status", "voucher_type",
			"invoice_id", "account_id", "created_at").
		Values(p.Reference, p.Purpose, p.Email, p.Phone, p.Amount, p.Currency, p.Status, p.VoucherType,
			p.InvoiceID, p.AccountID, p.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create payment query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&p.ID); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrResourceAlreadyExists
		}
		logger.Error().Err(err).Str("reference", p.Reference).Msg("Error executing create payment query")
		return fmt.Errorf("error creating payment: %w", err)
	}
	return nil
}

// GetByReference retrieves a payment by its gateway reference
func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	sql, args, err := psql.Select(paymentColumns...).From("payments").Where(squirrel.Eq{"reference": reference}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get payment query: %w", err)
	}
	p, err := scanPayment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error retrieving payment: %w", err)
	}
	return p, nil
}

// MarkSuccess moves a Pending payment to Success
func (r *PaymentRepository) MarkSuccess(ctx context.Context, reference, gatewayResponse string, paidAt time.Time) (bool, error) {
	sql, args, err := psql.Update("payments").
		Set("status", models.PaymentSuccess).
		Set("gateway_response", gatewayResponse).
		Set("paid_at", paidAt).
		Where(squirrel.Eq{"reference": reference, "status": models.PaymentPending}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build confirm payment query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("reference", reference).Msg("Error executing confirm payment query")
		return false, fmt.Errorf("error confirming payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed moves a Pending payment to Failed
func (r *PaymentRepository) MarkFailed(ctx context.Context, reference, gatewayResponse string) error {
	sql, args, err := psql.Update("payments").
		Set("status", models.PaymentFailed).
		Set("gateway_response", gatewayResponse).
		Where(squirrel.Eq{"reference": reference, "status": models.PaymentPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build fail payment query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error failing payment: %w", err)
	}
	return nil
}

// AttachVoucher links the voucher sold by a payment
func (r *PaymentRepository) AttachVoucher(ctx context.Context, reference string, voucherID int64) error {
	sql, args, err := psql.Update("payments").
		Set("voucher_id", voucherID).
		Where(squirrel.Eq{"reference": reference}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build attach voucher query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error attaching voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) collect(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Payment, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list payments query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ListPendingBefore returns Pending payments created before the cutoff
func (r *PaymentRepository) ListPendingBefore(ctx context.Context, before time.Time) ([]*models.Payment, error) {
	return r.collect(ctx, psql.Select(paymentColumns...).From("payments").
		Where(squirrel.Eq{"status": models.PaymentPending}).
		Where(squirrel.Lt{"created_at": before}).
		OrderBy("created_at"))
}

// List returns payments matching filter
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, int64, error) {
	where := squirrel.Eq{}
	if filter.Status != "" {
		where["status"] = filter.Status
	}
	if filter.Purpose != "" {
		where["purpose"] = filter.Purpose
	}
	total, err := count(ctx, r.db, psql.Select("COUNT(*)").From("payments").Where(where))
	if err != nil {
		return nil, 0, fmt.Errorf("error counting payments: %w", err)
	}
	payments, err := r.collect(ctx, paginate(psql.Select(paymentColumns...).From("payments").Where(where).OrderBy("id DESC"),
		filter.Offset, filter.Limit))
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
