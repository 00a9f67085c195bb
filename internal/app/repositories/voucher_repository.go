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

var voucherColumns = []string{
	"id", "serial_number", "pin", "type", "price", "status", "buyer_email", "buyer_phone",
	"transaction_id", "sold_at", "used_at", "used_by_account_id", "expires_at", "created_at",
}

// VoucherRepository handles voucher database operations
type VoucherRepository struct {
	db db.DBTX
}

// NewVoucherRepository creates a new VoucherRepository
func NewVoucherRepository(conn db.DBTX) *VoucherRepository {
	return &VoucherRepository{db: conn}
}

func scanVoucher(row pgx.Row) (*models.Voucher, error) {
	var v models.Voucher
	err := row.Scan(
		&v.ID, &v.SerialNumber, &v.PIN, &v.Type, &v.Price, &v.Status, &v.BuyerEmail, &v.BuyerPhone,
		&v.TransactionID, &v.SoldAt, &v.UsedAt, &v.UsedByAccountID, &v.ExpiresAt, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a voucher
func (r *VoucherRepository) Create(ctx context.Context, v *models.Voucher) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	sql, args, err := psql.Insert("vouchers").
		Columns("serial_number", "pin", "type", "price", "status", "buyer_email", "buyer_phone",
			"transaction_id", "sold_at", "expires_at", "created_at").
		Values(v.SerialNumber, v.PIN, v.Type, v.Price, v.Status, v.BuyerEmail, v.BuyerPhone,
			v.TransactionID, v.SoldAt, v.ExpiresAt, v.CreatedAt).
		// a serial collision must not abort the surrounding batch transaction
		Suffix("ON CONFLICT (serial_number) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create voucher query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&v.ID); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.ErrDuplicateVoucherSerial
		case dberrors.IsDuplicateConstraintError(err, "vouchers_transaction_id_key"):
			return apperrors.ErrResourceAlreadyExists
		}
		logger.Error().Err(err).Str("type", string(v.Type)).Msg("Error executing create voucher query")
		return fmt.Errorf("error creating voucher: %w", err)
	}
	return nil
}

// Redeem consumes a sold voucher in one conditional update
func (r *VoucherRepository) Redeem(ctx context.Context, serial, pin string, now time.Time) (*models.Voucher, error) {
	sql, args, err := redeemQuery(serial, pin, now).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build redeem voucher query: %w", err)
	}

	v, err := scanVoucher(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvalidVoucher
		}
		logger.Error().Err(err).Msg("Error executing redeem voucher query")
		return nil, fmt.Errorf("error redeeming voucher: %w", err)
	}
	return v, nil
}

// redeemQuery flips a sold, unexpired voucher to used in one statement, so
// two concurrent redemptions cannot both match the row.
func redeemQuery(serial, pin string, now time.Time) squirrel.UpdateBuilder {
	return psql.Update("vouchers").
		Set("status", models.VoucherUsed).
		Set("used_at", now).
		Where(squirrel.Eq{"serial_number": serial, "pin": pin, "status": models.VoucherSold}).
		Where(squirrel.Gt{"expires_at": now}).
		Suffix("RETURNING " + joinColumns(voucherColumns))
}

// BindAccount records which account consumed the voucher
func (r *VoucherRepository) BindAccount(ctx context.Context, voucherID, accountID int64) error {
	sql, args, err := psql.Update("vouchers").
		Set("used_by_account_id", accountID).
		Where(squirrel.Eq{"id": voucherID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build bind voucher query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error binding voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrVoucherNotFound
	}
	return nil
}

func (r *VoucherRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Voucher, error) {
	sql, args, err := psql.Select(voucherColumns...).From("vouchers").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get voucher query: %w", err)
	}
	v, err := scanVoucher(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("error retrieving voucher: %w", err)
	}
	return v, nil
}

// GetBySerial retrieves a voucher by serial number
func (r *VoucherRepository) GetBySerial(ctx context.Context, serial string) (*models.Voucher, error) {
	return r.getOne(ctx, squirrel.Eq{"serial_number": serial})
}

// GetByTransactionID retrieves the voucher sold under a gateway reference
func (r *VoucherRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Voucher, error) {
	return r.getOne(ctx, squirrel.Eq{"transaction_id": transactionID})
}

// List returns vouchers matching filter
func (r *VoucherRepository) List(ctx context.Context, filter models.VoucherFilter) ([]*models.Voucher, int64, error) {
	where := squirrel.Eq{}
	if filter.Status != "" {
		where["status"] = filter.Status
	}
	if filter.Type != "" {
		where["type"] = filter.Type
	}

	total, err := count(ctx, r.db, psql.Select("COUNT(*)").From("vouchers").Where(where))
	if err != nil {
		return nil, 0, fmt.Errorf("error counting vouchers: %w", err)
	}

	sql, args, err := paginate(psql.Select(voucherColumns...).From("vouchers").Where(where).OrderBy("id DESC"),
		filter.Offset, filter.Limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list vouchers query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []*models.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning voucher: %w", err)
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, total, rows.Err()
}

// ExpireBefore marks stale Unsold and Sold vouchers as Expired
func (r *VoucherRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	sql, args, err := psql.Update("vouchers").
		Set("status", models.VoucherExpired).
		Where(squirrel.Eq{"status": []models.VoucherStatus{models.VoucherUnsold, models.VoucherSold}}).
		Where(squirrel.LtOrEq{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build expire vouchers query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error expiring vouchers: %w", err)
	}
	return tag.RowsAffected(), nil
}
