package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

type voucherRepo struct{ s *Store }

func cloneVoucher(v *models.Voucher) *models.Voucher {
	c := *v
	return &c
}

func (r *voucherRepo) Create(_ context.Context, v *models.Voucher) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.t.vouchers {
		if other.SerialNumber == v.SerialNumber {
			return apperrors.ErrDuplicateVoucherSerial
		}
		if v.TransactionID != nil && other.TransactionID != nil && *other.TransactionID == *v.TransactionID {
			return apperrors.ErrResourceAlreadyExists
		}
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.ID = r.s.nextID()
	r.s.t.vouchers[v.ID] = cloneVoucher(v)
	return nil
}

func (r *voucherRepo) Redeem(_ context.Context, serial, pin string, now time.Time) (*models.Voucher, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, v := range r.s.t.vouchers {
		if v.SerialNumber != serial || v.PIN != pin || v.Status != models.VoucherSold || !v.ExpiresAt.After(now) {
			continue
		}
		next := cloneVoucher(v)
		next.Status = models.VoucherUsed
		next.UsedAt = &now
		r.s.t.vouchers[id] = next
		return cloneVoucher(next), nil
	}
	return nil, apperrors.ErrInvalidVoucher
}

func (r *voucherRepo) BindAccount(_ context.Context, voucherID, accountID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, ok := r.s.t.vouchers[voucherID]
	if !ok {
		return apperrors.ErrVoucherNotFound
	}
	next := cloneVoucher(v)
	next.UsedByAccountID = &accountID
	r.s.t.vouchers[voucherID] = next
	return nil
}

func (r *voucherRepo) find(match func(*models.Voucher) bool) (*models.Voucher, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, v := range r.s.t.vouchers {
		if match(v) {
			return cloneVoucher(v), nil
		}
	}
	return nil, apperrors.ErrVoucherNotFound
}

func (r *voucherRepo) GetBySerial(_ context.Context, serial string) (*models.Voucher, error) {
	return r.find(func(v *models.Voucher) bool { return v.SerialNumber == serial })
}

func (r *voucherRepo) GetByTransactionID(_ context.Context, transactionID string) (*models.Voucher, error) {
	return r.find(func(v *models.Voucher) bool { return v.TransactionID != nil && *v.TransactionID == transactionID })
}

func (r *voucherRepo) List(_ context.Context, filter models.VoucherFilter) ([]*models.Voucher, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*models.Voucher
	for _, v := range r.s.t.vouchers {
		if (filter.Status != "" && v.Status != filter.Status) || (filter.Type != "" && v.Type != filter.Type) {
			continue
		}
		matched = append(matched, cloneVoucher(v))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	start, end := window(len(matched), filter.Offset, filter.Limit)
	return matched[start:end], int64(len(matched)), nil
}

func (r *voucherRepo) ExpireBefore(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, v := range r.s.t.vouchers {
		if v.Status.CanTransition(models.VoucherExpired) && !v.ExpiresAt.After(now) {
			next := cloneVoucher(v)
			next.Status = models.VoucherExpired
			r.s.t.vouchers[id] = next
			n++
		}
	}
	return n, nil
}
