package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

type invoiceRepo struct{ s *Store }

func (r *invoiceRepo) Create(_ context.Context, inv *models.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.accounts[inv.AccountID]; !ok {
		return apperrors.ErrAccountNotFound
	}
	if inv.Status == "" {
		inv.Status = models.InvoiceUnpaid
	}
	inv.ID = r.s.nextID()
	inv.CreatedAt = time.Now().UTC()
	c := *inv
	r.s.t.invoices[inv.ID] = &c
	return nil
}

func (r *invoiceRepo) GetByID(_ context.Context, id int64) (*models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inv, ok := r.s.t.invoices[id]
	if !ok {
		return nil, apperrors.ErrInvoiceNotFound
	}
	c := *inv
	return &c, nil
}

func (r *invoiceRepo) List(_ context.Context, filter models.InvoiceFilter) ([]*models.Invoice, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*models.Invoice
	for _, inv := range r.s.t.invoices {
		if (filter.AccountID > 0 && inv.AccountID != filter.AccountID) || (filter.Status != "" && inv.Status != filter.Status) {
			continue
		}
		c := *inv
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	start, end := window(len(matched), filter.Offset, filter.Limit)
	return matched[start:end], int64(len(matched)), nil
}

func (r *invoiceRepo) transitionUnpaid(id int64, apply func(*models.Invoice)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inv, ok := r.s.t.invoices[id]
	if !ok {
		return apperrors.ErrInvoiceNotFound
	}
	if inv.Status != models.InvoiceUnpaid {
		return apperrors.ErrInvoiceNotPayable
	}
	next := *inv
	apply(&next)
	r.s.t.invoices[id] = &next
	return nil
}

func (r *invoiceRepo) MarkPaid(_ context.Context, id int64, reference string, at time.Time) error {
	return r.transitionUnpaid(id, func(inv *models.Invoice) {
		inv.Status = models.InvoicePaid
		inv.PaidAt = &at
		inv.PaymentReference = &reference
	})
}

func (r *invoiceRepo) Cancel(_ context.Context, id int64) error {
	return r.transitionUnpaid(id, func(inv *models.Invoice) { inv.Status = models.InvoiceCancelled })
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) findLocked(reference string) (int64, *models.Payment) {
	for id, p := range r.s.t.payments {
		if p.Reference == reference {
			return id, p
		}
	}
	return 0, nil
}

func (r *paymentRepo) Create(_ context.Context, p *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, existing := r.findLocked(p.Reference); existing != nil {
		return apperrors.ErrResourceAlreadyExists
	}
	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	p.ID = r.s.nextID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	c := *p
	r.s.t.payments[p.ID] = &c
	return nil
}

func (r *paymentRepo) GetByReference(_ context.Context, reference string) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, p := r.findLocked(reference)
	if p == nil {
		return nil, apperrors.ErrPaymentNotFound
	}
	c := *p
	return &c, nil
}

func (r *paymentRepo) update(reference string, apply func(*models.Payment) bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, p := r.findLocked(reference)
	if p == nil {
		return false, apperrors.ErrPaymentNotFound
	}
	next := *p
	if !apply(&next) {
		return false, nil
	}
	r.s.t.payments[id] = &next
	return true, nil
}

func (r *paymentRepo) MarkSuccess(_ context.Context, reference, gatewayResponse string, paidAt time.Time) (bool, error) {
	changed, err := r.update(reference, func(p *models.Payment) bool {
		if p.Status != models.PaymentPending {
			return false
		}
		p.Status = models.PaymentSuccess
		p.GatewayResponse = &gatewayResponse
		p.PaidAt = &paidAt
		return true
	})
	if err == apperrors.ErrPaymentNotFound {
		return false, nil
	}
	return changed, err
}

func (r *paymentRepo) MarkFailed(_ context.Context, reference, gatewayResponse string) error {
	_, err := r.update(reference, func(p *models.Payment) bool {
		if p.Status != models.PaymentPending {
			return false
		}
		p.Status = models.PaymentFailed
		p.GatewayResponse = &gatewayResponse
		return true
	})
	if err == apperrors.ErrPaymentNotFound {
		return nil
	}
	return err
}

func (r *paymentRepo) AttachVoucher(_ context.Context, reference string, voucherID int64) error {
	_, err := r.update(reference, func(p *models.Payment) bool {
		p.VoucherID = &voucherID
		return true
	})
	return err
}

func (r *paymentRepo) ListPendingBefore(_ context.Context, before time.Time) ([]*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Payment
	for _, p := range r.s.t.payments {
		if p.Status == models.PaymentPending && p.CreatedAt.Before(before) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *paymentRepo) List(_ context.Context, filter models.PaymentFilter) ([]*models.Payment, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*models.Payment
	for _, p := range r.s.t.payments {
		if (filter.Status != "" && p.Status != filter.Status) || (filter.Purpose != "" && p.Purpose != filter.Purpose) {
			continue
		}
		c := *p
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	start, end := window(len(matched), filter.Offset, filter.Limit)
	return matched[start:end], int64(len(matched)), nil
}

type settingRepo struct{ s *Store }

func (r *settingRepo) GetAll(_ context.Context) (map[string]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return copyMap(r.s.t.settings), nil
}

func (r *settingRepo) Upsert(_ context.Context, values map[string]string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, v := range values {
		r.s.t.settings[k] = v
	}
	return nil
}

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(_ context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.t.tokens[token.Token]; exists {
		return apperrors.ErrTokenInvalid
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	c := *token
	r.s.t.tokens[token.Token] = &c
	return nil
}

func (r *tokenRepo) Get(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.t.tokens[token]
	if !ok {
		return nil, apperrors.ErrTokenNotFound
	}
	c := *t
	return &c, nil
}

func (r *tokenRepo) Revoke(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.t.tokens[token]
	if !ok {
		return apperrors.ErrTokenNotFound
	}
	c := *t
	c.IsRevoked = true
	r.s.t.tokens[token] = &c
	return nil
}

func (r *tokenRepo) RevokeAllForAccount(_ context.Context, accountID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for k, t := range r.s.t.tokens {
		if t.AccountID == accountID && !t.IsRevoked {
			c := *t
			c.IsRevoked = true
			r.s.t.tokens[k] = &c
		}
	}
	return nil
}
