// Package inmem is a process-local implementation of every repository
// interface. It backs service tests and the "memory" database driver.
package inmem

import (
	"context"
	"sync"

	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/helpers"
)

// Store holds all tables. Stored records are never mutated in place: every
// write replaces the map entry with a fresh copy, which keeps snapshots cheap.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	t    tables
}

type tables struct {
	seq          int64
	accounts     map[int64]*models.Account
	vouchers     map[int64]*models.Voucher
	applications map[int64]*models.Application
	documents    map[int64]*models.Document
	programs     map[int64]*models.Program
	courses      map[int64]*models.Course
	enrollments  map[int64]*models.Enrollment
	gradeBands   []models.GradeBand
	invoices     map[int64]*models.Invoice
	payments     map[int64]*models.Payment
	settings     map[string]string
	tokens       map[string]*models.RefreshToken
}

// New creates an empty store
func New() *Store {
	return &Store{t: tables{
		accounts:     map[int64]*models.Account{},
		vouchers:     map[int64]*models.Voucher{},
		applications: map[int64]*models.Application{},
		documents:    map[int64]*models.Document{},
		programs:     map[int64]*models.Program{},
		courses:      map[int64]*models.Course{},
		enrollments:  map[int64]*models.Enrollment{},
		invoices:     map[int64]*models.Invoice{},
		payments:     map[int64]*models.Payment{},
		settings:     map[string]string{},
		tokens:       map[string]*models.RefreshToken{},
	}}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (t tables) snapshot() tables {
	return tables{
		seq:          t.seq,
		accounts:     copyMap(t.accounts),
		vouchers:     copyMap(t.vouchers),
		applications: copyMap(t.applications),
		documents:    copyMap(t.documents),
		programs:     copyMap(t.programs),
		courses:      copyMap(t.courses),
		enrollments:  copyMap(t.enrollments),
		gradeBands:   append([]models.GradeBand(nil), t.gradeBands...),
		invoices:     copyMap(t.invoices),
		payments:     copyMap(t.payments),
		settings:     copyMap(t.settings),
		tokens:       copyMap(t.tokens),
	}
}

func (s *Store) nextID() int64 {
	s.t.seq++
	return s.t.seq
}

// Repositories returns the repository set backed by the store
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Accounts:     &accountRepo{s},
		Vouchers:     &voucherRepo{s},
		Applications: &applicationRepo{s},
		Documents:    &documentRepo{s},
		Programs:     &programRepo{s},
		Courses:      &courseRepo{s},
		Enrollments:  &enrollmentRepo{s},
		GradeBands:   &gradeBandRepo{s},
		Invoices:     &invoiceRepo{s},
		Payments:     &paymentRepo{s},
		Settings:     &settingRepo{s},
		Tokens:       &tokenRepo{s},
	}
}

// WithinTx serializes units of work and restores the pre-transaction
// snapshot when fn fails or panics.
func (s *Store) WithinTx(ctx context.Context, fn repositories.TxFn) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.t.snapshot()
	s.mu.Unlock()

	committed := false
	defer func() {
		if !committed {
			s.mu.Lock()
			s.t = snap
			s.mu.Unlock()
		}
	}()

	if err := fn(ctx, s.Repositories()); err != nil {
		return err
	}
	committed = true
	return nil
}

// window converts offset and limit into slice bounds over n items
func window(n int, offset uint64, limit int) (int, int) {
	if limit <= 0 {
		return 0, n
	}
	start, end := helpers.CalculateSliceIndices(int(offset)/limit+1, limit, n)
	if end > n {
		end = n
	}
	return start, end
}
