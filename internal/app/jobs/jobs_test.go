package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVouchers struct {
	at  time.Time
	err error
}

func (f *fakeVouchers) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a deadline")
	}
	f.at = now
	return 2, f.err
}

type fakePayments struct {
	olderThan time.Duration
	calls     int
}

func (f *fakePayments) ReconcilePending(_ context.Context, olderThan time.Duration) (int, error) {
	f.calls++
	f.olderThan = olderThan
	return 1, nil
}

func TestJobsCallServices(t *testing.T) {
	vouchers := &fakeVouchers{}
	payments := &fakePayments{}
	j := NewJobs(vouchers, payments, Config{ReconcileAfter: 15 * time.Minute}, zerolog.Nop())
	fixed := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return fixed }

	j.ExpireVouchers()
	assert.Equal(t, fixed, vouchers.at)

	j.ReconcilePayments()
	assert.Equal(t, 1, payments.calls)
	assert.Equal(t, 15*time.Minute, payments.olderThan)
}

func TestJobErrorsAreSwallowed(t *testing.T) {
	j := NewJobs(&fakeVouchers{err: errors.New("db down")}, &fakePayments{}, Config{}, zerolog.Nop())
	assert.NotPanics(t, j.ExpireVouchers)
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	j := NewJobs(&fakeVouchers{}, &fakePayments{}, Config{VoucherExpiry: "not a schedule"}, zerolog.Nop())
	s := NewScheduler(j, zerolog.Nop())
	assert.Error(t, s.Start())
}

func TestSchedulerStartStop(t *testing.T) {
	j := NewJobs(&fakeVouchers{}, &fakePayments{}, Config{VoucherExpiry: "@hourly", PaymentReconcile: "*/10 * * * *"}, zerolog.Nop())
	s := NewScheduler(j, zerolog.Nop())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
