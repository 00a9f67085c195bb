// Package jobs runs the periodic maintenance tasks of the admissions backend
// on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// VoucherExpirer marks vouchers past their expiry
type VoucherExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// PaymentReconciler re-verifies payments stuck in Pending
type PaymentReconciler interface {
	ReconcilePending(ctx context.Context, olderThan time.Duration) (int, error)
}

// Config holds the job schedules in cron syntax
type Config struct {
	VoucherExpiry    string
	PaymentReconcile string
	ReconcileAfter   time.Duration
	Timeout          time.Duration
}

// Jobs contains the scheduled task implementations
type Jobs struct {
	vouchers VoucherExpirer
	payments PaymentReconciler
	cfg      Config
	now      func() time.Time
	logger   zerolog.Logger
}

// NewJobs creates a new Jobs runner
func NewJobs(vouchers VoucherExpirer, payments PaymentReconciler, cfg Config, logger zerolog.Logger) *Jobs {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Jobs{
		vouchers: vouchers,
		payments: payments,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("component", "jobs").Logger(),
	}
}

// ExpireVouchers moves unredeemed vouchers past their expiry to Expired
func (j *Jobs) ExpireVouchers() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
	defer cancel()

	n, err := j.vouchers.ExpireStale(ctx, j.now())
	if err != nil {
		j.logger.Error().Err(err).Msg("Voucher expiry job failed")
		return
	}
	j.logger.Debug().Int64("expired", n).Msg("Voucher expiry job finished")
}

// ReconcilePayments settles payments whose webhook never arrived
func (j *Jobs) ReconcilePayments() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
	defer cancel()

	settled, err := j.payments.ReconcilePending(ctx, j.cfg.ReconcileAfter)
	if err != nil {
		j.logger.Error().Err(err).Msg("Payment reconciliation job failed")
		return
	}
	j.logger.Debug().Int("settled", settled).Msg("Payment reconciliation job finished")
}

// Scheduler owns the cron runner
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger zerolog.Logger
}

// cronLogger adapts zerolog to cron's logger interface
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// NewScheduler creates a scheduler whose jobs never run concurrently with
// themselves and whose panics are recovered
func NewScheduler(jobs *Jobs, logger zerolog.Logger) *Scheduler {
	cl := cronLogger{l: logger.With().Str("component", "cron").Logger()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	return &Scheduler{cron: c, jobs: jobs, logger: logger}
}

// Start registers the jobs and starts the cron runner
func (s *Scheduler) Start() error {
	entries := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"voucher expiry", s.jobs.cfg.VoucherExpiry, s.jobs.ExpireVouchers},
		{"payment reconciliation", s.jobs.cfg.PaymentReconcile, s.jobs.ReconcilePayments},
	}
	for _, e := range entries {
		if e.schedule == "" {
			continue
		}
		if _, err := s.cron.AddFunc(e.schedule, e.run); err != nil {
			return fmt.Errorf("failed to schedule %s job: %w", e.name, err)
		}
		s.logger.Info().Str("job", e.name).Str("schedule", e.schedule).Msg("Scheduled job")
	}
	s.cron.Start()
	return nil
}

// Stop stops the runner and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("Timed out waiting for scheduled jobs to finish")
	}
}
