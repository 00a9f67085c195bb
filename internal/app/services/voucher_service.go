package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/codes"
)

const (
	serialLength  = 10
	pinLength     = 8
	maxBatchCount = 1000
)

// VoucherConfig tunes voucher issuance
type VoucherConfig struct {
	Validity      time.Duration
	SerialRetries int
}

// SellRequest describes a voucher bought online
type SellRequest struct {
	BuyerEmail       string
	BuyerPhone       string
	Type             models.VoucherType
	Price            int64
	GatewayReference string
}

// VoucherService issues, sells and redeems vouchers
type VoucherService struct {
	tx     repositories.Transactor
	repos  *repositories.Repositories
	codes  codes.Generator
	cfg    VoucherConfig
	now    Clock
	logger zerolog.Logger
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(tx repositories.Transactor, repos *repositories.Repositories, cfg VoucherConfig, logger zerolog.Logger) *VoucherService {
	if cfg.SerialRetries < 1 {
		cfg.SerialRetries = 5
	}
	if cfg.Validity <= 0 {
		cfg.Validity = 180 * 24 * time.Hour
	}
	return &VoucherService{
		tx:     tx,
		repos:  repos,
		codes:  codes.Default,
		cfg:    cfg,
		now:    utcNow,
		logger: logger,
	}
}

// GenerateBatch creates count Unsold vouchers in one transaction
func (s *VoucherService) GenerateBatch(ctx context.Context, count int, vtype models.VoucherType, price int64) ([]*models.Voucher, error) {
	if count < 1 || count > maxBatchCount {
		return nil, apperrors.NewValidationError(fmt.Sprintf("count must be between 1 and %d", maxBatchCount))
	}
	if price < 0 {
		return nil, apperrors.NewValidationError("price cannot be negative")
	}
	vtype, err := models.ParseVoucherType(string(vtype))
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	now := s.now()
	vouchers := make([]*models.Voucher, 0, count)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		vouchers = vouchers[:0]
		for i := 0; i < count; i++ {
			v := &models.Voucher{
				Type:      vtype,
				Price:     price,
				Status:    models.VoucherUnsold,
				ExpiresAt: now.Add(s.cfg.Validity),
				CreatedAt: now,
			}
			if err := s.insertWithFreshSerial(ctx, repos, v); err != nil {
				return err
			}
			vouchers = append(vouchers, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("count", count).Str("type", string(vtype)).Msg("Voucher batch generated")
	return vouchers, nil
}

// insertWithFreshSerial draws serial and PIN and inserts, redrawing on a
// serial collision up to the configured attempt limit.
func (s *VoucherService) insertWithFreshSerial(ctx context.Context, repos *repositories.Repositories, v *models.Voucher) error {
	for attempt := 1; attempt <= s.cfg.SerialRetries; attempt++ {
		serial, err := s.codes(serialLength)
		if err != nil {
			return err
		}
		pin, err := s.codes(pinLength)
		if err != nil {
			return err
		}
		v.SerialNumber, v.PIN = serial, pin

		err = repos.Vouchers.Create(ctx, v)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrDuplicateVoucherSerial) {
			return err
		}
		s.logger.Debug().Int("attempt", attempt).Msg("Voucher serial collision, retrying")
	}
	return fmt.Errorf("no unique serial after %d attempts: %w", s.cfg.SerialRetries, apperrors.ErrDuplicateVoucherSerial)
}

// Sell creates a voucher directly in status Sold for a confirmed online
// payment. A repeated gateway reference returns the voucher already sold.
func (s *VoucherService) Sell(ctx context.Context, req SellRequest) (*models.Voucher, error) {
	var sold *models.Voucher
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		v, _, err := s.sell(ctx, repos, req)
		sold = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return sold, nil
}

// sell runs inside the caller's transaction and reports whether a new
// voucher was created.
func (s *VoucherService) sell(ctx context.Context, repos *repositories.Repositories, req SellRequest) (*models.Voucher, bool, error) {
	if strings.TrimSpace(req.GatewayReference) == "" {
		return nil, false, apperrors.NewValidationError("gateway reference is required")
	}
	existing, err := repos.Vouchers.GetByTransactionID(ctx, req.GatewayReference)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrVoucherNotFound) {
		return nil, false, err
	}

	now := s.now()
	email := strings.TrimSpace(req.BuyerEmail)
	phone := strings.TrimSpace(req.BuyerPhone)
	ref := req.GatewayReference
	v := &models.Voucher{
		Type:          req.Type,
		Price:         req.Price,
		Status:        models.VoucherSold,
		BuyerEmail:    &email,
		TransactionID: &ref,
		SoldAt:        &now,
		ExpiresAt:     now.Add(s.cfg.Validity),
		CreatedAt:     now,
	}
	if phone != "" {
		v.BuyerPhone = &phone
	}
	if err := s.insertWithFreshSerial(ctx, repos, v); err != nil {
		return nil, false, err
	}
	s.logger.Info().Int64("voucherID", v.ID).Str("reference", ref).Msg("Voucher sold")
	return v, true, nil
}

// Redeem consumes a Sold voucher outside of registration
func (s *VoucherService) Redeem(ctx context.Context, serial, pin string) (*models.Voucher, error) {
	return s.repos.Vouchers.Redeem(ctx, strings.TrimSpace(serial), strings.TrimSpace(pin), s.now())
}

// List returns a page of vouchers and the total match count
func (s *VoucherService) List(ctx context.Context, filter models.VoucherFilter) ([]*models.Voucher, int64, error) {
	vouchers, total, err := s.repos.Vouchers.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vouchers: %w", err)
	}
	return vouchers, total, nil
}

// GetBySerial looks a voucher up by serial number
func (s *VoucherService) GetBySerial(ctx context.Context, serial string) (*models.Voucher, error) {
	return s.repos.Vouchers.GetBySerial(ctx, strings.TrimSpace(serial))
}

// ExpireStale marks vouchers past their expiry as Expired
func (s *VoucherService) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repos.Vouchers.ExpireBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire vouchers: %w", err)
	}
	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("Expired stale vouchers")
	}
	return n, nil
}
