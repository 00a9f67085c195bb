package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/repositories"
)

// InvoiceService bills accounts
type InvoiceService struct {
	repos  *repositories.Repositories
	logger zerolog.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(repos *repositories.Repositories, logger zerolog.Logger) *InvoiceService {
	return &InvoiceService{repos: repos, logger: logger}
}

// Create raises an Unpaid invoice in the institution currency
func (s *InvoiceService) Create(ctx context.Context, req *dto.CreateInvoiceRequest) (*models.Invoice, error) {
	raw, err := s.repos.Settings.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	invoice := &models.Invoice{
		AccountID:   req.AccountID,
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Currency:    models.InstitutionFromMap(raw).Currency,
		Status:      models.InvoiceUnpaid,
		DueDate:     req.DueDate,
	}
	if err := s.repos.Invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("invoiceID", invoice.ID).Int64("accountID", invoice.AccountID).Msg("Invoice created")
	return invoice, nil
}

// Get returns one invoice
func (s *InvoiceService) Get(ctx context.Context, id int64) (*models.Invoice, error) {
	return s.repos.Invoices.GetByID(ctx, id)
}

// List returns a page of invoices and the total match count
func (s *InvoiceService) List(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, int64, error) {
	invoices, total, err := s.repos.Invoices.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, total, nil
}

// ListMine returns every invoice of one account
func (s *InvoiceService) ListMine(ctx context.Context, accountID int64) ([]*models.Invoice, error) {
	invoices, _, err := s.repos.Invoices.List(ctx, models.InvoiceFilter{AccountID: accountID})
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// Cancel voids an Unpaid invoice
func (s *InvoiceService) Cancel(ctx context.Context, id int64) (*models.Invoice, error) {
	if err := s.repos.Invoices.Cancel(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("invoiceID", id).Msg("Invoice cancelled")
	return s.repos.Invoices.GetByID(ctx, id)
}

// MarkPaid settles an invoice inside the caller's transaction
func (s *InvoiceService) MarkPaid(ctx context.Context, repos *repositories.Repositories, id int64, reference string, at time.Time) error {
	return repos.Invoices.MarkPaid(ctx, id, reference, at)
}
