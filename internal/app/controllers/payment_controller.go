package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/services"
	"github.com/yigit/uniadmit/internal/middleware"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/paystack"
)

const maxWebhookBody = 1 << 20

// PaymentController handles online payments and gateway callbacks
type PaymentController struct {
	payments *services.PaymentService
	logger   zerolog.Logger
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(payments *services.PaymentService, logger zerolog.Logger) *PaymentController {
	return &PaymentController{payments: payments, logger: logger}
}

// InitializeVoucherPurchase starts buying a voucher online
// @Summary Buy a voucher
// @Description Creates a pending payment and returns the gateway checkout URL
// @Tags payments
// @Accept json
// @Produce json
// @Param request body dto.VoucherPurchaseRequest true "Buyer and voucher type"
// @Success 201 {object} dto.APIResponse{data=dto.PaymentInitResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 502 {object} dto.ErrorResponse "Payment gateway unavailable"
// @Router /payments/vouchers/initialize [post]
func (c *PaymentController) InitializeVoucherPurchase(ctx *gin.Context) {
	var req dto.VoucherPurchaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	resp, err := c.payments.InitializeVoucherPurchase(ctx.Request.Context(), req.Email, req.Phone, models.VoucherType(req.Type))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp, "Payment initialized"))
}

// Verify confirms a payment after the gateway redirect
// @Summary Verify payment
// @Description Verifies the transaction with the gateway. A successful voucher purchase returns the serial number and PIN.
// @Tags payments
// @Produce json
// @Param reference path string true "Payment reference"
// @Success 200 {object} dto.APIResponse{data=dto.PaymentVerifyResponse}
// @Failure 404 {object} dto.ErrorResponse "Payment not found"
// @Failure 502 {object} dto.ErrorResponse "Payment gateway unavailable"
// @Router /payments/{reference}/verify [get]
func (c *PaymentController) Verify(ctx *gin.Context) {
	resp, err := c.payments.Confirm(ctx.Request.Context(), ctx.Param("reference"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// Webhook receives gateway events
// @Summary Payment webhook
// @Description Authenticated by the HMAC-SHA512 signature of the raw body
// @Tags payments
// @Accept json
// @Produce json
// @Param x-paystack-signature header string true "Body signature"
// @Success 200 {object} dto.APIResponse
// @Failure 401 {object} dto.ErrorResponse "Invalid signature"
// @Router /payments/webhook [post]
func (c *PaymentController) Webhook(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewCustomError(apperrors.ErrBadRequest, "Unable to read body"))
		return
	}
	err = c.payments.HandleWebhook(ctx.Request.Context(), body, ctx.GetHeader(paystack.SignatureHeader), ctx.ClientIP())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Event processed"))
}

// PayInvoice starts payment of one of the caller's invoices
// @Summary Pay an invoice
// @Tags student
// @Produce json
// @Security BearerAuth
// @Param id path int true "Invoice ID"
// @Success 201 {object} dto.APIResponse{data=dto.PaymentInitResponse}
// @Failure 403 {object} dto.ErrorResponse "Invoice belongs to another account"
// @Failure 409 {object} dto.ErrorResponse "Invoice is not payable"
// @Router /student/invoices/{id}/pay [post]
func (c *PaymentController) PayInvoice(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Invoice")
	if !ok {
		return
	}
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	resp, err := c.payments.InitializeInvoicePayment(ctx.Request.Context(), accountID, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp, "Payment initialized"))
}

// List lists payments
// @Summary List payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status" Enums(Pending, Success, Failed)
// @Param purpose query string false "Purpose" Enums(voucher, invoice)
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /payments [get]
func (c *PaymentController) List(ctx *gin.Context) {
	var req dto.PaymentFilterRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	p := pageFromQuery(ctx)
	payments, total, err := c.payments.List(ctx.Request.Context(), models.PaymentFilter{
		Status:  models.PaymentStatus(req.Status),
		Purpose: models.PaymentPurpose(req.Purpose),
		Offset:  p.offset,
		Limit:   p.limit,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	p.respond(ctx, payments, total, "")
}
