package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/services"
	"github.com/yigit/uniadmit/internal/middleware"
)

// InvoiceController handles invoices
type InvoiceController struct {
	invoices *services.InvoiceService
}

// NewInvoiceController creates a new InvoiceController
func NewInvoiceController(invoices *services.InvoiceService) *InvoiceController {
	return &InvoiceController{invoices: invoices}
}

// Create bills an account
// @Summary Create invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateInvoiceRequest true "Invoice"
// @Success 201 {object} dto.APIResponse{data=models.Invoice}
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Router /invoices [post]
func (c *InvoiceController) Create(ctx *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	invoice, err := c.invoices.Create(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(invoice, "Invoice created"))
}

// List lists invoices
// @Summary List invoices
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param accountId query int false "Account filter"
// @Param status query string false "Status" Enums(Unpaid, Paid, Cancelled)
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /invoices [get]
func (c *InvoiceController) List(ctx *gin.Context) {
	var req dto.InvoiceFilterRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	p := pageFromQuery(ctx)
	invoices, total, err := c.invoices.List(ctx.Request.Context(), models.InvoiceFilter{
		AccountID: req.AccountID,
		Status:    models.InvoiceStatus(req.Status),
		Offset:    p.offset,
		Limit:     p.limit,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	p.respond(ctx, invoices, total, "")
}

// Cancel cancels an Unpaid invoice
// @Summary Cancel invoice
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param id path int true "Invoice ID"
// @Success 200 {object} dto.APIResponse{data=models.Invoice}
// @Failure 409 {object} dto.ErrorResponse "Invoice is not payable"
// @Router /invoices/{id}/cancel [post]
func (c *InvoiceController) Cancel(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Invoice")
	if !ok {
		return
	}
	invoice, err := c.invoices.Cancel(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(invoice, "Invoice cancelled"))
}

// ListMine lists the caller's invoices
// @Summary My invoices
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Invoice}
// @Router /student/invoices [get]
func (c *InvoiceController) ListMine(ctx *gin.Context) {
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	invoices, err := c.invoices.ListMine(ctx.Request.Context(), accountID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if invoices == nil {
		invoices = []*models.Invoice{}
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(invoices, ""))
}
