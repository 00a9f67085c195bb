package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/services"
	"github.com/yigit/uniadmit/internal/middleware"
)

// VoucherController handles offline voucher issuance
type VoucherController struct {
	vouchers *services.VoucherService
}

// NewVoucherController creates a new VoucherController
func NewVoucherController(vouchers *services.VoucherService) *VoucherController {
	return &VoucherController{vouchers: vouchers}
}

// GenerateBatch creates Unsold vouchers for offline sale
// @Summary Generate vouchers
// @Tags vouchers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.GenerateVouchersRequest true "Batch"
// @Success 201 {object} dto.APIResponse{data=[]models.Voucher}
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /vouchers/batch [post]
func (c *VoucherController) GenerateBatch(ctx *gin.Context) {
	var req dto.GenerateVouchersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	vouchers, err := c.vouchers.GenerateBatch(ctx.Request.Context(), req.Count, models.VoucherType(req.Type), req.Price)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(vouchers, "Vouchers generated"))
}

// List lists vouchers
// @Summary List vouchers
// @Tags vouchers
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status" Enums(Unsold, Sold, Used, Expired)
// @Param type query string false "Voucher type"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /vouchers [get]
func (c *VoucherController) List(ctx *gin.Context) {
	var req dto.VoucherFilterRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	p := pageFromQuery(ctx)
	vouchers, total, err := c.vouchers.List(ctx.Request.Context(), models.VoucherFilter{
		Status: models.VoucherStatus(req.Status),
		Type:   models.VoucherType(req.Type),
		Offset: p.offset,
		Limit:  p.limit,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	p.respond(ctx, vouchers, total, "")
}
