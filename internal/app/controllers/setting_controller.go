package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/services"
	"github.com/yigit/uniadmit/internal/middleware"
)

// SettingController exposes institution settings
type SettingController struct {
	settings *services.SettingService
}

// NewSettingController creates a new SettingController
func NewSettingController(settings *services.SettingService) *SettingController {
	return &SettingController{settings: settings}
}

// Get returns every setting
// @Summary Get settings
// @Tags settings
// @Produce json
// @Success 200 {object} dto.APIResponse{data=map[string]string}
// @Router /settings [get]
func (c *SettingController) Get(ctx *gin.Context) {
	settings, err := c.settings.GetAll(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(settings, ""))
}

// Update upserts settings from a flat JSON object
// @Summary Update settings
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body map[string]interface{} true "Settings"
// @Success 200 {object} dto.APIResponse{data=map[string]string}
// @Failure 400 {object} dto.ErrorResponse "Invalid settings"
// @Router /settings [put]
func (c *SettingController) Update(ctx *gin.Context) {
	var values map[string]interface{}
	if err := ctx.ShouldBindJSON(&values); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	settings, err := c.settings.Update(ctx.Request.Context(), values)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(settings, "Settings updated"))
}
