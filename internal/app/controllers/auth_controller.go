package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/services"
	"github.com/yigit/uniadmit/internal/middleware"
)

// AuthController handles registration, login and account administration
type AuthController struct {
	authService *services.AuthService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

// Register redeems a voucher and creates an applicant account
// @Summary Register an applicant
// @Description Redeems a sold voucher (serial number and PIN) and creates the applicant account with an empty draft application
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterApplicantRequest true "Voucher and account details"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse} "Applicant registered"
// @Failure 400 {object} dto.ErrorResponse "Invalid request or invalid voucher"
// @Failure 409 {object} dto.ErrorResponse "Email or username already exists"
// @Failure 429 {object} dto.ErrorResponse "Too many attempts"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterApplicantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid registration request payload")
		middleware.HandleBindingError(ctx, err)
		return
	}

	resp, err := c.authService.RegisterApplicant(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("serial", req.SerialNumber).Msg("Applicant registration failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp, "Registration successful"))
}

// Login authenticates by email or system ID
// @Summary Login
// @Description Authenticates with an email or system ID and password, returning access and refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Login successful"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials or account disabled"
// @Failure 429 {object} dto.ErrorResponse "Too many attempts"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	resp, err := c.authService.Authenticate(ctx.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		c.logger.Warn().Err(err).Str("identifier", req.Identifier).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Login successful"))
}

// RefreshToken rotates a refresh token
// @Summary Refresh tokens
// @Description Exchanges a refresh token for a new token pair. The presented token is revoked.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Tokens refreshed"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Invalid, expired or revoked refresh token"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/refresh [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	resp, err := c.authService.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Token refreshed"))
}

// Me returns the caller's account
// @Summary Current account
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.AccountResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	account, err := c.authService.Profile(ctx.Request.Context(), accountID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(account, ""))
}

// CreateAccount provisions a staff account
// @Summary Create staff account
// @Description Creates an admin, registrar, lecturer or finance account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateStaffAccountRequest true "Staff account"
// @Success 201 {object} dto.APIResponse{data=dto.AccountResponse} "Account created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 409 {object} dto.ErrorResponse "Email or username already exists"
// @Router /admin/accounts [post]
func (c *AuthController) CreateAccount(ctx *gin.Context) {
	var req dto.CreateStaffAccountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	account, err := c.authService.CreateStaffAccount(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("accountId", account.ID).Str("role", string(account.Role)).Msg("Staff account created")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(account, "Account created"))
}

// ListAccounts lists accounts
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role filter"
// @Param q query string false "Search by name, email or system ID"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /admin/accounts [get]
func (c *AuthController) ListAccounts(ctx *gin.Context) {
	var req dto.AccountFilterRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	p := pageFromQuery(ctx)

	accounts, total, err := c.authService.ListAccounts(ctx.Request.Context(), models.AccountFilter{
		Role:   models.Role(req.Role),
		Search: req.Search,
		Offset: p.offset,
		Limit:  p.limit,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	p.respond(ctx, accounts, total, "")
}
