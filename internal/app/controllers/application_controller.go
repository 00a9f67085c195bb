package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/services"
	"github.com/yigit/uniadmit/internal/middleware"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

// ApplicationController serves the applicant's own form and the staff review queue
type ApplicationController struct {
	applications *services.ApplicationService
	admissions   *services.AdmissionService
	logger       zerolog.Logger
}

// NewApplicationController creates a new ApplicationController
func NewApplicationController(applications *services.ApplicationService, admissions *services.AdmissionService, logger zerolog.Logger) *ApplicationController {
	return &ApplicationController{
		applications: applications,
		admissions:   admissions,
		logger:       logger,
	}
}

// GetMine returns the caller's application
// @Summary Get my application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Router /applications/me [get]
func (c *ApplicationController) GetMine(ctx *gin.Context) {
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	app, err := c.applications.GetMine(ctx.Request.Context(), accountID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, ""))
}

// SaveMine overwrites the caller's draft
// @Summary Save my application
// @Description Saves personal details, program choices and exam sittings. Allowed while the application is Draft or Submitted.
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SaveApplicationRequest true "Application form"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid form"
// @Failure 404 {object} dto.ErrorResponse "Program not found"
// @Failure 409 {object} dto.ErrorResponse "Application can no longer be edited"
// @Router /applications/me [put]
func (c *ApplicationController) SaveMine(ctx *gin.Context) {
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	var req dto.SaveApplicationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	app, err := c.applications.SaveDraft(ctx.Request.Context(), accountID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, "Application saved"))
}

// SubmitMine submits the caller's application
// @Summary Submit my application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationResponse}
// @Failure 400 {object} dto.ErrorResponse "Application form is incomplete"
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /applications/me/submit [post]
func (c *ApplicationController) SubmitMine(ctx *gin.Context) {
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	app, err := c.applications.Submit(ctx.Request.Context(), accountID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, "Application submitted"))
}

// UploadDocument attaches a supporting document
// @Summary Upload a document
// @Tags applications
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param kind formData string true "Document kind" Enums(result_slip, birth_certificate, passport_photo, other)
// @Param file formData file true "Document file"
// @Success 201 {object} dto.APIResponse{data=models.Document}
// @Failure 400 {object} dto.ErrorResponse "Invalid file"
// @Failure 409 {object} dto.ErrorResponse "Application can no longer be edited"
// @Router /applications/me/documents [post]
func (c *ApplicationController) UploadDocument(ctx *gin.Context) {
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	kind, err := models.ParseDocumentKind(ctx.PostForm("kind"))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError(err.Error()))
		return
	}
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("file is required"))
		return
	}

	doc, err := c.applications.AttachDocument(ctx.Request.Context(), accountID, kind, fileHeader)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(doc, "Document uploaded"))
}

// ListMyDocuments lists the caller's documents
// @Summary List my documents
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Document}
// @Router /applications/me/documents [get]
func (c *ApplicationController) ListMyDocuments(ctx *gin.Context) {
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	docs, err := c.applications.ListDocuments(ctx.Request.Context(), accountID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(docs, ""))
}

// List returns the review queue
// @Summary List applications
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter" Enums(Draft, Submitted, Pending, Admitted, Rejected)
// @Param programId query int false "First choice program"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /applications [get]
func (c *ApplicationController) List(ctx *gin.Context) {
	var req dto.ApplicationFilterRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	p := pageFromQuery(ctx)
	apps, total, err := c.applications.List(ctx.Request.Context(), models.ApplicationFilter{
		Status:    models.ApplicationStatus(req.Status),
		ProgramID: req.ProgramID,
		Offset:    p.offset,
		Limit:     p.limit,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	p.respond(ctx, apps, total, "")
}

// Get returns one application
// @Summary Get application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationResponse}
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Router /applications/{id} [get]
func (c *ApplicationController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Application")
	if !ok {
		return
	}
	app, err := c.applications.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, ""))
}

// Review moves a Submitted application to Pending
// @Summary Start review
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=models.Application}
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /applications/{id}/review [post]
func (c *ApplicationController) Review(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Application")
	if !ok {
		return
	}
	actorID, ok := caller(ctx)
	if !ok {
		return
	}
	app, err := c.applications.MarkPending(ctx.Request.Context(), id, actorID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, "Application under review"))
}

// Admit admits an application into a program
// @Summary Admit applicant
// @Description Mints the system ID, renders the admission letter and bills the program fee. Admitting twice is rejected.
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body dto.AdmitRequest true "Program"
// @Success 200 {object} dto.APIResponse{data=dto.AdmissionResult}
// @Failure 404 {object} dto.ErrorResponse "Application or program not found"
// @Failure 409 {object} dto.ErrorResponse "Already admitted, invalid transition or missing documents"
// @Router /applications/{id}/admit [post]
func (c *ApplicationController) Admit(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Application")
	if !ok {
		return
	}
	actorID, ok := caller(ctx)
	if !ok {
		return
	}
	var req dto.AdmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	result, err := c.admissions.Admit(ctx.Request.Context(), id, req.ProgramID, actorID)
	if err != nil {
		c.logger.Warn().Err(err).Int64("applicationId", id).Msg("Admission failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Applicant admitted"))
}

// Reject rejects an application
// @Summary Reject applicant
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=models.Application}
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /applications/{id}/reject [post]
func (c *ApplicationController) Reject(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Application")
	if !ok {
		return
	}
	actorID, ok := caller(ctx)
	if !ok {
		return
	}
	app, err := c.admissions.Reject(ctx.Request.Context(), id, actorID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(app, "Application rejected"))
}

// RegenerateLetter re-renders the admission letter
// @Summary Regenerate admission letter
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse
// @Failure 409 {object} dto.ErrorResponse "Application has not been admitted"
// @Router /applications/{id}/letter [post]
func (c *ApplicationController) RegenerateLetter(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Application")
	if !ok {
		return
	}
	path, err := c.admissions.RegenerateLetter(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"admissionLetterPath": path}, "Admission letter regenerated"))
}

// Notify resends the admission notice
// @Summary Resend admission notice
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 202 {object} dto.APIResponse
// @Failure 409 {object} dto.ErrorResponse "Application has not been admitted"
// @Router /applications/{id}/notify [post]
func (c *ApplicationController) Notify(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Application")
	if !ok {
		return
	}
	if err := c.admissions.ResendNotification(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, dto.NewSuccessResponse(nil, "Admission notice queued"))
}
