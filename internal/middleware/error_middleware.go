package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/logger"
)

// errorMapping ties a sentinel to its HTTP status, code and default message
type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{apperrors.ErrInvalidVoucher, http.StatusBadRequest, dto.ErrorCodeInvalidVoucher, "Invalid or already used voucher"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrIncompleteForm, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Application form is incomplete"},
	{apperrors.ErrInvalidScore, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid score"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeInvalidRequest, "Bad request"},
	{apperrors.ErrAmountMismatch, http.StatusBadRequest, dto.ErrorCodeResourceInvalid, "Paid amount does not match"},

	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Token revoked"},
	{apperrors.ErrAccountDisabled, http.StatusUnauthorized, dto.ErrorCodeAccountDisabled, "Account is disabled"},
	{apperrors.ErrInvalidSignature, http.StatusUnauthorized, dto.ErrorCodeInvalidSignature, "Invalid signature"},

	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},

	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrAccountNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Account not found"},
	{apperrors.ErrApplicationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Application not found"},
	{apperrors.ErrDocumentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Document not found"},
	{apperrors.ErrVoucherNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Voucher not found"},
	{apperrors.ErrProgramNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Program not found"},
	{apperrors.ErrCourseNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Course not found"},
	{apperrors.ErrEnrollmentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Enrollment not found"},
	{apperrors.ErrInvoiceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Invoice not found"},
	{apperrors.ErrPaymentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Payment not found"},

	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrUsernameAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Username already exists"},
	{apperrors.ErrProgramAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Program code already exists"},
	{apperrors.ErrCourseAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Course code already exists"},
	{apperrors.ErrAlreadyEnrolled, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Already registered for this course"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrAlreadyAdmitted, http.StatusConflict, dto.ErrorCodeAlreadyAdmitted, "Application already admitted"},
	{apperrors.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Invalid application status transition"},
	{apperrors.ErrIncompleteDocuments, http.StatusConflict, dto.ErrorCodeIncompleteDocuments, "Application documents are incomplete"},
	{apperrors.ErrApplicationLocked, http.StatusConflict, dto.ErrorCodeApplicationLocked, "Application can no longer be edited"},
	{apperrors.ErrInvoiceNotPayable, http.StatusConflict, dto.ErrorCodeConflict, "Invoice is not payable"},
	{apperrors.ErrProgramInUse, http.StatusConflict, dto.ErrorCodeConflict, "Program is in use"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},

	{apperrors.ErrTooManyRequests, http.StatusTooManyRequests, dto.ErrorCodeTooManyRequests, "Too many requests"},
	{apperrors.ErrGatewayUnavailable, http.StatusBadGateway, dto.ErrorCodeExternalServiceError, "Payment gateway unavailable"},
}

// HandleAPIError maps err onto the response envelope. Client-safe messages
// from CustomError are surfaced; anything unmapped is logged and reported as
// a generic 500.
func HandleAPIError(c *gin.Context, err error) {
	var custom *apperrors.CustomError
	hasCustom := errors.As(err, &custom)

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		detail := dto.NewErrorDetail(m.code, m.message)
		if hasCustom {
			if custom.Message != "" {
				detail.Message = custom.Message
			}
			if custom.Details != nil {
				detail.Details = custom.Details
			}
		}
		if m.status >= http.StatusInternalServerError {
			detail.WithSeverity(dto.ErrorSeverityCritical)
			logger.Warn().Err(err).Str("path", c.FullPath()).Msg("Upstream failure")
		}
		c.JSON(m.status, dto.NewFailureResponse(detail))
		return
	}

	logger.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("Unhandled error")
	c.JSON(http.StatusInternalServerError, dto.NewFailureResponse(
		dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").WithSeverity(dto.ErrorSeverityCritical),
	))
}

// HandleBindingError reports a request binding failure as a 400 response
func HandleBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.NewFailureResponse(dto.HandleValidationError(err)))
}
