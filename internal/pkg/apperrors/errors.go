package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrTooManyRequests    = errors.New("too many requests")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrBadRequest       = errors.New("bad request")
)

// Account errors
var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrDuplicateSystemID     = errors.New("system ID already assigned")
)

// Voucher errors
var (
	ErrInvalidVoucher         = errors.New("Invalid or already used voucher")
	ErrVoucherNotFound        = errors.New("voucher not found")
	ErrDuplicateVoucherSerial = errors.New("voucher serial number already exists")
)

// Application errors
var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrApplicationLocked   = errors.New("application can no longer be edited")
	ErrInvalidTransition   = errors.New("invalid application status transition")
	ErrAlreadyAdmitted     = errors.New("application already admitted")
	ErrIncompleteDocuments = errors.New("application documents are incomplete")
	ErrIncompleteForm      = errors.New("application form is incomplete")
	ErrDocumentNotFound    = errors.New("document not found")
)

// Catalog errors
var (
	ErrProgramNotFound      = errors.New("program not found")
	ErrProgramAlreadyExists = errors.New("program with this code already exists")
	ErrProgramInUse         = errors.New("program is referenced by applications or accounts")
	ErrCourseNotFound       = errors.New("course not found")
	ErrCourseAlreadyExists  = errors.New("course with this code already exists")
)

// Enrollment and grading errors
var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("already registered for this course")
	ErrInvalidScore       = errors.New("invalid score")
)

// Finance errors
var (
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrInvoiceNotPayable    = errors.New("invoice is not payable")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotSuccessful = errors.New("payment was not successful")
	ErrAmountMismatch       = errors.New("paid amount does not match expected amount")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError creates a validation error carrying a client-safe message
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
