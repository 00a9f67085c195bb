package repositories

import (
	"context"
	"time"

	"github.com/yigit/uniadmit/internal/app/models"
)

// AccountStore persists accounts. Unique violations are reported as
// apperrors.ErrEmailAlreadyExists, ErrUsernameAlreadyExists or
// ErrDuplicateSystemID.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	// GetByIdentifier matches email or system ID, case-insensitively.
	GetByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Promote turns an applicant into a student with a permanent system ID.
	Promote(ctx context.Context, id int64, systemID string, programID int64) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, filter models.AccountFilter) ([]*models.Account, int64, error)
}

// VoucherStore persists vouchers.
type VoucherStore interface {
	// Create inserts a voucher and fills its ID. A serial collision returns
	// apperrors.ErrDuplicateVoucherSerial, a reused transaction ID returns
	// apperrors.ErrResourceAlreadyExists.
	Create(ctx context.Context, voucher *models.Voucher) error
	// Redeem moves a Sold, unexpired voucher matching serial and pin to Used
	// in a single conditional write. No match returns apperrors.ErrInvalidVoucher.
	Redeem(ctx context.Context, serial, pin string, now time.Time) (*models.Voucher, error)
	BindAccount(ctx context.Context, voucherID, accountID int64) error
	GetBySerial(ctx context.Context, serial string) (*models.Voucher, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Voucher, error)
	List(ctx context.Context, filter models.VoucherFilter) ([]*models.Voucher, int64, error)
	// ExpireBefore marks Unsold and Sold vouchers whose expiry passed as Expired.
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
}

// ApplicationStore persists application records.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	GetByAccountID(ctx context.Context, accountID int64) (*models.Application, error)
	// GetForUpdate loads the row and holds a write lock until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.Application, error)
	Update(ctx context.Context, app *models.Application) error
	List(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, int64, error)
}

// DocumentStore persists application documents.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	ListByApplication(ctx context.Context, applicationID int64) ([]*models.Document, error)
	// DeleteByKind removes and returns every document of kind for the application.
	DeleteByKind(ctx context.Context, applicationID int64, kind models.DocumentKind) ([]*models.Document, error)
}

// ProgramStore persists academic programs.
type ProgramStore interface {
	Create(ctx context.Context, program *models.Program) error
	GetByID(ctx context.Context, id int64) (*models.Program, error)
	List(ctx context.Context) ([]*models.Program, error)
	Update(ctx context.Context, program *models.Program) error
	Delete(ctx context.Context, id int64) error
}

// CourseStore persists the course catalog.
type CourseStore interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	// List returns every course, or only those of programID and general
	// courses when programID is non-nil.
	List(ctx context.Context, programID *int64) ([]*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) error
}

// EnrollmentStore persists course registrations and their grades.
type EnrollmentStore interface {
	// Create returns apperrors.ErrAlreadyEnrolled for a repeated
	// (account, course, academic year).
	Create(ctx context.Context, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, id int64) (*models.Enrollment, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID int64) ([]*models.Enrollment, error)
	UpdateGrade(ctx context.Context, enrollment *models.Enrollment) error
}

// GradeBandStore persists the grading scheme.
type GradeBandStore interface {
	List(ctx context.Context) ([]models.GradeBand, error)
	Replace(ctx context.Context, bands []models.GradeBand) error
}

// InvoiceStore persists invoices.
type InvoiceStore interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id int64) (*models.Invoice, error)
	List(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, int64, error)
	// MarkPaid and Cancel only act on Unpaid invoices and return
	// apperrors.ErrInvoiceNotPayable otherwise.
	MarkPaid(ctx context.Context, id int64, reference string, at time.Time) error
	Cancel(ctx context.Context, id int64) error
}

// PaymentStore persists gateway payments.
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByReference(ctx context.Context, reference string) (*models.Payment, error)
	// MarkSuccess moves a Pending payment to Success and reports whether a
	// row changed.
	MarkSuccess(ctx context.Context, reference, gatewayResponse string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, reference, gatewayResponse string) error
	AttachVoucher(ctx context.Context, reference string, voucherID int64) error
	ListPendingBefore(ctx context.Context, before time.Time) ([]*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, int64, error)
}

// SettingStore persists institution settings as text.
type SettingStore interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, values map[string]string) error
}

// TokenStore persists refresh tokens.
type TokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	Get(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForAccount(ctx context.Context, accountID int64) error
}

// Repositories holds all the repository instances
type Repositories struct {
	Accounts     AccountStore
	Vouchers     VoucherStore
	Applications ApplicationStore
	Documents    DocumentStore
	Programs     ProgramStore
	Courses      CourseStore
	Enrollments  EnrollmentStore
	GradeBands   GradeBandStore
	Invoices     InvoiceStore
	Payments     PaymentStore
	Settings     SettingStore
	Tokens       TokenStore
}

// TxFn runs against repositories bound to one transaction.
type TxFn func(ctx context.Context, repos *Repositories) error

// Transactor runs a unit of work atomically. Returning an error from fn
// discards every write it made.
type Transactor interface {
	WithinTx(ctx context.Context, fn TxFn) error
}
