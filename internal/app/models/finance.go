package models

import "time"

// InvoiceStatus is the settlement state of an invoice
type InvoiceStatus string

const (
	InvoiceUnpaid    InvoiceStatus = "Unpaid"
	InvoicePaid      InvoiceStatus = "Paid"
	InvoiceCancelled InvoiceStatus = "Cancelled"
)

// Invoice is an amount billed to an account
type Invoice struct {
	ID               int64         `json:"id" db:"id"`
	AccountID        int64         `json:"accountId" db:"account_id"`
	Description      string        `json:"description" db:"description"`
	Amount           int64         `json:"amount" db:"amount"`
	Currency         string        `json:"currency" db:"currency"`
	Status           InvoiceStatus `json:"status" db:"status"`
	DueDate          *time.Time    `json:"dueDate,omitempty" db:"due_date"`
	PaidAt           *time.Time    `json:"paidAt,omitempty" db:"paid_at"`
	PaymentReference *string       `json:"paymentReference,omitempty" db:"payment_reference"`
	CreatedAt        time.Time     `json:"createdAt" db:"created_at"`
}

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	AccountID int64
	Status    InvoiceStatus
	Offset    uint64
	Limit     int
}

// PaymentPurpose identifies what a gateway payment funds
type PaymentPurpose string

const (
	PaymentForVoucher PaymentPurpose = "voucher"
	PaymentForInvoice PaymentPurpose = "invoice"
)

// PaymentStatus is the gateway settlement state
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentSuccess PaymentStatus = "Success"
	PaymentFailed  PaymentStatus = "Failed"
)

// Payment records one gateway transaction
type Payment struct {
	ID              int64          `json:"id" db:"id"`
	Reference       string         `json:"reference" db:"reference"`
	Purpose         PaymentPurpose `json:"purpose" db:"purpose"`
	Email           string         `json:"email" db:"email"`
	Phone           string         `json:"phone,omitempty" db:"phone"`
	Amount          int64          `json:"amount" db:"amount"`
	Currency        string         `json:"currency" db:"currency"`
	Status          PaymentStatus  `json:"status" db:"status"`
	VoucherType     *VoucherType   `json:"voucherType,omitempty" db:"voucher_type"`
	InvoiceID       *int64         `json:"invoiceId,omitempty" db:"invoice_id"`
	VoucherID       *int64         `json:"voucherId,omitempty" db:"voucher_id"`
	AccountID       *int64         `json:"accountId,omitempty" db:"account_id"`
	GatewayResponse *string        `json:"gatewayResponse,omitempty" db:"gateway_response"`
	PaidAt          *time.Time     `json:"paidAt,omitempty" db:"paid_at"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	Status  PaymentStatus
	Purpose PaymentPurpose
	Offset  uint64
	Limit   int
}
