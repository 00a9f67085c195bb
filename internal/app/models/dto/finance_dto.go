package dto

import "time"

// CreateInvoiceRequest bills an account
type CreateInvoiceRequest struct {
	AccountID   int64      `json:"accountId" binding:"required,min=1"`
	Description string     `json:"description" binding:"required,max=255"`
	Amount      int64      `json:"amount" binding:"required,min=1"`
	DueDate     *time.Time `json:"dueDate"`
}

// InvoiceFilterRequest carries invoice listing parameters
type InvoiceFilterRequest struct {
	AccountID int64  `form:"accountId" binding:"omitempty,min=1"`
	Status    string `form:"status" binding:"omitempty,oneof=Unpaid Paid Cancelled"`
}
