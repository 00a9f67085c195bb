package models

import (
	"fmt"
	"strings"
	"time"
)

// VoucherType identifies which admission category a voucher is valid for
type VoucherType string

const (
	VoucherUndergraduate VoucherType = "Undergraduate"
	VoucherPostgraduate  VoucherType = "Postgraduate"
	VoucherInternational VoucherType = "International"
)

// ParseVoucherType accepts any casing of a known voucher type
func ParseVoucherType(s string) (VoucherType, error) {
	for _, t := range []VoucherType{VoucherUndergraduate, VoucherPostgraduate, VoucherInternational} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown voucher type %q", s)
}

// VoucherStatus tracks a voucher through sale and redemption
type VoucherStatus string

const (
	VoucherUnsold  VoucherStatus = "Unsold"
	VoucherSold    VoucherStatus = "Sold"
	VoucherUsed    VoucherStatus = "Used"
	VoucherExpired VoucherStatus = "Expired"
)

// CanTransition reports whether a voucher may move from s to next
func (s VoucherStatus) CanTransition(next VoucherStatus) bool {
	switch s {
	case VoucherUnsold:
		return next == VoucherSold || next == VoucherExpired
	case VoucherSold:
		return next == VoucherUsed || next == VoucherExpired
	default:
		return false
	}
}

// Voucher is a prepaid serial+PIN credential required to register an applicant
type Voucher struct {
	ID              int64         `json:"id" db:"id"`
	SerialNumber    string        `json:"serialNumber" db:"serial_number"`
	PIN             string        `json:"pin" db:"pin"`
	Type            VoucherType   `json:"type" db:"type"`
	Price           int64         `json:"price" db:"price"`
	Status          VoucherStatus `json:"status" db:"status"`
	BuyerEmail      *string       `json:"buyerEmail,omitempty" db:"buyer_email"`
	BuyerPhone      *string       `json:"buyerPhone,omitempty" db:"buyer_phone"`
	TransactionID   *string       `json:"transactionId,omitempty" db:"transaction_id"`
	SoldAt          *time.Time    `json:"soldAt,omitempty" db:"sold_at"`
	UsedAt          *time.Time    `json:"usedAt,omitempty" db:"used_at"`
	UsedByAccountID *int64        `json:"usedByAccountId,omitempty" db:"used_by_account_id"`
	ExpiresAt       time.Time     `json:"expiresAt" db:"expires_at"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
}

// VoucherFilter narrows voucher listings
type VoucherFilter struct {
	Status VoucherStatus
	Type   VoucherType
	Offset uint64
	Limit  int
}
