package models

import "time"

// Account is a login identity bound to a role
type Account struct {
	ID                int64      `json:"id" db:"id"`
	Email             string     `json:"email" db:"email"`
	Username          string     `json:"username" db:"username"`
	Password          string     `json:"-" db:"password"`
	FirstName         string     `json:"firstName" db:"first_name"`
	LastName          string     `json:"lastName" db:"last_name"`
	Phone             string     `json:"phone,omitempty" db:"phone"`
	Role              Role       `json:"role" db:"role"`
	SystemID          *string    `json:"systemId,omitempty" db:"system_id"`
	AdmittedProgramID *int64     `json:"admittedProgramId,omitempty" db:"admitted_program_id"`
	VoucherID         *int64     `json:"voucherId,omitempty" db:"voucher_id"`
	IsActive          bool       `json:"isActive" db:"is_active"`
	LastLoginAt       *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last names
func (a *Account) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// AccountFilter narrows account listings
type AccountFilter struct {
	Role   Role
	Search string
	Offset uint64
	Limit  int
}
