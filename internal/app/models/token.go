package models

import "time"

// RefreshToken is a persisted opaque refresh token
type RefreshToken struct {
	Token      string    `db:"token"`
	AccountID  int64     `db:"account_id"`
	ExpiryDate time.Time `db:"expiry_date"`
	IsRevoked  bool      `db:"is_revoked"`
	CreatedAt  time.Time `db:"created_at"`
}
