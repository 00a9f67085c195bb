package dto

import (
	"time"

	"github.com/yigit/uniadmit/internal/app/models"
)

// LoginRequest represents login credentials. Identifier is an email or a system ID.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required" example:"UNI2025CS0042"`
	Password   string `json:"password" binding:"required"`
}

// RegisterApplicantRequest redeems a voucher and creates an applicant account
type RegisterApplicantRequest struct {
	SerialNumber string `json:"serialNumber" binding:"required,len=10,numeric" example:"0123456789"`
	PIN          string `json:"pin" binding:"required,len=8,numeric" example:"12345678"`
	Email        string `json:"email" binding:"required,email"`
	Username     string `json:"username" binding:"required,min=3,max=50"`
	Password     string `json:"password" binding:"required,min=8"`
	FirstName    string `json:"firstName" binding:"required"`
	LastName     string `json:"lastName" binding:"required"`
	Phone        string `json:"phone" binding:"omitempty,max=20"`
}

// CreateStaffAccountRequest is used by admins to provision staff
type CreateStaffAccountRequest struct {
	Email     string      `json:"email" binding:"required,email"`
	Username  string      `json:"username" binding:"required,min=3,max=50"`
	Password  string      `json:"password" binding:"required,min=8"`
	FirstName string      `json:"firstName" binding:"required"`
	LastName  string      `json:"lastName" binding:"required"`
	Phone     string      `json:"phone" binding:"omitempty,max=20"`
	Role      models.Role `json:"role" binding:"required,oneof=admin registrar lecturer finance"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AccountResponse is the public view of an account
type AccountResponse struct {
	ID                int64       `json:"id"`
	Email             string      `json:"email"`
	Username          string      `json:"username"`
	FirstName         string      `json:"firstName"`
	LastName          string      `json:"lastName"`
	Phone             string      `json:"phone,omitempty"`
	Role              models.Role `json:"role"`
	SystemID          *string     `json:"systemId,omitempty"`
	AdmittedProgramID *int64      `json:"admittedProgramId,omitempty"`
	IsActive          bool        `json:"isActive"`
	LastLoginAt       *time.Time  `json:"lastLoginAt,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// NewAccountResponse maps an account to its public view
func NewAccountResponse(a *models.Account) *AccountResponse {
	if a == nil {
		return nil
	}
	return &AccountResponse{
		ID:                a.ID,
		Email:             a.Email,
		Username:          a.Username,
		FirstName:         a.FirstName,
		LastName:          a.LastName,
		Phone:             a.Phone,
		Role:              a.Role,
		SystemID:          a.SystemID,
		AdmittedProgramID: a.AdmittedProgramID,
		IsActive:          a.IsActive,
		LastLoginAt:       a.LastLoginAt,
		CreatedAt:         a.CreatedAt,
	}
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token   TokenResponse    `json:"token"`
	Account *AccountResponse `json:"account,omitempty"`
}

// AccountFilterRequest carries admin account listing parameters
type AccountFilterRequest struct {
	Role   string `form:"role" binding:"omitempty,oneof=admin registrar lecturer finance student applicant"`
	Search string `form:"q"`
}
