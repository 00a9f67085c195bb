package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/auth"
	"github.com/yigit/uniadmit/internal/pkg/validation"
)

// AuthService handles registration, login and account administration
type AuthService struct {
	tx         repositories.Transactor
	repos      *repositories.Repositories
	jwtService *auth.JWTService
	now        Clock
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	tx repositories.Transactor,
	repos *repositories.Repositories,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		tx:         tx,
		repos:      repos,
		jwtService: jwtService,
		now:        utcNow,
		logger:     logger,
	}
}

// RegisterApplicant redeems a voucher and creates the applicant account and
// its empty draft application. All of it commits together or not at all.
func (s *AuthService) RegisterApplicant(ctx context.Context, req *dto.RegisterApplicantRequest) (*dto.AuthResponse, error) {
	email := validation.NormalizeEmail(req.Email)
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if err := firstError(
		validation.Email(email),
		validation.Username(username),
		validation.Password(req.Password),
		validation.Name("first name", req.FirstName),
		validation.Name("last name", req.LastName),
	); err != nil {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var account *models.Account
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		exists, err := repos.Accounts.ExistsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("error checking if email exists: %w", err)
		}
		if exists {
			return apperrors.ErrEmailAlreadyExists
		}
		exists, err = repos.Accounts.ExistsByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("error checking if username exists: %w", err)
		}
		if exists {
			return apperrors.ErrUsernameAlreadyExists
		}

		voucher, err := repos.Vouchers.Redeem(ctx, strings.TrimSpace(req.SerialNumber), strings.TrimSpace(req.PIN), s.now())
		if err != nil {
			return err
		}

		account = &models.Account{
			Email:     email,
			Username:  username,
			Password:  hashedPassword,
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Phone:     strings.TrimSpace(req.Phone),
			Role:      models.RoleApplicant,
			VoucherID: &voucher.ID,
			IsActive:  true,
		}
		if err := repos.Accounts.Create(ctx, account); err != nil {
			return fmt.Errorf("account creation error: %w", err)
		}
		if err := repos.Vouchers.BindAccount(ctx, voucher.ID, account.ID); err != nil {
			return fmt.Errorf("voucher binding error: %w", err)
		}

		application := &models.Application{
			AccountID: account.ID,
			Status:    models.ApplicationDraft,
			Details: models.ApplicantDetails{
				FirstName: account.FirstName,
				LastName:  account.LastName,
				Phone:     account.Phone,
			},
		}
		if err := repos.Applications.Create(ctx, application); err != nil {
			return fmt.Errorf("application creation error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("accountID", account.ID).Msg("Applicant registered")
	return s.issueTokens(ctx, account)
}

// Authenticate accepts an email or a system ID with the account password
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*dto.AuthResponse, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	account, err := s.repos.Accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if !account.IsActive || !auth.CheckPassword(account.Password, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repos.Accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		s.logger.Warn().Err(err).Int64("accountID", account.ID).Msg("Failed to record last login")
	} else {
		account.LastLoginAt = &now
	}
	return s.issueTokens(ctx, account)
}

// RefreshToken rotates a refresh token. Presenting a revoked token revokes
// every token of the account.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	stored, err := s.repos.Tokens.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, fmt.Errorf("token validation error: %w", err)
	}
	if stored.IsRevoked {
		s.logger.Warn().Int64("accountID", stored.AccountID).Msg("Revoked refresh token presented, revoking all sessions")
		if err := s.repos.Tokens.RevokeAllForAccount(ctx, stored.AccountID); err != nil {
			s.logger.Error().Err(err).Int64("accountID", stored.AccountID).Msg("Failed to revoke account tokens")
		}
		return nil, apperrors.ErrTokenRevoked
	}
	if stored.ExpiryDate.Before(s.now()) {
		_ = s.repos.Tokens.Revoke(ctx, refreshToken)
		return nil, apperrors.ErrTokenExpired
	}

	account, err := s.repos.Accounts.GetByID(ctx, stored.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if !account.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	if err := s.repos.Tokens.Revoke(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old token: %w", err)
	}
	return s.issueTokens(ctx, account)
}

// Profile returns the caller's account
func (s *AuthService) Profile(ctx context.Context, accountID int64) (*dto.AccountResponse, error) {
	account, err := s.repos.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return dto.NewAccountResponse(account), nil
}

// CreateStaffAccount provisions an admin, registrar, lecturer or finance account
func (s *AuthService) CreateStaffAccount(ctx context.Context, req *dto.CreateStaffAccountRequest) (*dto.AccountResponse, error) {
	role, ok := models.ParseRole(string(req.Role))
	if !ok || !role.IsStaff() {
		return nil, apperrors.NewValidationError("role must be one of admin, registrar, lecturer, finance")
	}
	email := validation.NormalizeEmail(req.Email)
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if err := firstError(
		validation.Email(email),
		validation.Username(username),
		validation.Password(req.Password),
		validation.Name("first name", req.FirstName),
		validation.Name("last name", req.LastName),
	); err != nil {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	account := &models.Account{
		Email:     email,
		Username:  username,
		Password:  hashedPassword,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		Role:      role,
		IsActive:  true,
	}
	// the store reports duplicate email or username
	if err := s.repos.Accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("accountID", account.ID).Str("role", string(role)).Msg("Staff account created")
	return dto.NewAccountResponse(account), nil
}

// ListAccounts returns a page of accounts and the total match count
func (s *AuthService) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]*dto.AccountResponse, int64, error) {
	accounts, total, err := s.repos.Accounts.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	out := make([]*dto.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, dto.NewAccountResponse(a))
	}
	return out, total, nil
}

// issueTokens signs an access token and persists a fresh refresh token
func (s *AuthService) issueTokens(ctx context.Context, account *models.Account) (*dto.AuthResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(account)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	if err := s.repos.Tokens.Create(ctx, &models.RefreshToken{
		Token:      pair.RefreshToken,
		AccountID:  account.ID,
		ExpiryDate: pair.RefreshExpiry,
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken:           pair.AccessToken,
			TokenType:             "Bearer",
			ExpiresIn:             pair.ExpiresIn,
			RefreshToken:          pair.RefreshToken,
			RefreshTokenExpiresIn: pair.RefreshExpiresIn,
		},
		Account: dto.NewAccountResponse(account),
	}, nil
}
