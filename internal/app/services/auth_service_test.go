package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

func TestRegisterApplicantCreatesAccountAndDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.soldVoucher(t)

	resp, err := env.auth.RegisterApplicant(ctx, registerRequest(v, "Ama@Example.com", "ama"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token.AccessToken)
	assert.NotEmpty(t, resp.Token.RefreshToken)
	assert.Equal(t, "ama@example.com", resp.Account.Email)
	assert.Equal(t, models.RoleApplicant, resp.Account.Role)

	stored, err := env.repos.Vouchers.GetBySerial(ctx, v.SerialNumber)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherUsed, stored.Status)
	require.NotNil(t, stored.UsedByAccountID)
	assert.Equal(t, resp.Account.ID, *stored.UsedByAccountID)

	app, err := env.repos.Applications.GetByAccountID(ctx, resp.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationDraft, app.Status)
	assert.Equal(t, "Ama", app.Details.FirstName)
}

func TestRegisterApplicantVoucherIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	v := env.soldVoucher(t)

	_, err := env.auth.RegisterApplicant(ctx, registerRequest(v, "first@example.com", "first"))
	require.NoError(t, err)

	_, err = env.auth.RegisterApplicant(ctx, registerRequest(v, "second@example.com", "second"))
	require.ErrorIs(t, err, apperrors.ErrInvalidVoucher)
	assert.Equal(t, "Invalid or already used voucher", err.Error())

	exists, err := env.repos.Accounts.ExistsByEmail(ctx, "second@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRegisterApplicantRejectsUnsoldVoucher(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch, err := env.vouchers.GenerateBatch(ctx, 1, models.VoucherUndergraduate, 100)
	require.NoError(t, err)

	_, err = env.auth.RegisterApplicant(ctx, registerRequest(batch[0], "ama@example.com", "ama"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidVoucher)
}

func TestRegisterApplicantRollsBackOnDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.applicant(t, "ama@example.com", "ama")

	v := env.soldVoucher(t)
	_, err := env.auth.RegisterApplicant(ctx, registerRequest(v, "ama@example.com", "other"))
	require.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	// the voucher stays redeemable
	stored, err := env.repos.Vouchers.GetBySerial(ctx, v.SerialNumber)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherSold, stored.Status)
}

func TestRegisterApplicantValidatesPassword(t *testing.T) {
	env := newTestEnv(t)
	req := registerRequest(env.soldVoucher(t), "ama@example.com", "ama")
	req.Password = "lettersonly"

	_, err := env.auth.RegisterApplicant(context.Background(), req)
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Contains(t, err.Error(), "digit")
}

func TestAuthenticateByEmailAndSystemID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")
	program := env.program(t, "CS", 0)
	require.NoError(t, env.repos.Accounts.Promote(ctx, reg.Account.ID, "UNI2025CS0001", program.ID))

	resp, err := env.auth.Authenticate(ctx, "AMA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, resp.Account.Role)
	assert.NotNil(t, resp.Account.LastLoginAt)

	resp, err = env.auth.Authenticate(ctx, "uni2025cs0001", "secret123")
	require.NoError(t, err)
	assert.Equal(t, reg.Account.ID, resp.Account.ID)

	_, err = env.auth.Authenticate(ctx, "ama@example.com", "wrong-pass1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = env.auth.Authenticate(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRefreshTokenRotates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")

	rotated, err := env.auth.RefreshToken(ctx, reg.Token.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, reg.Token.RefreshToken, rotated.Token.RefreshToken)

	// reuse of the old token is rejected and kills the new one too
	_, err = env.auth.RefreshToken(ctx, reg.Token.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)
	_, err = env.auth.RefreshToken(ctx, rotated.Token.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	_, err = env.auth.RefreshToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestRefreshTokenExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")

	env.auth.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err := env.auth.RefreshToken(ctx, reg.Token.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestCreateStaffAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acc, err := env.auth.CreateStaffAccount(ctx, &dto.CreateStaffAccountRequest{
		Email: "reg@example.com", Username: "registrar", Password: "secret123",
		FirstName: "Kofi", LastName: "Boateng", Role: models.RoleRegistrar,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleRegistrar, acc.Role)

	_, err = env.auth.CreateStaffAccount(ctx, &dto.CreateStaffAccountRequest{
		Email: "stu@example.com", Username: "student", Password: "secret123",
		FirstName: "Kofi", LastName: "Boateng", Role: models.RoleStudent,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = env.auth.CreateStaffAccount(ctx, &dto.CreateStaffAccountRequest{
		Email: "REG@example.com", Username: "registrar2", Password: "secret123",
		FirstName: "Kofi", LastName: "Boateng", Role: models.RoleFinance,
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	accounts, total, err := env.auth.ListAccounts(ctx, models.AccountFilter{Role: models.RoleRegistrar})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "reg@example.com", accounts[0].Email)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	reg := env.applicant(t, "ama@example.com", "ama")

	profile, err := env.auth.Profile(context.Background(), reg.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "ama", profile.Username)

	_, err = env.auth.Profile(context.Background(), 9999)
	assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)
}
