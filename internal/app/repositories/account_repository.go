package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/db"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/dberrors"
	"github.com/yigit/uniadmit/internal/pkg/logger"
)

var accountColumns = []string{
	"id", "email", "username", "password", "first_name", "last_name", "phone", "role",
	"system_id", "admitted_program_id", "voucher_id", "is_active", "last_login_at", "created_at", "updated_at",
}

// AccountRepository handles account database operations
type AccountRepository struct {
	db db.DBTX
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(conn db.DBTX) *AccountRepository {
	return &AccountRepository{db: conn}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.Email, &a.Username, &a.Password, &a.FirstName, &a.LastName, &a.Phone, &a.Role,
		&a.SystemID, &a.AdmittedProgramID, &a.VoucherID, &a.IsActive, &a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// mapAccountUniqueError translates unique violations into domain errors
func mapAccountUniqueError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, "accounts_email_key"):
		return apperrors.ErrEmailAlreadyExists
	case dberrors.IsDuplicateConstraintError(err, "accounts_username_key"):
		return apperrors.ErrUsernameAlreadyExists
	case dberrors.IsDuplicateConstraintError(err, "accounts_system_id_key"),
		dberrors.IsDuplicateConstraintError(err, "idx_accounts_system_id_upper"):
		return apperrors.ErrDuplicateSystemID
	case dberrors.IsUniqueViolation(err):
		return apperrors.ErrConflict
	}
	return nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()
	sql, args, err := psql.Insert("accounts").
		Columns("email", "username", "password", "first_name", "last_name", "phone", "role",
			"system_id", "admitted_program_id", "voucher_id", "is_active", "created_at", "updated_at").
		Values(account.Email, account.Username, account.Password, account.FirstName, account.LastName,
			account.Phone, account.Role, account.SystemID, account.AdmittedProgramID, account.VoucherID,
			account.IsActive, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create account SQL")
		return fmt.Errorf("failed to build create account query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&account.ID); err != nil {
		if mapped := mapAccountUniqueError(err); mapped != nil {
			return mapped
		}
		logger.Error().Err(err).Str("email", account.Email).Msg("Error executing create account query")
		return fmt.Errorf("error creating account: %w", err)
	}
	account.CreatedAt, account.UpdatedAt = now, now
	return nil
}

func (r *AccountRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Account, error) {
	sql, args, err := psql.Select(accountColumns...).From("accounts").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get account query: %w", err)
	}
	account, err := scanAccount(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("error retrieving account: %w", err)
	}
	return account, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByIdentifier retrieves an account by email or system ID
func (r *AccountRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	ident := strings.TrimSpace(identifier)
	return r.getOne(ctx, squirrel.Or{
		squirrel.Expr("LOWER(email) = LOWER(?)", ident),
		squirrel.Expr("UPPER(system_id) = UPPER(?)", ident),
	})
}

func (r *AccountRepository) exists(ctx context.Context, expr squirrel.Sqlizer) (bool, error) {
	inner, args, err := psql.Select("1").From("accounts").Where(expr).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build exists query: %w", err)
	}
	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS("+inner+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking account existence: %w", err)
	}
	return exists, nil
}

// ExistsByEmail checks whether the email is taken
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, squirrel.Expr("LOWER(email) = LOWER(?)", email))
}

// ExistsByUsername checks whether the username is taken
func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, squirrel.Expr("LOWER(username) = LOWER(?)", username))
}

// Promote assigns the system ID and admitted program and sets role student
func (r *AccountRepository) Promote(ctx context.Context, id int64, systemID string, programID int64) error {
	sql, args, err := promoteQuery(id, systemID, programID, time.Now().UTC()).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build promote account query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if mapped := mapAccountUniqueError(err); mapped != nil {
			return mapped
		}
		logger.Error().Err(err).Int64("accountID", id).Msg("Error promoting account")
		return fmt.Errorf("error promoting account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewConflictError("account already holds a system ID")
	}
	return nil
}

// promoteQuery only matches accounts without a system ID, so an applicant is
// promoted at most once.
func promoteQuery(id int64, systemID string, programID int64, now time.Time) squirrel.UpdateBuilder {
	return psql.Update("accounts").
		Set("role", models.RoleStudent).
		Set("system_id", systemID).
		Set("admitted_program_id", programID).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id}).
		Where("system_id IS NULL")
}

// UpdateLastLogin records a successful login
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	sql, args, err := psql.Update("accounts").Set("last_login_at", at).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build last login query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error updating last login: %w", err)
	}
	return nil
}

// List returns accounts matching filter and the total match count
func (r *AccountRepository) List(ctx context.Context, filter models.AccountFilter) ([]*models.Account, int64, error) {
	where := squirrel.And{}
	if filter.Role != "" {
		where = append(where, squirrel.Eq{"role": filter.Role})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		where = append(where, squirrel.Or{
			squirrel.Like{"LOWER(email)": like},
			squirrel.Like{"LOWER(username)": like},
			squirrel.Like{"LOWER(first_name || ' ' || last_name)": like},
		})
	}

	total, err := count(ctx, r.db, psql.Select("COUNT(*)").From("accounts").Where(where))
	if err != nil {
		return nil, 0, fmt.Errorf("error counting accounts: %w", err)
	}

	q := paginate(psql.Select(accountColumns...).From("accounts").Where(where).OrderBy("id"), filter.Offset, filter.Limit)
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list accounts query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, total, rows.Err()
}
