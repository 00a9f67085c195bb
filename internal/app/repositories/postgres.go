package repositories

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/uniadmit/internal/db"
)

// psql is the statement builder shared by every Postgres repository
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// NewRepositories initializes all Postgres repositories on conn, which is
// either the pool or an open transaction.
func NewRepositories(conn db.DBTX) *Repositories {
	return &Repositories{
		Accounts:     NewAccountRepository(conn),
		Vouchers:     NewVoucherRepository(conn),
		Applications: NewApplicationRepository(conn),
		Documents:    NewDocumentRepository(conn),
		Programs:     NewProgramRepository(conn),
		Courses:      NewCourseRepository(conn),
		Enrollments:  NewEnrollmentRepository(conn),
		GradeBands:   NewGradeBandRepository(conn),
		Invoices:     NewInvoiceRepository(conn),
		Payments:     NewPaymentRepository(conn),
		Settings:     NewSettingRepository(conn),
		Tokens:       NewTokenRepository(conn),
	}
}

// PostgresTransactor binds a fresh Repositories set to each transaction
type PostgresTransactor struct {
	pool *pgxpool.Pool
}

// NewPostgresTransactor creates a transactor over pool
func NewPostgresTransactor(pool *pgxpool.Pool) *PostgresTransactor {
	return &PostgresTransactor{pool: pool}
}

// WithinTx implements Transactor
func (t *PostgresTransactor) WithinTx(ctx context.Context, fn TxFn) error {
	return db.WithTransaction(ctx, t.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}

// paginate applies offset and limit when a limit is set
func paginate(q squirrel.SelectBuilder, offset uint64, limit int) squirrel.SelectBuilder {
	if limit > 0 {
		q = q.Limit(uint64(limit)).Offset(offset)
	}
	return q
}

// count runs SELECT COUNT(*) for the filtered query
func count(ctx context.Context, conn db.DBTX, q squirrel.SelectBuilder) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	var total int64
	if err := conn.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
