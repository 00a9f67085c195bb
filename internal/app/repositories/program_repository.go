package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/db"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/dberrors"
	"github.com/yigit/uniadmit/internal/pkg/logger"
)

var programColumns = []string{"id", "code", "name", "faculty", "department", "duration_years", "fee", "created_at"}

// ProgramRepository handles program database operations
type ProgramRepository struct {
	db db.DBTX
}

// NewProgramRepository creates a new ProgramRepository
func NewProgramRepository(conn db.DBTX) *ProgramRepository {
	return &ProgramRepository{db: conn}
}

func scanProgram(row pgx.Row) (*models.Program, error) {
	var p models.Program
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Faculty, &p.Department, &p.DurationYears, &p.Fee, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new program
func (r *ProgramRepository) Create(ctx context.Context, p *models.Program) error {
	p.CreatedAt = time.Now().UTC()
	sql, args, err := psql.Insert("programs").
		Columns("code", "name", "faculty", "department", "duration_years", "fee", "created_at").
		Values(p.Code, p.Name, p.Faculty, p.Department, p.DurationYears, p.Fee, p.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create program query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&p.ID); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrProgramAlreadyExists
		}
		logger.Error().Err(err).Str("code", p.Code).Msg("Error executing create program query")
		return fmt.Errorf("error creating program: %w", err)
	}
	return nil
}

// GetByID retrieves a program by ID
func (r *ProgramRepository) GetByID(ctx context.Context, id int64) (*models.Program, error) {
	sql, args, err := psql.Select(programColumns...).From("programs").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get program query: %w", err)
	}
	p, err := scanProgram(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProgramNotFound
		}
		return nil, fmt.Errorf("error retrieving program: %w", err)
	}
	return p, nil
}

// List returns every program ordered by code
func (r *ProgramRepository) List(ctx context.Context) ([]*models.Program, error) {
	sql, args, err := psql.Select(programColumns...).From("programs").OrderBy("code").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list programs query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing programs: %w", err)
	}
	defer rows.Close()

	var programs []*models.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning program: %w", err)
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// Update updates an existing program
func (r *ProgramRepository) Update(ctx context.Context, p *models.Program) error {
	sql, args, err := psql.Update("programs").
		Set("code", p.Code).
		Set("name", p.Name).
		Set("faculty", p.Faculty).
		Set("department", p.Department).
		Set("duration_years", p.DurationYears).
		Set("fee", p.Fee).
		Where(squirrel.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update program query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrProgramAlreadyExists
		}
		return fmt.Errorf("error updating program: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrProgramNotFound
	}
	return nil
}

// Delete deletes a program that nothing references
func (r *ProgramRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := psql.Delete("programs").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete program query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrProgramInUse
		}
		return fmt.Errorf("error deleting program: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrProgramNotFound
	}
	return nil
}
