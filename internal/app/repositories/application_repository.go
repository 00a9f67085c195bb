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

var applicationColumns = []string{
	"id", "account_id", "status", "details", "first_choice_id", "second_choice_id", "third_choice_id",
	"exam_results", "admitted_program_id", "admission_letter_path", "submitted_at", "decided_at",
	"decided_by", "created_at", "updated_at",
}

// ApplicationRepository handles application database operations.
// details and exam_results are JSONB columns encoded by pgx.
type ApplicationRepository struct {
	db db.DBTX
}

// NewApplicationRepository creates a new ApplicationRepository
func NewApplicationRepository(conn db.DBTX) *ApplicationRepository {
	return &ApplicationRepository{db: conn}
}

func scanApplication(row pgx.Row) (*models.Application, error) {
	var a models.Application
	err := row.Scan(
		&a.ID, &a.AccountID, &a.Status, &a.Details, &a.FirstChoiceID, &a.SecondChoiceID, &a.ThirdChoiceID,
		&a.ExamResults, &a.AdmittedProgramID, &a.AdmissionLetterPath, &a.SubmittedAt, &a.DecidedAt,
		&a.DecidedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new application
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	now := time.Now().UTC()
	if app.Status == "" {
		app.Status = models.ApplicationDraft
	}
	if app.ExamResults.Sittings == nil {
		app.ExamResults.Sittings = []models.ExamSitting{}
	}
	sql, args, err := psql.Insert("applications").
		Columns("account_id", "status", "details", "first_choice_id", "second_choice_id", "third_choice_id",
			"exam_results", "created_at", "updated_at").
		Values(app.AccountID, app.Status, app.Details, app.FirstChoiceID, app.SecondChoiceID, app.ThirdChoiceID,
			app.ExamResults, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create application query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&app.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "applications_account_id_key") {
			return apperrors.NewConflictError("account already has an application")
		}
		logger.Error().Err(err).Int64("accountID", app.AccountID).Msg("Error executing create application query")
		return fmt.Errorf("error creating application: %w", err)
	}
	app.CreatedAt, app.UpdatedAt = now, now
	return nil
}

func (r *ApplicationRepository) getOne(ctx context.Context, where squirrel.Sqlizer, lock bool) (*models.Application, error) {
	q := psql.Select(applicationColumns...).From("applications").Where(where).Limit(1)
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get application query: %w", err)
	}
	app, err := scanApplication(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error retrieving application: %w", err)
	}
	return app, nil
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, false)
}

// GetByAccountID retrieves the application owned by an account
func (r *ApplicationRepository) GetByAccountID(ctx context.Context, accountID int64) (*models.Application, error) {
	return r.getOne(ctx, squirrel.Eq{"account_id": accountID}, false)
}

// GetForUpdate retrieves and locks an application row
func (r *ApplicationRepository) GetForUpdate(ctx context.Context, id int64) (*models.Application, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, true)
}

// Update writes every mutable column of app
func (r *ApplicationRepository) Update(ctx context.Context, app *models.Application) error {
	app.UpdatedAt = time.Now().UTC()
	sql, args, err := psql.Update("applications").
		SetMap(map[string]interface{}{
			"status":                app.Status,
			"details":               app.Details,
			"first_choice_id":       app.FirstChoiceID,
			"second_choice_id":      app.SecondChoiceID,
			"third_choice_id":       app.ThirdChoiceID,
			"exam_results":          app.ExamResults,
			"admitted_program_id":   app.AdmittedProgramID,
			"admission_letter_path": app.AdmissionLetterPath,
			"submitted_at":          app.SubmittedAt,
			"decided_at":            app.DecidedAt,
			"decided_by":            app.DecidedBy,
			"updated_at":            app.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": app.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update application query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: referenced program does not exist", apperrors.ErrProgramNotFound)
		}
		logger.Error().Err(err).Int64("applicationID", app.ID).Msg("Error executing update application query")
		return fmt.Errorf("error updating application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrApplicationNotFound
	}
	return nil
}

// List returns applications matching filter; ProgramID matches any ranked choice
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, int64, error) {
	where := squirrel.And{}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"status": filter.Status})
	}
	if filter.ProgramID > 0 {
		where = append(where, squirrel.Or{
			squirrel.Eq{"first_choice_id": filter.ProgramID},
			squirrel.Eq{"second_choice_id": filter.ProgramID},
			squirrel.Eq{"third_choice_id": filter.ProgramID},
			squirrel.Eq{"admitted_program_id": filter.ProgramID},
		})
	}

	total, err := count(ctx, r.db, psql.Select("COUNT(*)").From("applications").Where(where))
	if err != nil {
		return nil, 0, fmt.Errorf("error counting applications: %w", err)
	}

	sql, args, err := paginate(psql.Select(applicationColumns...).From("applications").Where(where).OrderBy("id"),
		filter.Offset, filter.Limit).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list applications query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, total, rows.Err()
}

// DocumentRepository handles application document database operations
type DocumentRepository struct {
	db db.DBTX
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(conn db.DBTX) *DocumentRepository {
	return &DocumentRepository{db: conn}
}

var documentColumns = []string{"id", "application_id", "kind", "path", "original_name", "size", "mime_type", "created_at"}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	if err := row.Scan(&d.ID, &d.ApplicationID, &d.Kind, &d.Path, &d.OriginalName, &d.Size, &d.MimeType, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a document record
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	doc.CreatedAt = time.Now().UTC()
	sql, args, err := psql.Insert("application_documents").
		Columns("application_id", "kind", "path", "original_name", "size", "mime_type", "created_at").
		Values(doc.ApplicationID, doc.Kind, doc.Path, doc.OriginalName, doc.Size, doc.MimeType, doc.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create document query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&doc.ID); err != nil {
		logger.Error().Err(err).Int64("applicationID", doc.ApplicationID).Msg("Error executing create document query")
		return fmt.Errorf("error creating document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) collect(ctx context.Context, sql string, args []interface{}) ([]*models.Document, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListByApplication returns the documents of one application
func (r *DocumentRepository) ListByApplication(ctx context.Context, applicationID int64) ([]*models.Document, error) {
	sql, args, err := psql.Select(documentColumns...).From("application_documents").
		Where(squirrel.Eq{"application_id": applicationID}).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list documents query: %w", err)
	}
	docs, err := r.collect(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	return docs, nil
}

// DeleteByKind deletes the application's documents of kind and returns them
func (r *DocumentRepository) DeleteByKind(ctx context.Context, applicationID int64, kind models.DocumentKind) ([]*models.Document, error) {
	sql, args, err := psql.Delete("application_documents").
		Where(squirrel.Eq{"application_id": applicationID, "kind": kind}).
		Suffix("RETURNING " + joinColumns(documentColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete documents query: %w", err)
	}
	docs, err := r.collect(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("error deleting documents: %w", err)
	}
	return docs, nil
}
