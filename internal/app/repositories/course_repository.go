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

var courseColumns = []string{"id", "code", "title", "credit_hours", "program_id", "level", "semester"}

// CourseRepository handles course database operations
type CourseRepository struct {
	db db.DBTX
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(conn db.DBTX) *CourseRepository {
	return &CourseRepository{db: conn}
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	var c models.Course
	if err := row.Scan(&c.ID, &c.Code, &c.Title, &c.CreditHours, &c.ProgramID, &c.Level, &c.Semester); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a course
func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	sql, args, err := psql.Insert("courses").
		Columns("code", "title", "credit_hours", "program_id", "level", "semester").
		Values(c.Code, c.Title, c.CreditHours, c.ProgramID, c.Level, c.Semester).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create course query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID); err != nil {
		switch {
		case dberrors.IsUniqueViolation(err):
			return apperrors.ErrCourseAlreadyExists
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrProgramNotFound
		}
		logger.Error().Err(err).Str("code", c.Code).Msg("Error executing create course query")
		return fmt.Errorf("error creating course: %w", err)
	}
	return nil
}

// GetByID retrieves a course by ID
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	sql, args, err := psql.Select(courseColumns...).From("courses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}
	c, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("error retrieving course: %w", err)
	}
	return c, nil
}

// List returns all courses, or the program's courses plus general courses
func (r *CourseRepository) List(ctx context.Context, programID *int64) ([]*models.Course, error) {
	q := psql.Select(courseColumns...).From("courses").OrderBy("level", "semester", "code")
	if programID != nil {
		q = q.Where(squirrel.Or{squirrel.Eq{"program_id": *programID}, squirrel.Eq{"program_id": nil}})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list courses query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing courses: %w", err)
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Update updates a course
func (r *CourseRepository) Update(ctx context.Context, c *models.Course) error {
	sql, args, err := psql.Update("courses").
		Set("code", c.Code).
		Set("title", c.Title).
		Set("credit_hours", c.CreditHours).
		Set("program_id", c.ProgramID).
		Set("level", c.Level).
		Set("semester", c.Semester).
		Where(squirrel.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update course query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		switch {
		case dberrors.IsUniqueViolation(err):
			return apperrors.ErrCourseAlreadyExists
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrProgramNotFound
		}
		return fmt.Errorf("error updating course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}

// Delete deletes a course and its enrollments
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := psql.Delete("courses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete course query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}

// EnrollmentRepository handles course registration database operations
type EnrollmentRepository struct {
	db db.DBTX
}

// NewEnrollmentRepository creates a new EnrollmentRepository
func NewEnrollmentRepository(conn db.DBTX) *EnrollmentRepository {
	return &EnrollmentRepository{db: conn}
}

var enrollmentColumns = []string{
	"e.id", "e.account_id", "e.course_id", "e.academic_year", "e.semester", "e.ca_score", "e.exam_score",
	"e.total", "e.grade", "e.point", "e.graded_by", "e.graded_at", "e.created_at",
	"c.id", "c.code", "c.title", "c.credit_hours", "c.program_id", "c.level", "c.semester",
}

func scanEnrollment(row pgx.Row) (*models.Enrollment, error) {
	var e models.Enrollment
	var c models.Course
	err := row.Scan(
		&e.ID, &e.AccountID, &e.CourseID, &e.AcademicYear, &e.Semester, &e.CAScore, &e.ExamScore,
		&e.Total, &e.Grade, &e.Point, &e.GradedBy, &e.GradedAt, &e.CreatedAt,
		&c.ID, &c.Code, &c.Title, &c.CreditHours, &c.ProgramID, &c.Level, &c.Semester,
	)
	if err != nil {
		return nil, err
	}
	e.Course = &c
	return &e, nil
}

func (r *EnrollmentRepository) selectJoined() squirrel.SelectBuilder {
	return psql.Select(enrollmentColumns...).From("enrollments e").Join("courses c ON c.id = e.course_id")
}

// Create registers an account for a course
func (r *EnrollmentRepository) Create(ctx context.Context, e *models.Enrollment) error {
	e.CreatedAt = time.Now().UTC()
	sql, args, err := psql.Insert("enrollments").
		Columns("account_id", "course_id", "academic_year", "semester", "created_at").
		Values(e.AccountID, e.CourseID, e.AcademicYear, e.Semester, e.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create enrollment query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&e.ID); err != nil {
		switch {
		case dberrors.IsUniqueViolation(err):
			return apperrors.ErrAlreadyEnrolled
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrCourseNotFound
		}
		logger.Error().Err(err).Int64("accountID", e.AccountID).Int64("courseID", e.CourseID).Msg("Error executing create enrollment query")
		return fmt.Errorf("error creating enrollment: %w", err)
	}
	return nil
}

// GetByID retrieves an enrollment with its course
func (r *EnrollmentRepository) GetByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	sql, args, err := r.selectJoined().Where(squirrel.Eq{"e.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get enrollment query: %w", err)
	}
	e, err := scanEnrollment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("error retrieving enrollment: %w", err)
	}
	return e, nil
}

func (r *EnrollmentRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]*models.Enrollment, error) {
	sql, args, err := r.selectJoined().Where(where).OrderBy("e.academic_year", "e.semester", "c.code").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list enrollments query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing enrollments: %w", err)
	}
	defer rows.Close()

	var out []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning enrollment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListByAccount returns a student's registrations
func (r *EnrollmentRepository) ListByAccount(ctx context.Context, accountID int64) ([]*models.Enrollment, error) {
	return r.list(ctx, squirrel.Eq{"e.account_id": accountID})
}

// ListByCourse returns a course roster
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID int64) ([]*models.Enrollment, error) {
	return r.list(ctx, squirrel.Eq{"e.course_id": courseID})
}

// UpdateGrade persists scores and the derived grade
func (r *EnrollmentRepository) UpdateGrade(ctx context.Context, e *models.Enrollment) error {
	sql, args, err := psql.Update("enrollments").
		Set("ca_score", e.CAScore).
		Set("exam_score", e.ExamScore).
		Set("total", e.Total).
		Set("grade", e.Grade).
		Set("point", e.Point).
		Set("graded_by", e.GradedBy).
		Set("graded_at", e.GradedAt).
		Where(squirrel.Eq{"id": e.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build grade enrollment query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("enrollmentID", e.ID).Msg("Error executing grade enrollment query")
		return fmt.Errorf("error grading enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEnrollmentNotFound
	}
	return nil
}

// GradeBandRepository persists the grading scheme
type GradeBandRepository struct {
	db db.DBTX
}

// NewGradeBandRepository creates a new GradeBandRepository
func NewGradeBandRepository(conn db.DBTX) *GradeBandRepository {
	return &GradeBandRepository{db: conn}
}

// List returns the bands ordered by descending minimum score
func (r *GradeBandRepository) List(ctx context.Context) ([]models.GradeBand, error) {
	sql, args, err := psql.Select("min_score", "grade", "point").From("grade_bands").OrderBy("min_score DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list grade bands query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing grade bands: %w", err)
	}
	defer rows.Close()

	var bands []models.GradeBand
	for rows.Next() {
		var b models.GradeBand
		if err := rows.Scan(&b.MinScore, &b.Grade, &b.Point); err != nil {
			return nil, fmt.Errorf("error scanning grade band: %w", err)
		}
		bands = append(bands, b)
	}
	return bands, rows.Err()
}

// Replace swaps the whole scheme; callers run it inside a transaction
func (r *GradeBandRepository) Replace(ctx context.Context, bands []models.GradeBand) error {
	if _, err := r.db.Exec(ctx, "DELETE FROM grade_bands"); err != nil {
		return fmt.Errorf("error clearing grade bands: %w", err)
	}
	if len(bands) == 0 {
		return nil
	}
	q := psql.Insert("grade_bands").Columns("min_score", "grade", "point")
	for _, b := range bands {
		q = q.Values(b.MinScore, b.Grade, b.Point)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert grade bands query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error inserting grade bands: %w", err)
	}
	return nil
}
