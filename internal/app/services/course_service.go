package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

// CourseService manages the course catalog and student registration
type CourseService struct {
	tx     repositories.Transactor
	repos  *repositories.Repositories
	logger zerolog.Logger
}

// NewCourseService creates a new CourseService
func NewCourseService(tx repositories.Transactor, repos *repositories.Repositories, logger zerolog.Logger) *CourseService {
	return &CourseService{tx: tx, repos: repos, logger: logger}
}

func courseFromRequest(req *dto.CourseRequest) *models.Course {
	return &models.Course{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Title:       strings.TrimSpace(req.Title),
		CreditHours: req.CreditHours,
		ProgramID:   req.ProgramID,
		Level:       req.Level,
		Semester:    req.Semester,
	}
}

// Create adds a course
func (s *CourseService) Create(ctx context.Context, req *dto.CourseRequest) (*models.Course, error) {
	course := courseFromRequest(req)
	if err := s.repos.Courses.Create(ctx, course); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("courseID", course.ID).Str("code", course.Code).Msg("Course created")
	return course, nil
}

// Get returns one course
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	return s.repos.Courses.GetByID(ctx, id)
}

// List returns every course, or those of one program plus general courses
func (s *CourseService) List(ctx context.Context, programID *int64) ([]*models.Course, error) {
	return s.repos.Courses.List(ctx, programID)
}

// Update replaces a course's fields
func (s *CourseService) Update(ctx context.Context, id int64, req *dto.CourseRequest) (*models.Course, error) {
	course := courseFromRequest(req)
	course.ID = id
	if err := s.repos.Courses.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// Delete removes a course
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	return s.repos.Courses.Delete(ctx, id)
}

func (s *CourseService) student(ctx context.Context, accountID int64) (*models.Account, error) {
	account, err := s.repos.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Role != models.RoleStudent || account.AdmittedProgramID == nil {
		return nil, apperrors.NewForbiddenError("only admitted students can register for courses")
	}
	return account, nil
}

// ListForStudent returns the courses of the student's program plus general courses
func (s *CourseService) ListForStudent(ctx context.Context, accountID int64) ([]*models.Course, error) {
	account, err := s.student(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.repos.Courses.List(ctx, account.AdmittedProgramID)
}

// Register enrolls a student in courses for an academic year. Either every
// course is registered or none.
func (s *CourseService) Register(ctx context.Context, accountID int64, courseIDs []int64, academicYear string, semester int) ([]*models.Enrollment, error) {
	academicYear = strings.TrimSpace(academicYear)
	if academicYear == "" {
		return nil, apperrors.NewValidationError("academic year is required")
	}
	if len(courseIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one course is required")
	}
	account, err := s.student(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var enrollments []*models.Enrollment
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		enrollments = enrollments[:0]
		seen := make(map[int64]bool, len(courseIDs))
		for _, id := range courseIDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			course, err := repos.Courses.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if course.ProgramID != nil && *course.ProgramID != *account.AdmittedProgramID {
				return apperrors.NewForbiddenError(fmt.Sprintf("course %s is not offered by your program", course.Code))
			}
			e := &models.Enrollment{
				AccountID:    accountID,
				CourseID:     course.ID,
				AcademicYear: academicYear,
				Semester:     semester,
			}
			if err := repos.Enrollments.Create(ctx, e); err != nil {
				return err
			}
			e.Course = course
			enrollments = append(enrollments, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("accountID", accountID).Int("courses", len(enrollments)).Str("academicYear", academicYear).Msg("Courses registered")
	return enrollments, nil
}

// ListEnrollments returns a student's registrations
func (s *CourseService) ListEnrollments(ctx context.Context, accountID int64) ([]*models.Enrollment, error) {
	return s.repos.Enrollments.ListByAccount(ctx, accountID)
}

// CourseRoster returns every registration for a course
func (s *CourseService) CourseRoster(ctx context.Context, courseID int64) ([]*models.Enrollment, error) {
	if _, err := s.repos.Courses.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.repos.Enrollments.ListByCourse(ctx, courseID)
}
