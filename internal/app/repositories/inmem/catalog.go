package inmem

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

type programRepo struct{ s *Store }

func (r *programRepo) codeTakenLocked(code string, except int64) bool {
	for _, p := range r.s.t.programs {
		if p.ID != except && strings.EqualFold(p.Code, code) {
			return true
		}
	}
	return false
}

func (r *programRepo) Create(_ context.Context, p *models.Program) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.codeTakenLocked(p.Code, 0) {
		return apperrors.ErrProgramAlreadyExists
	}
	p.ID = r.s.nextID()
	p.CreatedAt = time.Now().UTC()
	c := *p
	r.s.t.programs[p.ID] = &c
	return nil
}

func (r *programRepo) GetByID(_ context.Context, id int64) (*models.Program, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.t.programs[id]
	if !ok {
		return nil, apperrors.ErrProgramNotFound
	}
	c := *p
	return &c, nil
}

func (r *programRepo) List(_ context.Context) ([]*models.Program, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.Program, 0, len(r.s.t.programs))
	for _, p := range r.s.t.programs {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *programRepo) Update(_ context.Context, p *models.Program) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.t.programs[p.ID]
	if !ok {
		return apperrors.ErrProgramNotFound
	}
	if r.codeTakenLocked(p.Code, p.ID) {
		return apperrors.ErrProgramAlreadyExists
	}
	c := *p
	c.CreatedAt = existing.CreatedAt
	r.s.t.programs[p.ID] = &c
	return nil
}

func (r *programRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.programs[id]; !ok {
		return apperrors.ErrProgramNotFound
	}
	for _, a := range r.s.t.applications {
		if matchesProgram(a, id) {
			return apperrors.ErrProgramInUse
		}
	}
	for _, a := range r.s.t.accounts {
		if a.AdmittedProgramID != nil && *a.AdmittedProgramID == id {
			return apperrors.ErrProgramInUse
		}
	}
	for cid, c := range r.s.t.courses {
		if c.ProgramID != nil && *c.ProgramID == id {
			next := *c
			next.ProgramID = nil
			r.s.t.courses[cid] = &next
		}
	}
	delete(r.s.t.programs, id)
	return nil
}

type courseRepo struct{ s *Store }

func (r *courseRepo) checkLocked(c *models.Course) error {
	for _, other := range r.s.t.courses {
		if other.ID != c.ID && strings.EqualFold(other.Code, c.Code) {
			return apperrors.ErrCourseAlreadyExists
		}
	}
	if c.ProgramID != nil {
		if _, ok := r.s.t.programs[*c.ProgramID]; !ok {
			return apperrors.ErrProgramNotFound
		}
	}
	return nil
}

func (r *courseRepo) Create(_ context.Context, c *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkLocked(c); err != nil {
		return err
	}
	c.ID = r.s.nextID()
	cp := *c
	r.s.t.courses[c.ID] = &cp
	return nil
}

func (r *courseRepo) GetByID(_ context.Context, id int64) (*models.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.t.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *courseRepo) List(_ context.Context, programID *int64) ([]*models.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Course
	for _, c := range r.s.t.courses {
		if programID != nil && c.ProgramID != nil && *c.ProgramID != *programID {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		if out[i].Semester != out[j].Semester {
			return out[i].Semester < out[j].Semester
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (r *courseRepo) Update(_ context.Context, c *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.courses[c.ID]; !ok {
		return apperrors.ErrCourseNotFound
	}
	if err := r.checkLocked(c); err != nil {
		return err
	}
	cp := *c
	r.s.t.courses[c.ID] = &cp
	return nil
}

func (r *courseRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.courses[id]; !ok {
		return apperrors.ErrCourseNotFound
	}
	for eid, e := range r.s.t.enrollments {
		if e.CourseID == id {
			delete(r.s.t.enrollments, eid)
		}
	}
	delete(r.s.t.courses, id)
	return nil
}

type enrollmentRepo struct{ s *Store }

func (r *enrollmentRepo) withCourseLocked(e *models.Enrollment) *models.Enrollment {
	c := *e
	if course, ok := r.s.t.courses[e.CourseID]; ok {
		cp := *course
		c.Course = &cp
	}
	return &c
}

func (r *enrollmentRepo) Create(_ context.Context, e *models.Enrollment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.courses[e.CourseID]; !ok {
		return apperrors.ErrCourseNotFound
	}
	for _, other := range r.s.t.enrollments {
		if other.AccountID == e.AccountID && other.CourseID == e.CourseID && other.AcademicYear == e.AcademicYear {
			return apperrors.ErrAlreadyEnrolled
		}
	}
	e.ID = r.s.nextID()
	e.CreatedAt = time.Now().UTC()
	c := *e
	c.Course = nil
	r.s.t.enrollments[e.ID] = &c
	return nil
}

func (r *enrollmentRepo) GetByID(_ context.Context, id int64) (*models.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.t.enrollments[id]
	if !ok {
		return nil, apperrors.ErrEnrollmentNotFound
	}
	return r.withCourseLocked(e), nil
}

func (r *enrollmentRepo) list(match func(*models.Enrollment) bool) []*models.Enrollment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Enrollment
	for _, e := range r.s.t.enrollments {
		if match(e) {
			out = append(out, r.withCourseLocked(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AcademicYear != out[j].AcademicYear {
			return out[i].AcademicYear < out[j].AcademicYear
		}
		if out[i].Semester != out[j].Semester {
			return out[i].Semester < out[j].Semester
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *enrollmentRepo) ListByAccount(_ context.Context, accountID int64) ([]*models.Enrollment, error) {
	return r.list(func(e *models.Enrollment) bool { return e.AccountID == accountID }), nil
}

func (r *enrollmentRepo) ListByCourse(_ context.Context, courseID int64) ([]*models.Enrollment, error) {
	return r.list(func(e *models.Enrollment) bool { return e.CourseID == courseID }), nil
}

func (r *enrollmentRepo) UpdateGrade(_ context.Context, e *models.Enrollment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.t.enrollments[e.ID]
	if !ok {
		return apperrors.ErrEnrollmentNotFound
	}
	next := *existing
	next.CAScore, next.ExamScore, next.Total = e.CAScore, e.ExamScore, e.Total
	next.Grade, next.Point = e.Grade, e.Point
	next.GradedBy, next.GradedAt = e.GradedBy, e.GradedAt
	r.s.t.enrollments[e.ID] = &next
	return nil
}

type gradeBandRepo struct{ s *Store }

func (r *gradeBandRepo) List(_ context.Context) ([]models.GradeBand, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return models.SortBands(r.s.t.gradeBands), nil
}

func (r *gradeBandRepo) Replace(_ context.Context, bands []models.GradeBand) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.t.gradeBands = append([]models.GradeBand(nil), bands...)
	return nil
}
