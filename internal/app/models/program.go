package models

import "time"

// Program is an entry of the static program catalog
type Program struct {
	ID            int64     `json:"id" db:"id"`
	Code          string    `json:"code" db:"code"`
	Name          string    `json:"name" db:"name"`
	Faculty       string    `json:"faculty" db:"faculty"`
	Department    string    `json:"department" db:"department"`
	DurationYears int       `json:"durationYears" db:"duration_years"`
	Fee           int64     `json:"fee" db:"fee"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// Course is a taught unit, optionally tied to a program
type Course struct {
	ID          int64  `json:"id" db:"id"`
	Code        string `json:"code" db:"code"`
	Title       string `json:"title" db:"title"`
	CreditHours int    `json:"creditHours" db:"credit_hours"`
	ProgramID   *int64 `json:"programId,omitempty" db:"program_id"`
	Level       int    `json:"level" db:"level"`
	Semester    int    `json:"semester" db:"semester"`
}

// Enrollment is a student's registration for a course in an academic year
type Enrollment struct {
	ID           int64      `json:"id" db:"id"`
	AccountID    int64      `json:"accountId" db:"account_id"`
	CourseID     int64      `json:"courseId" db:"course_id"`
	AcademicYear string     `json:"academicYear" db:"academic_year"`
	Semester     int        `json:"semester" db:"semester"`
	CAScore      *float64   `json:"caScore,omitempty" db:"ca_score"`
	ExamScore    *float64   `json:"examScore,omitempty" db:"exam_score"`
	Total        *float64   `json:"total,omitempty" db:"total"`
	Grade        *string    `json:"grade,omitempty" db:"grade"`
	Point        *float64   `json:"point,omitempty" db:"point"`
	GradedBy     *int64     `json:"gradedBy,omitempty" db:"graded_by"`
	GradedAt     *time.Time `json:"gradedAt,omitempty" db:"graded_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	Course       *Course    `json:"course,omitempty"`
}

// Graded reports whether a grade has been recorded
func (e *Enrollment) Graded() bool {
	return e.Grade != nil
}
