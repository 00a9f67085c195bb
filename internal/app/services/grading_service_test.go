package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

func TestRecordGradeUsesScheme(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.program(t, "CS", 0)
	studentID := env.student(t, "ama@example.com", "ama", "UNI2025CS0001", cs)
	intro := env.course(t, "CSC101", 3, cs)
	enrolled, err := env.courses.Register(ctx, studentID, []int64{intro.ID}, "2025/2026", 1)
	require.NoError(t, err)

	_, err = env.grading.ReplaceScheme(ctx, []models.GradeBand{
		{MinScore: 70, Grade: "B", Point: 3.0},
		{MinScore: 80, Grade: "A", Point: 4.0},
		{MinScore: 75, Grade: "B+", Point: 3.5},
	})
	require.NoError(t, err)

	graded, err := env.grading.RecordGrade(ctx, enrolled[0].ID, 27, 50, 3)
	require.NoError(t, err)
	assert.Equal(t, "B+", *graded.Grade)
	assert.Equal(t, 3.5, *graded.Point)
	assert.Equal(t, 77.0, *graded.Total)

	_, err = env.grading.RecordGrade(ctx, enrolled[0].ID, 10, 50, 3)
	assert.ErrorIs(t, err, apperrors.ErrInvalidScore, "no band covers 60")
}

func TestRecordGradeRejectsBadScores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.grading.RecordGrade(ctx, 1, -1, 50, 3)
	assert.ErrorIs(t, err, apperrors.ErrInvalidScore)
	_, err = env.grading.RecordGrade(ctx, 1, 40, 61, 3)
	assert.ErrorIs(t, err, apperrors.ErrInvalidScore)
	_, err = env.grading.RecordGrade(ctx, 9999, 40, 50, 3)
	assert.ErrorIs(t, err, apperrors.ErrEnrollmentNotFound)
}

func TestSchemeDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scheme, err := env.grading.GetScheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SortBands(models.DefaultGradeBands), scheme)

	_, err = env.grading.ReplaceScheme(ctx, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	_, err = env.grading.ReplaceScheme(ctx, []models.GradeBand{{MinScore: 101, Grade: "A", Point: 4}})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	_, err = env.grading.ReplaceScheme(ctx, []models.GradeBand{{MinScore: 50, Grade: " ", Point: 4}})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	_, err = env.grading.ReplaceScheme(ctx, []models.GradeBand{{MinScore: 50, Grade: "P", Point: -1}})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestResultsGPA(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cs := env.program(t, "CS", 0)
	studentID := env.student(t, "ama@example.com", "ama", "UNI2025CS0001", cs)
	a := env.course(t, "CSC101", 3, cs)
	b := env.course(t, "CSC102", 2, cs)
	c := env.course(t, "CSC103", 4, cs)
	enrolled, err := env.courses.Register(ctx, studentID, []int64{a.ID, b.ID, c.ID}, "2025/2026", 1)
	require.NoError(t, err)

	// default scheme: 85 is A (4.0), 72 is B (3.0); the third stays ungraded
	_, err = env.grading.RecordGrade(ctx, enrolled[0].ID, 30, 55, 3)
	require.NoError(t, err)
	_, err = env.grading.RecordGrade(ctx, enrolled[1].ID, 22, 50, 3)
	require.NoError(t, err)

	results, err := env.grading.Results(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, 5, results.TotalCredits)
	assert.Equal(t, 3.6, results.GPA)
	assert.Len(t, results.Results, 2)
}
