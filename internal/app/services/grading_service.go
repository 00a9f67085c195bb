package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

const maxTotalScore = 100

// GradingService records scores and derives grades from the grading scheme
type GradingService struct {
	repos  *repositories.Repositories
	now    Clock
	logger zerolog.Logger
}

// NewGradingService creates a new GradingService
func NewGradingService(repos *repositories.Repositories, logger zerolog.Logger) *GradingService {
	return &GradingService{repos: repos, now: utcNow, logger: logger}
}

// RecordGrade stores continuous assessment and exam scores for an enrollment
// and grades the total against the current scheme.
func (s *GradingService) RecordGrade(ctx context.Context, enrollmentID int64, caScore, examScore float64, actorID int64) (*models.Enrollment, error) {
	if caScore < 0 || examScore < 0 {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidScore, "scores cannot be negative")
	}
	total := caScore + examScore
	if total > maxTotalScore {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidScore, fmt.Sprintf("total score %.2f exceeds %d", total, maxTotalScore))
	}

	enrollment, err := s.repos.Enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	bands, err := s.repos.GradeBands.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load grading scheme: %w", err)
	}
	band, ok := models.LookupGrade(bands, total)
	if !ok {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidScore, fmt.Sprintf("no grade band covers a total of %.2f", total))
	}

	now := s.now()
	enrollment.CAScore = &caScore
	enrollment.ExamScore = &examScore
	enrollment.Total = &total
	enrollment.Grade = &band.Grade
	enrollment.Point = &band.Point
	enrollment.GradedBy = &actorID
	enrollment.GradedAt = &now
	if err := s.repos.Enrollments.UpdateGrade(ctx, enrollment); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("enrollmentID", enrollmentID).Str("grade", band.Grade).Int64("actorID", actorID).Msg("Grade recorded")
	return enrollment, nil
}

// GetScheme returns the configured bands, or the default table when none is set
func (s *GradingService) GetScheme(ctx context.Context) ([]models.GradeBand, error) {
	bands, err := s.repos.GradeBands.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load grading scheme: %w", err)
	}
	if len(bands) == 0 {
		bands = models.DefaultGradeBands
	}
	return models.SortBands(bands), nil
}

// ReplaceScheme swaps the whole grading scheme. Bands need a label and a
// minimum score within 0..100; gaps between bands are allowed.
func (s *GradingService) ReplaceScheme(ctx context.Context, bands []models.GradeBand) ([]models.GradeBand, error) {
	if len(bands) == 0 {
		return nil, apperrors.NewValidationError("at least one grade band is required")
	}
	for i := range bands {
		bands[i].Grade = strings.TrimSpace(bands[i].Grade)
		if bands[i].Grade == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("band %d has no grade label", i+1))
		}
		if bands[i].MinScore < 0 || bands[i].MinScore > maxTotalScore {
			return nil, apperrors.NewValidationError(fmt.Sprintf("band %s: minimum score must be between 0 and %d", bands[i].Grade, maxTotalScore))
		}
		if bands[i].Point < 0 {
			return nil, apperrors.NewValidationError(fmt.Sprintf("band %s: point cannot be negative", bands[i].Grade))
		}
	}

	sorted := models.SortBands(bands)
	if err := s.repos.GradeBands.Replace(ctx, sorted); err != nil {
		return nil, fmt.Errorf("failed to save grading scheme: %w", err)
	}
	s.logger.Info().Int("bands", len(sorted)).Msg("Grading scheme replaced")
	return sorted, nil
}

// Results lists a student's graded enrollments with the credit-weighted GPA
func (s *GradingService) Results(ctx context.Context, accountID int64) (*dto.ResultsResponse, error) {
	enrollments, err := s.repos.Enrollments.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	graded := make([]*models.Enrollment, 0, len(enrollments))
	var weighted float64
	var credits int
	for _, e := range enrollments {
		if !e.Graded() {
			continue
		}
		graded = append(graded, e)
		if e.Course == nil || e.Point == nil {
			continue
		}
		weighted += *e.Point * float64(e.Course.CreditHours)
		credits += e.Course.CreditHours
	}

	gpa := 0.0
	if credits > 0 {
		gpa = math.Round(weighted/float64(credits)*100) / 100
	}
	return &dto.ResultsResponse{Results: graded, GPA: gpa, TotalCredits: credits}, nil
}
