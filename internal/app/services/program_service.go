package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/repositories"
)

// ProgramService manages the program catalog
type ProgramService struct {
	repos  *repositories.Repositories
	logger zerolog.Logger
}

// NewProgramService creates a new ProgramService
func NewProgramService(repos *repositories.Repositories, logger zerolog.Logger) *ProgramService {
	return &ProgramService{repos: repos, logger: logger}
}

func programFromRequest(req *dto.ProgramRequest) *models.Program {
	return &models.Program{
		Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:          strings.TrimSpace(req.Name),
		Faculty:       strings.TrimSpace(req.Faculty),
		Department:    strings.TrimSpace(req.Department),
		DurationYears: req.DurationYears,
		Fee:           req.Fee,
	}
}

// Create adds a program
func (s *ProgramService) Create(ctx context.Context, req *dto.ProgramRequest) (*models.Program, error) {
	program := programFromRequest(req)
	if err := s.repos.Programs.Create(ctx, program); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("programID", program.ID).Str("code", program.Code).Msg("Program created")
	return program, nil
}

// Get returns one program
func (s *ProgramService) Get(ctx context.Context, id int64) (*models.Program, error) {
	return s.repos.Programs.GetByID(ctx, id)
}

// List returns the whole catalog
func (s *ProgramService) List(ctx context.Context) ([]*models.Program, error) {
	return s.repos.Programs.List(ctx)
}

// Update replaces a program's fields
func (s *ProgramService) Update(ctx context.Context, id int64, req *dto.ProgramRequest) (*models.Program, error) {
	program := programFromRequest(req)
	program.ID = id
	if err := s.repos.Programs.Update(ctx, program); err != nil {
		return nil, err
	}
	return program, nil
}

// Delete removes a program that nothing references
func (s *ProgramService) Delete(ctx context.Context, id int64) error {
	if err := s.repos.Programs.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("programID", id).Msg("Program deleted")
	return nil
}
