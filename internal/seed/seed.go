// Package seed creates the data a fresh installation needs to be usable.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/auth"
)

// Options controls the bootstrap admin account
type Options struct {
	AdminEmail    string
	AdminPassword string
}

var defaultSettings = map[string]string{
	models.SettingInstitutionName:    "University",
	models.SettingIDPrefix:           "UNI",
	models.SettingCurrency:           "GHS",
	models.SettingRegistrarName:      "The Registrar",
	models.SettingAcademicYear:       "2025/2026",
	models.SettingAcceptanceDeadline: "",
}

var defaultPrograms = []models.Program{
	{Code: "CS", Name: "BSc Computer Science", Faculty: "Science", Department: "Computer Science", DurationYears: 4, Fee: 450000},
	{Code: "BA", Name: "BSc Business Administration", Faculty: "Business", Department: "Management", DurationYears: 4, Fee: 380000},
	{Code: "NUR", Name: "BSc Nursing", Faculty: "Health Sciences", Department: "Nursing", DurationYears: 4, Fee: 420000},
}

// CreateDefaultData fills in missing settings, programs and grade bands and
// creates the admin account. Existing data is never overwritten. Errors are
// collected so one failing step does not stop the others.
func CreateDefaultData(ctx context.Context, repos *repositories.Repositories, opts Options, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data...")
	var finalErr error

	// --- Settings --- //
	current, err := repos.Settings.GetAll(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Error loading settings")
		finalErr = errors.Join(finalErr, err)
	} else {
		missing := map[string]string{}
		for key, value := range defaultSettings {
			if _, ok := current[key]; !ok {
				missing[key] = value
			}
		}
		if len(missing) > 0 {
			if err := repos.Settings.Upsert(ctx, missing); err != nil {
				lgr.Error().Err(err).Msg("Error creating default settings")
				finalErr = errors.Join(finalErr, err)
			} else {
				lgr.Info().Int("count", len(missing)).Msg("Default settings created")
			}
		}
	}

	// --- Programs --- //
	programs, err := repos.Programs.List(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Error listing programs")
		finalErr = errors.Join(finalErr, err)
	} else if len(programs) == 0 {
		for _, p := range defaultPrograms {
			program := p
			program.CreatedAt = time.Now().UTC()
			if err := repos.Programs.Create(ctx, &program); err != nil {
				lgr.Error().Err(err).Str("code", program.Code).Msg("Error creating program")
				finalErr = errors.Join(finalErr, err)
			}
		}
	}

	// --- Grading scheme --- //
	bands, err := repos.GradeBands.List(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Error listing grade bands")
		finalErr = errors.Join(finalErr, err)
	} else if len(bands) == 0 {
		if err := repos.GradeBands.Replace(ctx, models.DefaultGradeBands); err != nil {
			lgr.Error().Err(err).Msg("Error creating default grading scheme")
			finalErr = errors.Join(finalErr, err)
		}
	}

	// --- Admin account --- //
	if err := createAdmin(ctx, repos, opts, lgr); err != nil {
		finalErr = errors.Join(finalErr, err)
	}

	lgr.Info().Msg("Default data check/creation finished.")
	return finalErr
}

func createAdmin(ctx context.Context, repos *repositories.Repositories, opts Options, lgr zerolog.Logger) error {
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if email == "" {
		return nil
	}
	exists, err := repos.Accounts.ExistsByEmail(ctx, email)
	if err != nil {
		lgr.Error().Err(err).Msg("Error checking if admin account exists")
		return err
	}
	if exists {
		lgr.Info().Msg("Admin account already exists, skipping creation")
		return nil
	}
	if opts.AdminPassword == "" {
		lgr.Warn().Str("email", email).Msg("No admin password configured, skipping admin creation")
		return nil
	}

	hashed, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		lgr.Error().Err(err).Msg("Error hashing admin password")
		return err
	}
	now := time.Now().UTC()
	admin := &models.Account{
		Email:     email,
		Username:  "admin",
		Password:  hashed,
		FirstName: "System",
		LastName:  "Administrator",
		Role:      models.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repos.Accounts.Create(ctx, admin); err != nil {
		lgr.Error().Err(err).Msg("Error creating admin account")
		return err
	}
	lgr.Info().Int64("adminID", admin.ID).Msg("Default admin account created successfully")
	return nil
}
