package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/notifications"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/codes"
	"github.com/yigit/uniadmit/internal/pkg/filestorage"
	"github.com/yigit/uniadmit/internal/pkg/letter"
)

const (
	lettersDir           = "letters"
	systemIDRandomDigits = 4
)

// AdmissionService decides applications and issues admission artefacts
type AdmissionService struct {
	tx          repositories.Transactor
	repos       *repositories.Repositories
	storage     filestorage.FileStorage
	renderer    letter.Renderer
	queue       notifications.Queue
	codes       codes.Generator
	maxAttempts int
	now         Clock
	logger      zerolog.Logger
}

// NewAdmissionService creates a new AdmissionService. systemIDAttempts bounds
// how often an admission is retried after a system ID collision.
func NewAdmissionService(
	tx repositories.Transactor,
	repos *repositories.Repositories,
	storage filestorage.FileStorage,
	renderer letter.Renderer,
	queue notifications.Queue,
	systemIDAttempts int,
	logger zerolog.Logger,
) *AdmissionService {
	if systemIDAttempts < 1 {
		systemIDAttempts = 5
	}
	return &AdmissionService{
		tx:          tx,
		repos:       repos,
		storage:     storage,
		renderer:    renderer,
		queue:       queue,
		codes:       codes.Default,
		maxAttempts: systemIDAttempts,
		now:         utcNow,
		logger:      logger,
	}
}

// MintSystemID builds prefix+year+programCode+random digits, upper-cased with
// everything but letters and digits removed.
func MintSystemID(prefix string, year int, programCode, random string) string {
	raw := prefix + strconv.Itoa(year) + programCode + random
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return -1
	}, raw)
}

// admissionContext is everything loaded before the admitting transaction
type admissionContext struct {
	app      *models.Application
	account  *models.Account
	program  *models.Program
	settings models.InstitutionSettings
	photo    string
}

func (s *AdmissionService) load(ctx context.Context, applicationID, programID int64) (*admissionContext, error) {
	app, err := s.repos.Applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	account, err := s.repos.Accounts.GetByID(ctx, app.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load applicant account: %w", err)
	}
	program, err := s.repos.Programs.GetByID(ctx, programID)
	if err != nil {
		return nil, err
	}
	raw, err := s.repos.Settings.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	ac := &admissionContext{app: app, account: account, program: program, settings: models.InstitutionFromMap(raw)}
	docs, err := s.repos.Documents.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, d := range docs {
		if d.Kind == models.DocumentPassportPhoto {
			ac.photo = s.resolve(d.Path)
		}
	}
	return ac, nil
}

// resolve maps a stored URL to a filesystem path, passing other values through
func (s *AdmissionService) resolve(p string) string {
	if p == "" {
		return ""
	}
	if full, err := s.storage.GetFullPath(p); err == nil {
		return full
	}
	return p
}

func (s *AdmissionService) letterData(ac *admissionContext, systemID string) letter.Data {
	now := s.now()
	name := ac.account.FullName()
	if d := ac.app.Details; d.FirstName != "" {
		name = strings.Join(strings.Fields(strings.Join([]string{d.FirstName, d.OtherNames, d.LastName}, " ")), " ")
	}
	return letter.Data{
		InstitutionName:    ac.settings.Name,
		InstitutionAddress: ac.settings.Address,
		LogoPath:           s.resolve(ac.settings.LogoPath),
		PhotoPath:          ac.photo,
		ReferenceNumber:    letter.Reference(ac.settings.IDPrefix, now.Year(), ac.app.ID),
		Date:               now,
		ApplicantName:      name,
		ProgramName:        ac.program.Name,
		DurationYears:      ac.program.DurationYears,
		SystemID:           systemID,
		Fee:                ac.program.Fee,
		Currency:           ac.settings.Currency,
		AcademicYear:       ac.settings.AcademicYear,
		AcceptanceDeadline: ac.settings.AcceptanceDeadline,
		RegistrarName:      ac.settings.RegistrarName,
	}
}

func (s *AdmissionService) writeLetter(data letter.Data, applicationID int64) (string, error) {
	pdf, err := s.renderer.Render(data)
	if err != nil {
		return "", fmt.Errorf("failed to render admission letter: %w", err)
	}
	path, err := s.storage.WriteFile(lettersDir, letter.FileName(applicationID), pdf)
	if err != nil {
		return "", fmt.Errorf("failed to store admission letter: %w", err)
	}
	return path, nil
}

// Admit admits an application into a program: the applicant becomes a
// student with a permanent system ID, the letter is rendered and the first
// tuition invoice is raised, all in one transaction. Notifications follow
// the commit.
func (s *AdmissionService) Admit(ctx context.Context, applicationID, programID, actorID int64) (*dto.AdmissionResult, error) {
	ac, err := s.load(ctx, applicationID, programID)
	if err != nil {
		return nil, err
	}
	if ac.app.Status == models.ApplicationAdmitted {
		return nil, apperrors.ErrAlreadyAdmitted
	}
	if _, err := ac.app.Status.Transition(models.ApplicationAdmitted); err != nil {
		return nil, transitionError(err)
	}

	docs, err := s.repos.Documents.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if missing := models.MissingDocuments(ac.app, docs); len(missing) > 0 {
		return nil, apperrors.NewCustomError(apperrors.ErrIncompleteDocuments, "missing documents: "+strings.Join(missing, ", ")).
			WithDetails(map[string]interface{}{"missing": missing})
	}

	var result *dto.AdmissionResult
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		random, err := s.codes(systemIDRandomDigits)
		if err != nil {
			return nil, err
		}
		systemID := MintSystemID(ac.settings.IDPrefix, s.now().Year(), ac.program.Code, random)

		result, err = s.admitOnce(ctx, ac, systemID, actorID)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrDuplicateSystemID) {
			return nil, err
		}
		s.logger.Warn().Int64("applicationID", applicationID).Int("attempt", attempt).Msg("System ID collision, retrying admission")
		if attempt == s.maxAttempts {
			return nil, fmt.Errorf("no unique system ID after %d attempts: %w", s.maxAttempts, err)
		}
	}

	s.logger.Info().
		Int64("applicationID", applicationID).
		Int64("programID", programID).
		Int64("actorID", actorID).
		Str("systemID", result.SystemID).
		Msg("Application admitted")

	enqueueAfterCommit(ctx, s.queue, s.logger, admittedMessage(ac.account, ac.program, result.SystemID, result.AdmissionLetterPath, ac.settings))
	return result, nil
}

func (s *AdmissionService) admitOnce(ctx context.Context, ac *admissionContext, systemID string, actorID int64) (*dto.AdmissionResult, error) {
	var (
		result  *dto.AdmissionResult
		written string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		app, err := repos.Applications.GetForUpdate(ctx, ac.app.ID)
		if err != nil {
			return err
		}
		if app.Status == models.ApplicationAdmitted {
			return apperrors.ErrAlreadyAdmitted
		}
		next, err := app.Status.Transition(models.ApplicationAdmitted)
		if err != nil {
			return transitionError(err)
		}

		if err := repos.Accounts.Promote(ctx, app.AccountID, systemID, ac.program.ID); err != nil {
			return err
		}

		path, err := s.writeLetter(s.letterData(ac, systemID), app.ID)
		if err != nil {
			return err
		}
		written = path

		now := s.now()
		app.Status = next
		app.AdmittedProgramID = &ac.program.ID
		app.AdmissionLetterPath = &path
		app.DecidedAt = &now
		app.DecidedBy = &actorID
		if err := repos.Applications.Update(ctx, app); err != nil {
			return err
		}

		result = &dto.AdmissionResult{
			ApplicationID:       app.ID,
			SystemID:            systemID,
			ProgramID:           ac.program.ID,
			AdmissionLetterPath: path,
		}
		if ac.program.Fee > 0 {
			description := "Tuition fees: " + ac.program.Name
			if ac.settings.AcademicYear != "" {
				description += " (" + ac.settings.AcademicYear + ")"
			}
			invoice := &models.Invoice{
				AccountID:   app.AccountID,
				Description: description,
				Amount:      ac.program.Fee,
				Currency:    ac.settings.Currency,
				Status:      models.InvoiceUnpaid,
			}
			if err := repos.Invoices.Create(ctx, invoice); err != nil {
				return fmt.Errorf("failed to raise tuition invoice: %w", err)
			}
			result.InvoiceID = invoice.ID
		}
		return nil
	})
	if err != nil {
		if written != "" {
			if delErr := s.storage.DeleteFile(written); delErr != nil {
				s.logger.Warn().Err(delErr).Str("path", written).Msg("Failed to remove letter of rolled back admission")
			}
		}
		return nil, err
	}
	return result, nil
}

func admittedMessage(account *models.Account, program *models.Program, systemID, letterPath string, settings models.InstitutionSettings) notifications.Message {
	return notifications.Message{
		Kind:           notifications.KindApplicationAdmitted,
		To:             account.Email,
		ToName:         account.FullName(),
		Phone:          account.Phone,
		AccountID:      account.ID,
		AttachmentPath: letterPath,
	}.
		With("program", program.Name).
		With("systemId", systemID).
		With("institution", settings.Name)
}

// Reject closes an application without an offer
func (s *AdmissionService) Reject(ctx context.Context, applicationID, actorID int64) (*models.Application, error) {
	var rejected *models.Application
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		app, err := repos.Applications.GetForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.Status == models.ApplicationAdmitted {
			return apperrors.ErrAlreadyAdmitted
		}
		next, err := app.Status.Transition(models.ApplicationRejected)
		if err != nil {
			return transitionError(err)
		}
		now := s.now()
		app.Status = next
		app.DecidedAt = &now
		app.DecidedBy = &actorID
		if err := repos.Applications.Update(ctx, app); err != nil {
			return err
		}
		rejected = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("applicationID", applicationID).Int64("actorID", actorID).Msg("Application rejected")
	account, err := s.repos.Accounts.GetByID(ctx, rejected.AccountID)
	if err != nil {
		s.logger.Error().Err(err).Int64("applicationID", applicationID).Msg("Failed to load account for rejection notice")
		return rejected, nil
	}
	raw, _ := s.repos.Settings.GetAll(ctx)
	enqueueAfterCommit(ctx, s.queue, s.logger, notifications.Message{
		Kind:      notifications.KindApplicationRejected,
		To:        account.Email,
		ToName:    account.FullName(),
		AccountID: account.ID,
	}.With("institution", models.InstitutionFromMap(raw).Name))
	return rejected, nil
}

// admitted loads the persisted admission of an application
func (s *AdmissionService) admitted(ctx context.Context, applicationID int64) (*admissionContext, string, error) {
	app, err := s.repos.Applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, "", err
	}
	if app.Status != models.ApplicationAdmitted || app.AdmittedProgramID == nil {
		return nil, "", apperrors.NewCustomError(apperrors.ErrInvalidTransition, "application has not been admitted")
	}
	ac, err := s.load(ctx, applicationID, *app.AdmittedProgramID)
	if err != nil {
		return nil, "", err
	}
	if ac.account.SystemID == nil {
		return nil, "", fmt.Errorf("admitted account %d has no system ID", ac.account.ID)
	}
	return ac, *ac.account.SystemID, nil
}

// RegenerateLetter re-renders the letter of an admitted application from the
// persisted system ID and program. It never mints a new ID.
func (s *AdmissionService) RegenerateLetter(ctx context.Context, applicationID int64) (string, error) {
	ac, systemID, err := s.admitted(ctx, applicationID)
	if err != nil {
		return "", err
	}
	path, err := s.writeLetter(s.letterData(ac, systemID), applicationID)
	if err != nil {
		return "", err
	}
	if ac.app.AdmissionLetterPath == nil || *ac.app.AdmissionLetterPath != path {
		ac.app.AdmissionLetterPath = &path
		if err := s.repos.Applications.Update(ctx, ac.app); err != nil {
			return "", err
		}
	}
	s.logger.Info().Int64("applicationID", applicationID).Msg("Admission letter regenerated")
	return path, nil
}

// ResendNotification queues the admission notice again
func (s *AdmissionService) ResendNotification(ctx context.Context, applicationID int64) error {
	ac, systemID, err := s.admitted(ctx, applicationID)
	if err != nil {
		return err
	}
	letterPath := ""
	if ac.app.AdmissionLetterPath != nil {
		letterPath = *ac.app.AdmissionLetterPath
	}
	if s.queue == nil {
		return nil
	}
	if err := s.queue.Enqueue(ctx, admittedMessage(ac.account, ac.program, systemID, letterPath, ac.settings)); err != nil {
		return fmt.Errorf("failed to enqueue admission notice: %w", err)
	}
	return nil
}
