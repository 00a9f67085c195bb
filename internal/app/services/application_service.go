package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/notifications"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/filestorage"
	"github.com/yigit/uniadmit/internal/pkg/letter"
)

// Allowed upload extensions per document kind
var (
	documentExtensions = map[string]bool{".pdf": true, ".jpg": true, ".jpeg": true, ".png": true}
	photoExtensions    = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
)

// extensionMIME is the content type an upload must sniff as for its extension
var extensionMIME = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// ApplicationService manages the applicant's own form and the staff review queue
type ApplicationService struct {
	tx      repositories.Transactor
	repos   *repositories.Repositories
	storage filestorage.FileStorage
	queue   notifications.Queue
	maxSize int64
	now     Clock
	logger  zerolog.Logger
}

// NewApplicationService creates a new ApplicationService. maxUploadBytes <= 0
// disables the size check.
func NewApplicationService(
	tx repositories.Transactor,
	repos *repositories.Repositories,
	storage filestorage.FileStorage,
	queue notifications.Queue,
	maxUploadBytes int64,
	logger zerolog.Logger,
) *ApplicationService {
	return &ApplicationService{
		tx:      tx,
		repos:   repos,
		storage: storage,
		queue:   queue,
		maxSize: maxUploadBytes,
		now:     utcNow,
		logger:  logger,
	}
}

// transitionError maps an illegal status move onto ErrInvalidTransition
func transitionError(err error) error {
	var te *models.TransitionError
	if errors.As(err, &te) {
		return apperrors.NewCustomError(apperrors.ErrInvalidTransition, te.Error())
	}
	return err
}

func (s *ApplicationService) withDocuments(ctx context.Context, app *models.Application) (*dto.ApplicationResponse, error) {
	docs, err := s.repos.Documents.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return dto.NewApplicationResponse(app, docs), nil
}

// GetMine returns the caller's application with its documents
func (s *ApplicationService) GetMine(ctx context.Context, accountID int64) (*dto.ApplicationResponse, error) {
	app, err := s.repos.Applications.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.withDocuments(ctx, app)
}

// SaveDraft overwrites the form content of the caller's application, creating
// it when absent. The status does not change.
func (s *ApplicationService) SaveDraft(ctx context.Context, accountID int64, req *dto.SaveApplicationRequest) (*dto.ApplicationResponse, error) {
	if err := validateChoices(req.FirstChoiceID, req.SecondChoiceID, req.ThirdChoiceID); err != nil {
		return nil, err
	}

	var saved *models.Application
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		app, err := repos.Applications.GetByAccountID(ctx, accountID)
		switch {
		case errors.Is(err, apperrors.ErrApplicationNotFound):
			app = &models.Application{AccountID: accountID, Status: models.ApplicationDraft}
			if err := repos.Applications.Create(ctx, app); err != nil {
				return fmt.Errorf("application creation error: %w", err)
			}
		case err != nil:
			return err
		default:
			// Update writes the whole row, so a decision committed since the
			// read above must be seen before overwriting it.
			app, err = repos.Applications.GetForUpdate(ctx, app.ID)
			if err != nil {
				return err
			}
		}
		if !app.Status.Editable() {
			return apperrors.ErrApplicationLocked
		}

		app.Details = req.Details()
		app.FirstChoiceID = req.FirstChoiceID
		app.SecondChoiceID = req.SecondChoiceID
		app.ThirdChoiceID = req.ThirdChoiceID
		app.ExamResults = models.ExamResults{Sittings: req.ExamSittings}
		if err := repos.Applications.Update(ctx, app); err != nil {
			return err
		}
		saved = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.withDocuments(ctx, saved)
}

func validateChoices(choices ...*int64) error {
	seen := make(map[int64]bool, len(choices))
	for _, c := range choices {
		if c == nil {
			continue
		}
		if seen[*c] {
			return apperrors.NewValidationError("program choices must be distinct")
		}
		seen[*c] = true
	}
	return nil
}

// missingFields lists the form fields required before submission
func missingFields(app *models.Application) []string {
	var missing []string
	if strings.TrimSpace(app.Details.FirstName) == "" {
		missing = append(missing, "firstName")
	}
	if strings.TrimSpace(app.Details.LastName) == "" {
		missing = append(missing, "lastName")
	}
	if app.FirstChoiceID == nil {
		missing = append(missing, "firstChoiceId")
	}
	if len(app.ExamResults.Sittings) == 0 {
		missing = append(missing, "examSittings")
	}
	for i, sitting := range app.ExamResults.Sittings {
		if strings.TrimSpace(sitting.ExamType) == "" || strings.TrimSpace(sitting.IndexNumber) == "" {
			missing = append(missing, fmt.Sprintf("examSittings[%d]", i))
		}
	}
	return missing
}

// Submit moves the caller's application to Submitted. Resubmitting while
// Submitted is allowed and refreshes the submission time.
func (s *ApplicationService) Submit(ctx context.Context, accountID int64) (*dto.ApplicationResponse, error) {
	var submitted *models.Application
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		app, err := repos.Applications.GetByAccountID(ctx, accountID)
		if err != nil {
			return err
		}
		app, err = repos.Applications.GetForUpdate(ctx, app.ID)
		if err != nil {
			return err
		}
		if missing := missingFields(app); len(missing) > 0 {
			return apperrors.NewCustomError(apperrors.ErrIncompleteForm, "application form is incomplete: "+strings.Join(missing, ", ")).
				WithDetails(map[string]interface{}{"missing": missing})
		}
		next, err := app.Status.Transition(models.ApplicationSubmitted)
		if err != nil {
			return transitionError(err)
		}
		now := s.now()
		app.Status = next
		app.SubmittedAt = &now
		if err := repos.Applications.Update(ctx, app); err != nil {
			return err
		}
		submitted = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("applicationID", submitted.ID).Msg("Application submitted")
	enqueueAfterCommit(ctx, s.queue, s.logger, notifications.Message{
		Kind:      notifications.KindApplicationSubmitted,
		AccountID: accountID,
	}.With("applicationId", submitted.ID))
	return s.withDocuments(ctx, submitted)
}

// checkContent rejects uploads whose bytes disagree with their extension.
// Passport photos must also be embeddable in the admission letter.
func checkContent(fileHeader *multipart.FileHeader, ext string, kind models.DocumentKind) error {
	detected, err := filestorage.DetectMIME(fileHeader)
	if err != nil {
		return fmt.Errorf("failed to inspect upload: %w", err)
	}
	if !detected.Is(extensionMIME[ext]) {
		return apperrors.NewValidationError(fmt.Sprintf("file content %s does not match the %s extension", detected.String(), ext))
	}
	if kind != models.DocumentPassportPhoto {
		return nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()
	if err := letter.CheckImage(file, strings.TrimPrefix(ext, ".")); err != nil {
		return apperrors.NewValidationError("passport photo cannot be used: " + err.Error())
	}
	return nil
}

// AttachDocument stores an upload and records it against the caller's
// application. Birth certificates and passport photos replace the previous
// upload of the same kind.
func (s *ApplicationService) AttachDocument(ctx context.Context, accountID int64, kind models.DocumentKind, fileHeader *multipart.FileHeader) (*models.Document, error) {
	if fileHeader == nil {
		return nil, apperrors.NewValidationError("file is required")
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	allowed := documentExtensions
	if kind == models.DocumentPassportPhoto {
		allowed = photoExtensions
	}
	if !allowed[ext] {
		return nil, apperrors.NewValidationError(fmt.Sprintf("file type %q is not allowed for %s", ext, kind))
	}
	if s.maxSize > 0 && fileHeader.Size > s.maxSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}
	if err := checkContent(fileHeader, ext, kind); err != nil {
		return nil, err
	}

	app, err := s.repos.Applications.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !app.Status.Editable() {
		return nil, apperrors.ErrApplicationLocked
	}

	info, err := s.storage.SaveFileWithPath(fileHeader, fmt.Sprintf("documents/%d", app.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	doc := &models.Document{
		ApplicationID: app.ID,
		Kind:          kind,
		Path:          info.URL,
		OriginalName:  info.Filename,
		Size:          info.FileSize,
		MimeType:      info.MimeType,
	}
	var replaced []*models.Document
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		locked, err := repos.Applications.GetForUpdate(ctx, app.ID)
		if err != nil {
			return err
		}
		if !locked.Status.Editable() {
			return apperrors.ErrApplicationLocked
		}
		if kind.Singular() {
			if replaced, err = repos.Documents.DeleteByKind(ctx, app.ID, kind); err != nil {
				return err
			}
		}
		return repos.Documents.Create(ctx, doc)
	})
	if err != nil {
		if delErr := s.storage.DeleteFile(info.URL); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", info.URL).Msg("Failed to remove orphaned upload")
		}
		return nil, err
	}

	for _, old := range replaced {
		if err := s.storage.DeleteFile(old.Path); err != nil {
			s.logger.Warn().Err(err).Str("path", old.Path).Msg("Failed to remove replaced document")
		}
	}
	s.logger.Info().Int64("applicationID", app.ID).Str("kind", string(kind)).Msg("Document attached")
	return doc, nil
}

// ListDocuments returns the documents of the caller's application
func (s *ApplicationService) ListDocuments(ctx context.Context, accountID int64) ([]*models.Document, error) {
	app, err := s.repos.Applications.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.repos.Documents.ListByApplication(ctx, app.ID)
}

// List returns a page of applications for staff review
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, int64, error) {
	apps, total, err := s.repos.Applications.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, total, nil
}

// Get returns one application with its documents
func (s *ApplicationService) Get(ctx context.Context, id int64) (*dto.ApplicationResponse, error) {
	app, err := s.repos.Applications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withDocuments(ctx, app)
}

// MarkPending moves a Submitted application under review
func (s *ApplicationService) MarkPending(ctx context.Context, id, actorID int64) (*models.Application, error) {
	var reviewed *models.Application
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		app, err := repos.Applications.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err := app.Status.Transition(models.ApplicationPending)
		if err != nil {
			return transitionError(err)
		}
		app.Status = next
		if err := repos.Applications.Update(ctx, app); err != nil {
			return err
		}
		reviewed = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("applicationID", id).Int64("actorID", actorID).Msg("Application under review")
	return reviewed, nil
}
