package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/notifications"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

func TestSaveDraftKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")
	cs := env.program(t, "CS", 0)

	resp, err := env.applications.SaveDraft(ctx, reg.Account.ID, &dto.SaveApplicationRequest{
		FirstName:     "Ama",
		LastName:      "Owusu",
		Nationality:   "Ghanaian",
		FirstChoiceID: &cs.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationDraft, resp.Status)
	assert.Equal(t, "Owusu", resp.Details.LastName)
	assert.Equal(t, cs.ID, *resp.FirstChoiceID)
	assert.Contains(t, resp.MissingDocuments, string(models.DocumentBirthCertificate))
}

func TestSaveDraftRejectsDuplicateChoicesAndUnknownPrograms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")
	cs := env.program(t, "CS", 0)

	_, err := env.applications.SaveDraft(ctx, reg.Account.ID, &dto.SaveApplicationRequest{
		FirstChoiceID: &cs.ID, SecondChoiceID: &cs.ID,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	missing := int64(9999)
	_, err = env.applications.SaveDraft(ctx, reg.Account.ID, &dto.SaveApplicationRequest{FirstChoiceID: &missing})
	assert.ErrorIs(t, err, apperrors.ErrProgramNotFound)
}

func TestSubmitRequiresCompleteForm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")

	_, err := env.applications.Submit(ctx, reg.Account.ID)
	require.ErrorIs(t, err, apperrors.ErrIncompleteForm)

	var ce *apperrors.CustomError
	require.ErrorAs(t, err, &ce)
	assert.ElementsMatch(t, []string{"firstChoiceId", "examSittings"}, ce.Details["missing"])
	assert.Empty(t, env.queue.kinds())
}

func TestSubmitAndResubmit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")
	cs := env.program(t, "CS", 0)

	resp := env.submitted(t, reg.Account.ID, cs.ID)
	assert.Equal(t, models.ApplicationSubmitted, resp.Status)
	require.NotNil(t, resp.SubmittedAt)
	assert.Empty(t, resp.MissingDocuments)
	assert.Equal(t, []notifications.Kind{notifications.KindApplicationSubmitted}, env.queue.kinds())

	// still editable and resubmittable until a decision
	again, err := env.applications.Submit(ctx, reg.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationSubmitted, again.Status)
}

func TestAttachDocumentReplacesSingularKinds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")
	id := reg.Account.ID

	first, err := env.applications.AttachDocument(ctx, id, models.DocumentPassportPhoto, fileHeader(t, "me.png", pngBytes(t)))
	require.NoError(t, err)
	second, err := env.applications.AttachDocument(ctx, id, models.DocumentPassportPhoto, fileHeader(t, "me2.jpg", jpegBytes(t)))
	require.NoError(t, err)

	_, err = env.applications.AttachDocument(ctx, id, models.DocumentResultSlip, fileHeader(t, "slip1.pdf", []byte("%PDF-1.4 one")))
	require.NoError(t, err)
	_, err = env.applications.AttachDocument(ctx, id, models.DocumentResultSlip, fileHeader(t, "slip2.pdf", []byte("%PDF-1.4 two")))
	require.NoError(t, err)

	docs, err := env.applications.ListDocuments(ctx, id)
	require.NoError(t, err)
	counts := map[models.DocumentKind]int{}
	for _, d := range docs {
		counts[d.Kind]++
	}
	assert.Equal(t, 1, counts[models.DocumentPassportPhoto])
	assert.Equal(t, 2, counts[models.DocumentResultSlip])

	oldPath, err := env.storage.GetFullPath(first.Path)
	require.NoError(t, err)
	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err), "replaced photo should be removed from disk")

	newPath, err := env.storage.GetFullPath(second.Path)
	require.NoError(t, err)
	assert.FileExists(t, newPath)
	assert.Equal(t, "me2.jpg", second.OriginalName)
}

func TestAttachDocumentValidatesUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")

	_, err := env.applications.AttachDocument(ctx, reg.Account.ID, models.DocumentPassportPhoto, fileHeader(t, "photo.pdf", []byte("%PDF")))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = env.applications.AttachDocument(ctx, reg.Account.ID, models.DocumentOther, fileHeader(t, "script.exe", []byte("MZ")))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	env.applications.maxSize = 4
	_, err = env.applications.AttachDocument(ctx, reg.Account.ID, models.DocumentOther, fileHeader(t, "big.pdf", []byte("%PDF-1.3 large")))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = env.applications.AttachDocument(ctx, reg.Account.ID, models.DocumentOther, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestAttachDocumentChecksContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")
	id := reg.Account.ID

	_, err := env.applications.AttachDocument(ctx, id, models.DocumentPassportPhoto, fileHeader(t, "photo.png", []byte("not an image")))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = env.applications.AttachDocument(ctx, id, models.DocumentPassportPhoto, fileHeader(t, "photo.jpg", pngBytes(t)))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = env.applications.AttachDocument(ctx, id, models.DocumentResultSlip, fileHeader(t, "slip.pdf", []byte("plain text, not a pdf")))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	docs, err := env.applications.ListDocuments(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = env.applications.AttachDocument(ctx, id, models.DocumentPassportPhoto, fileHeader(t, "photo.jpeg", jpegBytes(t)))
	assert.NoError(t, err)
}

// staleApplications answers GetByAccountID with a copy read before a
// concurrent decision committed.
type staleApplications struct {
	repositories.ApplicationStore
	snapshot models.Application
}

func (s staleApplications) GetByAccountID(context.Context, int64) (*models.Application, error) {
	app := s.snapshot
	return &app, nil
}

type staleReadTx struct {
	inner    repositories.Transactor
	snapshot models.Application
}

func (tx staleReadTx) WithinTx(ctx context.Context, fn repositories.TxFn) error {
	return tx.inner.WithinTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		wrapped := *repos
		wrapped.Applications = staleApplications{ApplicationStore: repos.Applications, snapshot: tx.snapshot}
		return fn(ctx, &wrapped)
	})
}

func TestSaveDraftDoesNotOverwriteConcurrentAdmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")
	cs := env.program(t, "CS", 0)
	resp := env.submitted(t, reg.Account.ID, cs.ID)

	before, err := env.repos.Applications.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationSubmitted, before.Status)

	result, err := env.admissions.Admit(ctx, resp.ID, cs.ID, 1)
	require.NoError(t, err)

	env.applications.tx = staleReadTx{inner: env.store, snapshot: *before}
	_, err = env.applications.SaveDraft(ctx, reg.Account.ID, &dto.SaveApplicationRequest{FirstName: "Late"})
	assert.ErrorIs(t, err, apperrors.ErrApplicationLocked)

	stored, err := env.repos.Applications.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAdmitted, stored.Status)
	require.NotNil(t, stored.AdmittedProgramID)
	assert.Equal(t, cs.ID, *stored.AdmittedProgramID)
	require.NotNil(t, stored.AdmissionLetterPath)
	assert.Equal(t, result.AdmissionLetterPath, *stored.AdmissionLetterPath)
	assert.Equal(t, "Ama", stored.Details.FirstName)
}

func TestApplicationLockedAfterDecision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")
	cs := env.program(t, "CS", 0)
	resp := env.submitted(t, reg.Account.ID, cs.ID)

	_, err := env.admissions.Reject(ctx, resp.ID, 1)
	require.NoError(t, err)

	_, err = env.applications.SaveDraft(ctx, reg.Account.ID, &dto.SaveApplicationRequest{FirstName: "Late"})
	assert.ErrorIs(t, err, apperrors.ErrApplicationLocked)

	_, err = env.applications.AttachDocument(ctx, reg.Account.ID, models.DocumentOther, fileHeader(t, "late.pdf", []byte("%PDF-1.4 late")))
	assert.ErrorIs(t, err, apperrors.ErrApplicationLocked)

	_, err = env.applications.Submit(ctx, reg.Account.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestMarkPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := env.applicant(t, "ama@example.com", "ama")
	cs := env.program(t, "CS", 0)

	draft, err := env.applications.GetMine(ctx, reg.Account.ID)
	require.NoError(t, err)
	_, err = env.applications.MarkPending(ctx, draft.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	resp := env.submitted(t, reg.Account.ID, cs.ID)
	pending, err := env.applications.MarkPending(ctx, resp.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, pending.Status)

	// under review the applicant can no longer edit
	_, err = env.applications.SaveDraft(ctx, reg.Account.ID, &dto.SaveApplicationRequest{FirstName: "Late"})
	assert.ErrorIs(t, err, apperrors.ErrApplicationLocked)

	list, total, err := env.applications.List(ctx, models.ApplicationFilter{Status: models.ApplicationPending})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, resp.ID, list[0].ID)
}
