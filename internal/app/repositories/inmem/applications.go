package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

type applicationRepo struct{ s *Store }

func cloneApplication(a *models.Application) *models.Application {
	c := *a
	c.ExamResults.Sittings = append([]models.ExamSitting(nil), a.ExamResults.Sittings...)
	return &c
}

func (r *applicationRepo) Create(_ context.Context, app *models.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.t.applications {
		if other.AccountID == app.AccountID {
			return apperrors.NewConflictError("account already has an application")
		}
	}
	if app.Status == "" {
		app.Status = models.ApplicationDraft
	}
	now := time.Now().UTC()
	app.ID = r.s.nextID()
	app.CreatedAt, app.UpdatedAt = now, now
	r.s.t.applications[app.ID] = cloneApplication(app)
	return nil
}

func (r *applicationRepo) GetByID(_ context.Context, id int64) (*models.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.t.applications[id]
	if !ok {
		return nil, apperrors.ErrApplicationNotFound
	}
	return cloneApplication(a), nil
}

// GetForUpdate needs no row lock: WithinTx already serializes transactions.
func (r *applicationRepo) GetForUpdate(ctx context.Context, id int64) (*models.Application, error) {
	return r.GetByID(ctx, id)
}

func (r *applicationRepo) GetByAccountID(_ context.Context, accountID int64) (*models.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.t.applications {
		if a.AccountID == accountID {
			return cloneApplication(a), nil
		}
	}
	return nil, apperrors.ErrApplicationNotFound
}

func (r *applicationRepo) Update(_ context.Context, app *models.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.applications[app.ID]; !ok {
		return apperrors.ErrApplicationNotFound
	}
	for _, ref := range []*int64{app.FirstChoiceID, app.SecondChoiceID, app.ThirdChoiceID, app.AdmittedProgramID} {
		if ref == nil {
			continue
		}
		if _, ok := r.s.t.programs[*ref]; !ok {
			return apperrors.ErrProgramNotFound
		}
	}
	app.UpdatedAt = time.Now().UTC()
	r.s.t.applications[app.ID] = cloneApplication(app)
	return nil
}

func matchesProgram(a *models.Application, programID int64) bool {
	for _, ref := range []*int64{a.FirstChoiceID, a.SecondChoiceID, a.ThirdChoiceID, a.AdmittedProgramID} {
		if ref != nil && *ref == programID {
			return true
		}
	}
	return false
}

func (r *applicationRepo) List(_ context.Context, filter models.ApplicationFilter) ([]*models.Application, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*models.Application
	for _, a := range r.s.t.applications {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.ProgramID > 0 && !matchesProgram(a, filter.ProgramID) {
			continue
		}
		matched = append(matched, cloneApplication(a))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	start, end := window(len(matched), filter.Offset, filter.Limit)
	return matched[start:end], int64(len(matched)), nil
}

type documentRepo struct{ s *Store }

func (r *documentRepo) Create(_ context.Context, doc *models.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.applications[doc.ApplicationID]; !ok {
		return apperrors.ErrApplicationNotFound
	}
	doc.ID = r.s.nextID()
	doc.CreatedAt = time.Now().UTC()
	c := *doc
	r.s.t.documents[doc.ID] = &c
	return nil
}

func (r *documentRepo) ListByApplication(_ context.Context, applicationID int64) ([]*models.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var docs []*models.Document
	for _, d := range r.s.t.documents {
		if d.ApplicationID == applicationID {
			c := *d
			docs = append(docs, &c)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (r *documentRepo) DeleteByKind(_ context.Context, applicationID int64, kind models.DocumentKind) ([]*models.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var removed []*models.Document
	for id, d := range r.s.t.documents {
		if d.ApplicationID == applicationID && d.Kind == kind {
			removed = append(removed, d)
			delete(r.s.t.documents, id)
		}
	}
	return removed, nil
}
