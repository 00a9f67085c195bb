package inmem

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

type accountRepo struct{ s *Store }

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}

func (r *accountRepo) uniqueLocked(a *models.Account) error {
	for _, other := range r.s.t.accounts {
		if other.ID == a.ID {
			continue
		}
		if strings.EqualFold(other.Email, a.Email) {
			return apperrors.ErrEmailAlreadyExists
		}
		if strings.EqualFold(other.Username, a.Username) {
			return apperrors.ErrUsernameAlreadyExists
		}
		if a.SystemID != nil && other.SystemID != nil && strings.EqualFold(*other.SystemID, *a.SystemID) {
			return apperrors.ErrDuplicateSystemID
		}
	}
	return nil
}

func (r *accountRepo) Create(_ context.Context, a *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.uniqueLocked(a); err != nil {
		return err
	}
	now := time.Now().UTC()
	a.ID = r.s.nextID()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.t.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id int64) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.t.accounts[id]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *accountRepo) GetByIdentifier(_ context.Context, identifier string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ident := strings.TrimSpace(identifier)
	for _, a := range r.s.t.accounts {
		if strings.EqualFold(a.Email, ident) || (a.SystemID != nil && strings.EqualFold(*a.SystemID, ident)) {
			return cloneAccount(a), nil
		}
	}
	return nil, apperrors.ErrAccountNotFound
}

func (r *accountRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.t.accounts {
		if strings.EqualFold(a.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *accountRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.t.accounts {
		if strings.EqualFold(a.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (r *accountRepo) Promote(_ context.Context, id int64, systemID string, programID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.t.accounts[id]
	if !ok {
		return apperrors.ErrAccountNotFound
	}
	if a.SystemID != nil {
		return apperrors.NewConflictError("account already holds a system ID")
	}
	next := cloneAccount(a)
	next.Role = models.RoleStudent
	next.SystemID = &systemID
	next.AdmittedProgramID = &programID
	next.UpdatedAt = time.Now().UTC()
	if err := r.uniqueLocked(next); err != nil {
		return err
	}
	r.s.t.accounts[id] = next
	return nil
}

func (r *accountRepo) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.t.accounts[id]
	if !ok {
		return apperrors.ErrAccountNotFound
	}
	next := cloneAccount(a)
	next.LastLoginAt = &at
	r.s.t.accounts[id] = next
	return nil
}

func (r *accountRepo) List(_ context.Context, filter models.AccountFilter) ([]*models.Account, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []*models.Account
	for _, a := range r.s.t.accounts {
		if filter.Role != "" && a.Role != filter.Role {
			continue
		}
		if search != "" {
			hay := strings.ToLower(a.Email + " " + a.Username + " " + a.FullName())
			if !strings.Contains(hay, search) {
				continue
			}
		}
		matched = append(matched, cloneAccount(a))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	start, end := window(len(matched), filter.Offset, filter.Limit)
	return matched[start:end], int64(len(matched)), nil
}
