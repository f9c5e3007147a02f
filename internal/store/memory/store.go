// Package memory implementa los repositorios en memoria (dev y tests).
// Mismas semánticas que store/pg, incluida la unicidad de email y (provider, provider_id).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/socialgate/internal/domain/repository"
)

type Store struct {
	Accounts *AccountRepo
	Sessions *SessionRepo
}

func New() *Store {
	return &Store{Accounts: NewAccountRepo(), Sessions: NewSessionRepo()}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// AccountRepo guarda cuentas detrás de un único mutex; Resolve es atómico.
type AccountRepo struct {
	mu    sync.Mutex
	byID  map[string]*repository.Account
	newID func() string
}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{byID: map[string]*repository.Account{}, newID: uuid.NewString}
}

var _ repository.AccountRepository = (*AccountRepo)(nil)

func clone(a *repository.Account) *repository.Account {
	c := *a
	return &c
}

func (r *AccountRepo) GetByID(_ context.Context, id string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		return clone(a), nil
	}
	return nil, repository.ErrNotFound
}

func (r *AccountRepo) FindByProvider(_ context.Context, provider, providerID string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.findByProvider(provider, providerID); a != nil {
		return clone(a), nil
	}
	return nil, repository.ErrNotFound
}

func (r *AccountRepo) FindByEmail(_ context.Context, email string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.findByEmail(email); a != nil {
		return clone(a), nil
	}
	return nil, repository.ErrNotFound
}

// Len cantidad de cuentas (tests).
func (r *AccountRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *AccountRepo) findByProvider(provider, providerID string) *repository.Account {
	for _, a := range r.byID {
		if a.Provider == provider && a.ProviderID == providerID {
			return a
		}
	}
	return nil
}

func (r *AccountRepo) findByEmail(email string) *repository.Account {
	for _, a := range r.byID {
		if a.Email != nil && *a.Email == email {
			return a
		}
	}
	return nil
}

// assignEmail asigna el email solo si ninguna otra cuenta lo tiene.
func (r *AccountRepo) assignEmail(a *repository.Account, email *string) {
	if email == nil {
		return
	}
	if owner := r.findByEmail(*email); owner == nil || owner.ID == a.ID {
		e := *email
		a.Email = &e
	}
}

func (r *AccountRepo) Resolve(_ context.Context, in repository.ResolveInput) (*repository.Account, repository.ResolveOutcome, error) {
	id := in.Identity
	if id.Provider == "" || id.ProviderID == "" {
		return nil, "", repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if a := r.findByProvider(id.Provider, id.ProviderID); a != nil {
		r.assignEmail(a, id.Email)
		a.Merge(id)
		a.UpdatedAt = in.Now
		return clone(a), repository.OutcomeMatched, nil
	}

	if id.Email != nil && in.LinkByEmail {
		if a := r.findByEmail(*id.Email); a != nil {
			a.Provider = id.Provider
			a.ProviderID = id.ProviderID
			a.Merge(id)
			a.UpdatedAt = in.Now
			return clone(a), repository.OutcomeLinked, nil
		}
	}

	a := &repository.Account{
		ID:         r.newID(),
		Provider:   id.Provider,
		ProviderID: id.ProviderID,
		CreatedAt:  in.Now,
		UpdatedAt:  in.Now,
	}
	r.assignEmail(a, id.Email)
	a.Merge(id)
	r.byID[a.ID] = a
	return clone(a), repository.OutcomeCreated, nil
}

// SessionRepo guarda sesiones por sid.
type SessionRepo struct {
	mu    sync.RWMutex
	bySID map[string]repository.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{bySID: map[string]repository.Session{}}
}

var _ repository.SessionRepository = (*SessionRepo)(nil)

func (r *SessionRepo) Create(_ context.Context, s repository.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[s.SID]; ok {
		return repository.ErrConflict
	}
	r.bySID[s.SID] = s
	return nil
}

func (r *SessionRepo) Get(_ context.Context, sid string, now time.Time) (*repository.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.bySID[sid]
	if !ok || !s.ExpiresAt.After(now) {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *SessionRepo) Delete(_ context.Context, sid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bySID, sid)
	return nil
}

func (r *SessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for sid, s := range r.bySID {
		if !s.ExpiresAt.After(now) {
			delete(r.bySID, sid)
			n++
		}
	}
	return n, nil
}

// Len cantidad de sesiones (tests).
func (r *SessionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}
