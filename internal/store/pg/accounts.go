package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialgate/internal/domain/repository"
)

const accountCols = `id, email, first_name, last_name, profile_image_url, provider, provider_id, created_at, updated_at`

// errRetry: otra transacción ganó la carrera (unique violation); se reintenta el resolve.
var errRetry = errors.New("pg: concurrent resolve, retry")

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo { return &AccountRepo{pool: pool} }

var _ repository.AccountRepository = (*AccountRepo)(nil)

func scanAccount(row pgx.Row) (*repository.Account, error) {
	var a repository.Account
	err := row.Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.ProfileImageURL,
		&a.Provider, &a.ProviderID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*repository.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = $1`, id))
}

func (r *AccountRepo) FindByProvider(ctx context.Context, provider, providerID string) (*repository.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE provider = $1 AND provider_id = $2`, provider, providerID))
}

func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*repository.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE email = $1`, email))
}

// Resolve corre la resolución en una transacción con filas bloqueadas (FOR UPDATE).
// Si una transacción concurrente inserta la misma identidad o email primero, la
// violación de unicidad se traduce en un segundo intento que encuentra esa fila.
func (r *AccountRepo) Resolve(ctx context.Context, in repository.ResolveInput) (*repository.Account, repository.ResolveOutcome, error) {
	if in.Identity.Provider == "" || in.Identity.ProviderID == "" {
		return nil, "", fmt.Errorf("resolve account: %w", repository.ErrInvalidInput)
	}
	for attempt := 0; attempt < 3; attempt++ {
		acc, outcome, err := r.resolveOnce(ctx, in)
		if errors.Is(err, errRetry) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("resolve account: %w", err)
		}
		return acc, outcome, nil
	}
	return nil, "", fmt.Errorf("resolve account: %w", repository.ErrConflict)
}

func (r *AccountRepo) resolveOnce(ctx context.Context, in repository.ResolveInput) (*repository.Account, repository.ResolveOutcome, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback(ctx)

	id := in.Identity

	// 1. Por (provider, provider_id)
	acc, err := scanAccount(tx.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE provider = $1 AND provider_id = $2 FOR UPDATE`,
		id.Provider, id.ProviderID))
	switch {
	case err == nil:
		if err := r.mergeEmail(ctx, tx, acc, id.Email); err != nil {
			return nil, "", err
		}
		acc.Merge(id)
		acc.UpdatedAt = in.Now
		if err := updateAccount(ctx, tx, acc); err != nil {
			return nil, "", err
		}
		return acc, repository.OutcomeMatched, commit(ctx, tx)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, "", err
	}

	// 2. Por email: la identidad más reciente gana
	if id.Email != nil && in.LinkByEmail {
		acc, err := scanAccount(tx.QueryRow(ctx,
			`SELECT `+accountCols+` FROM accounts WHERE email = $1 FOR UPDATE`, *id.Email))
		switch {
		case err == nil:
			acc.Provider = id.Provider
			acc.ProviderID = id.ProviderID
			acc.Merge(id)
			acc.UpdatedAt = in.Now
			if err := updateAccount(ctx, tx, acc); err != nil {
				return nil, "", err
			}
			return acc, repository.OutcomeLinked, commit(ctx, tx)
		case !errors.Is(err, repository.ErrNotFound):
			return nil, "", err
		}
	}

	// 3. Alta
	acc = &repository.Account{
		ID:         uuid.NewString(),
		Provider:   id.Provider,
		ProviderID: id.ProviderID,
		CreatedAt:  in.Now,
		UpdatedAt:  in.Now,
	}
	if err := r.mergeEmail(ctx, tx, acc, id.Email); err != nil {
		return nil, "", err
	}
	acc.Merge(id)
	tag, err := tx.Exec(ctx, `
		INSERT INTO accounts (id, email, first_name, last_name, profile_image_url, provider, provider_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT DO NOTHING`,
		acc.ID, acc.Email, acc.FirstName, acc.LastName, acc.ProfileImageURL,
		acc.Provider, acc.ProviderID, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		return nil, "", err
	}
	if tag.RowsAffected() == 0 {
		return nil, "", errRetry
	}
	return acc, repository.OutcomeCreated, commit(ctx, tx)
}

// mergeEmail asigna el email solo si ninguna otra cuenta lo tiene.
func (r *AccountRepo) mergeEmail(ctx context.Context, tx pgx.Tx, acc *repository.Account, email *string) error {
	if email == nil || (acc.Email != nil && *acc.Email == *email) {
		return nil
	}
	var owner string
	err := tx.QueryRow(ctx, `SELECT id FROM accounts WHERE email = $1`, *email).Scan(&owner)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		acc.Email = email
		return nil
	case err != nil:
		return err
	}
	return nil
}

func updateAccount(ctx context.Context, tx pgx.Tx, a *repository.Account) error {
	_, err := tx.Exec(ctx, `
		UPDATE accounts
		SET email = $2, first_name = $3, last_name = $4, profile_image_url = $5,
		    provider = $6, provider_id = $7, updated_at = $8
		WHERE id = $1`,
		a.ID, a.Email, a.FirstName, a.LastName, a.ProfileImageURL, a.Provider, a.ProviderID, a.UpdatedAt)
	if isUniqueViolation(err) {
		return errRetry
	}
	return err
}

func commit(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if isUniqueViolation(err) {
		return errRetry
	}
	return err
}
