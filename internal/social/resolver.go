package social

import (
	"context"
	"time"

	"github.com/dropDatabas3/socialgate/internal/domain/repository"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
)

// LinkPolicy decide qué pasa cuando una identidad nueva comparte email con una cuenta existente.
type LinkPolicy string

const (
	// LinkReplace: la cuenta pasa a apuntar al último proveedor usado.
	LinkReplace LinkPolicy = "replace"
	// LinkNone: nunca vincular por email.
	LinkNone LinkPolicy = "none"
)

// Resolver encuentra, vincula o crea la cuenta de una identidad.
type Resolver struct {
	accounts repository.AccountRepository
	policy   LinkPolicy
	now      func() time.Time
}

func NewResolver(accounts repository.AccountRepository, policy LinkPolicy, now func() time.Time) *Resolver {
	if policy == "" {
		policy = LinkReplace
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{accounts: accounts, policy: policy, now: now}
}

func (r *Resolver) Resolve(ctx context.Context, id repository.Identity) (*repository.Account, repository.ResolveOutcome, error) {
	acc, outcome, err := r.accounts.Resolve(ctx, repository.ResolveInput{
		Identity:    id,
		LinkByEmail: r.policy == LinkReplace,
		Now:         r.now(),
	})
	if err != nil {
		return nil, "", err
	}
	log := logger.From(ctx).With(logger.Component("social.resolver"), logger.AccountID(acc.ID), logger.Provider(id.Provider))
	switch outcome {
	case repository.OutcomeLinked:
		var email string
		if id.Email != nil {
			email = *id.Email
		}
		log.Info("account relinked by email", logger.Email(email))
	case repository.OutcomeCreated:
		log.Info("account created")
	default:
		log.Debug("account matched")
	}
	return acc, outcome, nil
}
