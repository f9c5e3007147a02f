package repository

import (
	"context"
	"time"
)

// Identity es la identidad normalizada que devuelve un proveedor.
// Los punteros nil significan "el proveedor no lo informó".
type Identity struct {
	Provider   string
	ProviderID string
	Email      *string
	FirstName  *string
	LastName   *string
	AvatarURL  *string
}

// Account es la cuenta local. Provider/ProviderID reflejan el último proveedor
// con el que se inició sesión.
type Account struct {
	ID              string    `json:"id"`
	Email           *string   `json:"email"`
	FirstName       *string   `json:"first_name"`
	LastName        *string   `json:"last_name"`
	ProfileImageURL *string   `json:"profile_image_url"`
	Provider        string    `json:"provider"`
	ProviderID      string    `json:"provider_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ResolveOutcome indica qué rama de resolución se tomó.
type ResolveOutcome string

const (
	// OutcomeMatched: se encontró por (provider, provider_id).
	OutcomeMatched ResolveOutcome = "matched"
	// OutcomeLinked: se encontró por email y se pisó provider/provider_id.
	OutcomeLinked ResolveOutcome = "linked"
	// OutcomeCreated: cuenta nueva.
	OutcomeCreated ResolveOutcome = "created"
)

// ResolveInput parámetros de AccountRepository.Resolve.
type ResolveInput struct {
	Identity Identity
	// LinkByEmail habilita el paso 2 (buscar por email y re-vincular).
	LinkByEmail bool
	Now         time.Time
}

// AccountRepository define operaciones sobre cuentas.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*Account, error)

	// FindByProvider busca por (provider, provider_id). ErrNotFound si no existe.
	FindByProvider(ctx context.Context, provider, providerID string) (*Account, error)

	// FindByEmail busca por email exacto. ErrNotFound si no existe.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Resolve ejecuta atómicamente:
	//  1. buscar por (provider, provider_id) y mergear campos no nulos
	//  2. si no, buscar por email, pisar provider/provider_id y mergear
	//  3. si no, crear la cuenta
	// Dos llamadas concurrentes para la misma identidad terminan en una sola cuenta.
	Resolve(ctx context.Context, in ResolveInput) (*Account, ResolveOutcome, error)
}

// Merge aplica la regla "el valor nuevo no nulo gana" sobre a.
// No toca Email; el llamador decide si el email es asignable.
func (a *Account) Merge(id Identity) {
	if id.FirstName != nil {
		a.FirstName = id.FirstName
	}
	if id.LastName != nil {
		a.LastName = id.LastName
	}
	if id.AvatarURL != nil {
		a.ProfileImageURL = id.AvatarURL
	}
}
