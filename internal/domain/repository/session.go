package repository

import (
	"context"
	"time"
)

// SessionClaims es la foto de la cuenta al momento de emitir la sesión.
// No se refresca si la cuenta cambia después.
type SessionClaims struct {
	ID              string  `json:"id"`
	Email           *string `json:"email"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

// SessionPayload se persiste como JSON.
type SessionPayload struct {
	UserID string        `json:"userId"`
	Claims SessionClaims `json:"claims"`
}

// Session representa una sesión persistida, identificada por el valor de la cookie.
type Session struct {
	SID       string
	Payload   SessionPayload
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionRepository define operaciones para gestionar sesiones.
type SessionRepository interface {
	// Create persiste la sesión. ErrConflict si el sid ya existe.
	Create(ctx context.Context, s Session) error

	// Get devuelve la sesión vigente a now. ErrNotFound si no existe o expiró.
	Get(ctx context.Context, sid string, now time.Time) (*Session, error)

	// Delete elimina la sesión (logout). Idempotente.
	Delete(ctx context.Context, sid string) error

	// DeleteExpired elimina sesiones expiradas y retorna cuántas.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
