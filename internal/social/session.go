package social

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/socialgate/internal/domain/repository"
	"github.com/dropDatabas3/socialgate/internal/security/token"
)

// DefaultSessionTTL vida de una sesión.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionIssuer emite y consulta sesiones first-party.
type SessionIssuer struct {
	sessions repository.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionIssuer(sessions repository.SessionRepository, ttl time.Duration, now func() time.Time) *SessionIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SessionIssuer{sessions: sessions, ttl: ttl, now: now}
}

// TTL vida de las sesiones (Max-Age de la cookie).
func (i *SessionIssuer) TTL() time.Duration { return i.ttl }

// Issue crea una sesión nueva (sid = 32 bytes hex) con la foto actual de la cuenta.
// Las sesiones previas del usuario no se tocan.
func (i *SessionIssuer) Issue(ctx context.Context, acc *repository.Account) (*repository.Session, error) {
	now := i.now()
	for tries := 0; tries < 2; tries++ {
		sid, err := token.RandomHex(32)
		if err != nil {
			return nil, fmt.Errorf("session id: %w", err)
		}
		s := repository.Session{
			SID: sid,
			Payload: repository.SessionPayload{
				UserID: acc.ID,
				Claims: repository.SessionClaims{
					ID:              acc.ID,
					Email:           acc.Email,
					FirstName:       acc.FirstName,
					LastName:        acc.LastName,
					ProfileImageURL: acc.ProfileImageURL,
				},
			},
			ExpiresAt: now.Add(i.ttl),
			CreatedAt: now,
		}
		err = i.sessions.Create(ctx, s)
		if repository.IsConflict(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &s, nil
	}
	return nil, fmt.Errorf("create session: %w", repository.ErrConflict)
}

// Lookup devuelve la sesión vigente de un sid.
func (i *SessionIssuer) Lookup(ctx context.Context, sid string) (*repository.Session, error) {
	if sid == "" {
		return nil, repository.ErrNotFound
	}
	return i.sessions.Get(ctx, sid, i.now())
}

// Revoke elimina la sesión (logout).
func (i *SessionIssuer) Revoke(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	return i.sessions.Delete(ctx, sid)
}

// Purge elimina sesiones expiradas.
func (i *SessionIssuer) Purge(ctx context.Context) (int64, error) {
	return i.sessions.DeleteExpired(ctx, i.now())
}
