// Package attempt guarda el estado de un login en curso del lado servidor.
//
// El navegador solo recibe el id opaco del intento (cookie oauth_attempt);
// state, code_verifier y nonce nunca salen del cache.
package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/socialgate/internal/cache"
	"github.com/dropDatabas3/socialgate/internal/security/token"
)

// ErrInvalidState: intento ausente, expirado, de otro proveedor, state distinto
// o sin el material que el proveedor requiere.
var ErrInvalidState = errors.New("invalid state")

// DefaultTTL vida de un intento.
const DefaultTTL = 600 * time.Second

const keyPrefix = "attempt:"

// Attempt es el material CSRF/replay de un login.
type Attempt struct {
	ID           string    `json:"-"`
	Provider     string    `json:"provider"`
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier,omitempty"`
	Nonce        string    `json:"nonce,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Options qué material generar además del state.
type Options struct {
	PKCE  bool
	Nonce bool
}

type Guard struct {
	cache cache.Client
	ttl   time.Duration
	now   func() time.Time
}

func NewGuard(c cache.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{cache: c, ttl: ttl, now: time.Now}
}

// TTL vida configurada (Max-Age de la cookie).
func (g *Guard) TTL() time.Duration { return g.ttl }

// Start genera state (16 bytes hex), verifier PKCE (32 bytes base64url) y nonce
// (16 bytes hex) según opts, y persiste el intento.
func (g *Guard) Start(ctx context.Context, provider string, opts Options) (*Attempt, error) {
	a := &Attempt{Provider: provider, CreatedAt: g.now()}
	var err error
	if a.ID, err = token.RandomBase64URL(32); err != nil {
		return nil, fmt.Errorf("attempt id: %w", err)
	}
	if a.State, err = token.RandomHex(16); err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	if opts.PKCE {
		if a.CodeVerifier, err = token.RandomBase64URL(32); err != nil {
			return nil, fmt.Errorf("code verifier: %w", err)
		}
	}
	if opts.Nonce {
		if a.Nonce, err = token.RandomHex(16); err != nil {
			return nil, fmt.Errorf("nonce: %w", err)
		}
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	if err := g.cache.Set(ctx, keyPrefix+a.ID, string(b), g.ttl); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}
	return a, nil
}

// Discard borra un intento que no llegó a usarse (ej. falló armar la URL del proveedor).
func (g *Guard) Discard(ctx context.Context, attemptID string) error {
	if attemptID == "" {
		return nil
	}
	return g.cache.Delete(ctx, keyPrefix+attemptID)
}

// Validate compara el state recibido con el guardado y consume el intento.
// Ante cualquier fallo devuelve ErrInvalidState y deja el intento expirar.
// Solo un Validate exitoso por intento: el segundo ve ErrInvalidState.
func (g *Guard) Validate(ctx context.Context, attemptID, provider, state string, opts Options) (*Attempt, error) {
	if attemptID == "" || state == "" {
		return nil, ErrInvalidState
	}
	raw, err := g.cache.Get(ctx, keyPrefix+attemptID)
	if cache.IsNotFound(err) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	var a Attempt
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, ErrInvalidState
	}
	a.ID = attemptID

	switch {
	case a.Provider != provider,
		!token.Equal(a.State, state),
		opts.PKCE && a.CodeVerifier == "",
		opts.Nonce && a.Nonce == "":
		return nil, ErrInvalidState
	}

	if _, err := g.cache.Take(ctx, keyPrefix+attemptID); err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("consume attempt: %w", err)
	}
	return &a, nil
}
