// Package providers define el contrato de los adaptadores de proveedores de
// identidad y el registro que los construye por request.
package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/socialgate/internal/domain/repository"
	"github.com/dropDatabas3/socialgate/internal/jwt"
)

// Errores por etapa. Los adaptadores envuelven la causa con %w; el mensaje del
// sentinel es lo único que llega al cliente.
var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrConfig          = errors.New("configuration error")
	ErrToken           = errors.New("failed to get token")
	ErrProfile         = errors.New("failed to get user info")

	ErrInvalidIDToken  = errors.New("invalid id token")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
	ErrNonceMismatch   = errors.New("nonce mismatch")
	ErrTokenExpired    = errors.New("token expired")
)

// Capabilities describe qué material guarda el intento de login para este proveedor.
type Capabilities struct {
	PKCE  bool // code_verifier + code_challenge S256
	Nonce bool // nonce en la URL y en el id_token
	// FormPost: el callback llega como POST cross-site (response_mode=form_post).
	FormPost bool
}

// AuthParams material del intento de login para armar la URL de autorización.
type AuthParams struct {
	State        string
	CodeVerifier string
	Nonce        string
}

// TokenSet respuesta del token endpoint.
type TokenSet struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	IDToken      string
	Expiry       time.Time

	// Claims del id_token, completadas por FetchIdentity cuando el proveedor usa id_token.
	Claims jwt.Claims
}

// Callback datos crudos recibidos en el callback (query o form).
type Callback struct {
	Code    string
	State   string
	IDToken string // form_post
	User    string // JSON {"name":{"firstName","lastName"}}, solo primer login en Apple
}

// Expectations valores guardados en el intento contra los que se valida la identidad.
type Expectations struct {
	Nonce string
}

// Provider es el adaptador de un proveedor.
type Provider interface {
	Name() string
	Capabilities() Capabilities

	// AuthorizeURL arma la URL de redirección al proveedor.
	AuthorizeURL(p AuthParams) (string, error)

	// Exchange canjea el code por tokens. codeVerifier vacío si no hay PKCE.
	Exchange(ctx context.Context, code, codeVerifier string) (*TokenSet, error)

	// FetchIdentity normaliza la identidad (user-info o id_token).
	FetchIdentity(ctx context.Context, tok *TokenSet, cb Callback) (*repository.Identity, error)

	// ValidateIdentity aplica los chequeos de claims; no-op para proveedores sin id_token.
	ValidateIdentity(ctx context.Context, tok *TokenSet, exp Expectations) error
}

// Deps compartidas por los adaptadores.
type Deps struct {
	HTTPClient *http.Client
	Now        func() time.Time
	// JWKS devuelve el verificador (cacheado) para una URL de JWKS.
	JWKS func(url string) jwt.Decoder
}

// Clock devuelve la hora actual según Deps.
func (d Deps) Clock() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Optional convierte "" en nil.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
