// Package apple implementa Sign in with Apple: id_token, callback form_post,
// client assertion ES256 y nonce.
package apple

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"slices"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/socialgate/internal/domain/repository"
	"github.com/dropDatabas3/socialgate/internal/jwt"
	"github.com/dropDatabas3/socialgate/internal/social/providers"
)

const Name = "apple"

var Defaults = providers.Settings{
	AuthURL:  "https://appleid.apple.com/auth/authorize",
	TokenURL: "https://appleid.apple.com/auth/token",
	JWKSURL:  "https://appleid.apple.com/auth/keys",
	Scopes:   []string{"name", "email"},
}

func Spec() providers.Spec {
	return providers.Spec{Name: Name, Defaults: Defaults, Factory: New}
}

type Provider struct {
	cfg     providers.Config
	deps    providers.Deps
	key     *ecdsa.PrivateKey
	decoder jwt.Decoder
}

// New falla con ErrConfig si falta team/key id o la clave privada no parsea,
// antes de cualquier llamada saliente.
func New(cfg providers.Config, deps providers.Deps) (providers.Provider, error) {
	if cfg.TeamID == "" || cfg.KeyID == "" || cfg.PrivateKey == "" {
		return nil, fmt.Errorf("%w: apple: team id, key id and private key are required", providers.ErrConfig)
	}
	key, err := jwt.ParseECPrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: apple: %v", providers.ErrConfig, err)
	}
	var dec jwt.Decoder = jwt.Unverified{}
	if cfg.VerifySignature {
		if cfg.JWKSURL == "" || deps.JWKS == nil {
			return nil, fmt.Errorf("%w: apple: jwks url required to verify signatures", providers.ErrConfig)
		}
		dec = deps.JWKS(cfg.JWKSURL)
	}
	return &Provider{cfg: cfg, deps: deps, key: key, decoder: dec}, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{Nonce: true, FormPost: true}
}

func (p *Provider) oauth2Config(secret string) *oauth2.Config {
	oc := providers.OAuth2Config(p.cfg)
	oc.ClientSecret = secret
	return oc
}

// AuthorizeURL pide code + id_token por form_post, con nonce.
func (p *Provider) AuthorizeURL(ap providers.AuthParams) (string, error) {
	if ap.Nonce == "" {
		return "", fmt.Errorf("%w: apple: nonce required", providers.ErrConfig)
	}
	return p.oauth2Config("").AuthCodeURL(ap.State,
		oauth2.SetAuthURLParam("response_type", "code id_token"),
		oauth2.SetAuthURLParam("response_mode", "form_post"),
		oauth2.SetAuthURLParam("nonce", ap.Nonce),
	), nil
}

// Exchange firma una client assertion nueva y canjea el code. La respuesta debe traer id_token.
func (p *Provider) Exchange(ctx context.Context, code, _ string) (*providers.TokenSet, error) {
	secret, err := ClientAssertion(p.cfg.TeamID, p.cfg.ClientID, p.cfg.KeyID, p.key, p.deps.Clock())
	if err != nil {
		return nil, err
	}
	ts, err := providers.Exchange(ctx, p.deps, Name, p.oauth2Config(secret), code)
	if err != nil {
		return nil, err
	}
	if ts.IDToken == "" {
		return nil, fmt.Errorf("%w: apple: token response without id_token", providers.ErrToken)
	}
	return ts, nil
}

// userForm campo "user" del form_post (solo en el primer consentimiento).
type userForm struct {
	Name struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"name"`
}

// FetchIdentity decodifica el id_token (el del form; si no vino, el del token
// endpoint). sub → ProviderID, email del token; nombres del campo "user".
// Un "user" ausente o inválido deja los nombres en nil.
func (p *Provider) FetchIdentity(ctx context.Context, tok *providers.TokenSet, cb providers.Callback) (*repository.Identity, error) {
	raw := cb.IDToken
	if raw == "" {
		raw = tok.IDToken
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: apple: id_token missing", providers.ErrInvalidIDToken)
	}
	claims, err := p.decoder.Decode(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", providers.ErrInvalidIDToken, err)
	}
	sub := claims.String("sub")
	if sub == "" {
		return nil, fmt.Errorf("%w: apple: sub missing", providers.ErrInvalidIDToken)
	}
	tok.IDToken = raw
	tok.Claims = claims

	id := &repository.Identity{
		Provider:   Name,
		ProviderID: sub,
		Email:      providers.Optional(claims.String("email")),
	}
	// email_verified=false explícito: el email no sirve para vincular cuentas.
	if _, ok := claims["email_verified"]; ok && !claims.Bool("email_verified") {
		id.Email = nil
	}
	if cb.User != "" {
		var u userForm
		if err := json.Unmarshal([]byte(cb.User), &u); err == nil {
			id.FirstName = providers.Optional(u.Name.FirstName)
			id.LastName = providers.Optional(u.Name.LastName)
		}
	}
	return id, nil
}

// ValidateIdentity chequea en orden iss, aud, nonce (si hay uno guardado) y exp.
// Gana el primer fallo.
func (p *Provider) ValidateIdentity(_ context.Context, tok *providers.TokenSet, exp providers.Expectations) error {
	c := tok.Claims
	if c == nil {
		return providers.ErrInvalidIDToken
	}
	if c.String("iss") != Audience {
		return providers.ErrInvalidIssuer
	}
	if !slices.Contains(c.Audience(), p.cfg.ClientID) {
		return providers.ErrInvalidAudience
	}
	if exp.Nonce != "" && c.String("nonce") != exp.Nonce {
		return providers.ErrNonceMismatch
	}
	e, ok := c.Int64("exp")
	if !ok || e*1000 <= p.deps.Clock().UnixMilli() {
		return providers.ErrTokenExpired
	}
	return nil
}
