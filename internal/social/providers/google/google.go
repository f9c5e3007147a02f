// Package google implementa el proveedor Google (OIDC con PKCE, user-info).
package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/socialgate/internal/domain/repository"
	"github.com/dropDatabas3/socialgate/internal/social/providers"
)

const Name = "google"

var Defaults = providers.Settings{
	AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL:    "https://oauth2.googleapis.com/token",
	UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	Scopes:      []string{"openid", "email", "profile"},
}

func Spec() providers.Spec {
	return providers.Spec{Name: Name, Defaults: Defaults, Factory: New}
}

type Provider struct {
	cfg  providers.Config
	deps providers.Deps
	oc   *oauth2.Config
}

func New(cfg providers.Config, deps providers.Deps) (providers.Provider, error) {
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google: client secret missing", providers.ErrConfig)
	}
	if cfg.TokenURL == "" || cfg.UserInfoURL == "" {
		return nil, fmt.Errorf("%w: google: endpoints missing", providers.ErrConfig)
	}
	return &Provider{cfg: cfg, deps: deps, oc: providers.OAuth2Config(cfg)}, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{PKCE: true}
}

// AuthorizeURL agrega code_challenge (S256), access_type=offline y prompt=consent.
func (p *Provider) AuthorizeURL(ap providers.AuthParams) (string, error) {
	if ap.CodeVerifier == "" {
		return "", fmt.Errorf("%w: google: code verifier required", providers.ErrConfig)
	}
	return p.oc.AuthCodeURL(ap.State,
		oauth2.S256ChallengeOption(ap.CodeVerifier),
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

func (p *Provider) Exchange(ctx context.Context, code, codeVerifier string) (*providers.TokenSet, error) {
	return providers.Exchange(ctx, p.deps, Name, p.oc, code, oauth2.VerifierOption(codeVerifier))
}

type userInfo struct {
	ID         string `json:"id"`
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
}

func (p *Provider) FetchIdentity(ctx context.Context, tok *providers.TokenSet, _ providers.Callback) (*repository.Identity, error) {
	var ui userInfo
	if err := providers.GetJSON(ctx, p.deps, p.cfg.UserInfoURL, tok.AccessToken, &ui); err != nil {
		return nil, err
	}
	id := ui.ID
	if id == "" {
		id = ui.Sub
	}
	if id == "" {
		return nil, fmt.Errorf("%w: google: missing id", providers.ErrProfile)
	}
	first := ui.GivenName
	if first == "" {
		first = ui.Name
	}
	return &repository.Identity{
		Provider:   Name,
		ProviderID: id,
		Email:      providers.Optional(ui.Email),
		FirstName:  providers.Optional(first),
		LastName:   providers.Optional(ui.FamilyName),
		AvatarURL:  providers.Optional(ui.Picture),
	}, nil
}

func (p *Provider) ValidateIdentity(context.Context, *providers.TokenSet, providers.Expectations) error {
	return nil
}
