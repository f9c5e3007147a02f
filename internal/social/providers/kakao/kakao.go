// Package kakao implementa el proveedor Kakao (OAuth2 + user-info).
package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/socialgate/internal/domain/repository"
	"github.com/dropDatabas3/socialgate/internal/social/providers"
)

const Name = "kakao"

// Defaults endpoints públicos de Kakao.
var Defaults = providers.Settings{
	AuthURL:     "https://kauth.kakao.com/oauth/authorize",
	TokenURL:    "https://kauth.kakao.com/oauth/token",
	UserInfoURL: "https://kapi.kakao.com/v2/user/me",
	Scopes:      []string{"profile_nickname", "profile_image", "account_email"},
}

// Spec para providers.Registry.
func Spec() providers.Spec {
	return providers.Spec{Name: Name, Defaults: Defaults, Factory: New}
}

type Provider struct {
	cfg  providers.Config
	deps providers.Deps
	oc   *oauth2.Config
}

// New valida la configuración. client_secret es opcional en Kakao.
func New(cfg providers.Config, deps providers.Deps) (providers.Provider, error) {
	if cfg.TokenURL == "" || cfg.UserInfoURL == "" {
		return nil, fmt.Errorf("%w: kakao: endpoints missing", providers.ErrConfig)
	}
	return &Provider{cfg: cfg, deps: deps, oc: providers.OAuth2Config(cfg)}, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Capabilities() providers.Capabilities { return providers.Capabilities{} }

func (p *Provider) AuthorizeURL(ap providers.AuthParams) (string, error) {
	return p.oc.AuthCodeURL(ap.State), nil
}

func (p *Provider) Exchange(ctx context.Context, code, _ string) (*providers.TokenSet, error) {
	return providers.Exchange(ctx, p.deps, Name, p.oc, code)
}

// userInfo subset de /v2/user/me.
type userInfo struct {
	ID           json.Number `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
	Properties struct {
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	} `json:"properties"`
}

// FetchIdentity: nickname → FirstName, imagen → AvatarURL; Kakao no informa apellido.
// El email solo está si el usuario lo concedió.
func (p *Provider) FetchIdentity(ctx context.Context, tok *providers.TokenSet, _ providers.Callback) (*repository.Identity, error) {
	var ui userInfo
	if err := providers.GetJSON(ctx, p.deps, p.cfg.UserInfoURL, tok.AccessToken, &ui); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(ui.ID.String())
	if id == "" {
		return nil, fmt.Errorf("%w: kakao: missing id", providers.ErrProfile)
	}
	nick := ui.KakaoAccount.Profile.Nickname
	if nick == "" {
		nick = ui.Properties.Nickname
	}
	img := ui.KakaoAccount.Profile.ProfileImageURL
	if img == "" {
		img = ui.Properties.ProfileImage
	}
	return &repository.Identity{
		Provider:   Name,
		ProviderID: id,
		Email:      providers.Optional(ui.KakaoAccount.Email),
		FirstName:  providers.Optional(nick),
		AvatarURL:  providers.Optional(img),
	}, nil
}

func (p *Provider) ValidateIdentity(context.Context, *providers.TokenSet, providers.Expectations) error {
	return nil
}
