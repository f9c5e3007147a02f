package providers_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialgate/internal/social/providers"
	"github.com/dropDatabas3/socialgate/internal/social/providers/google"
	"github.com/dropDatabas3/socialgate/internal/social/providers/kakao"
)

func TestResolve(t *testing.T) {
	cfg, err := providers.Resolve("kakao", providers.Settings{ClientID: "id", TokenURL: "https://override/token"}, kakao.Defaults, "https://app.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/api/auth/kakao/callback", cfg.RedirectURI)
	assert.Equal(t, "https://override/token", cfg.TokenURL)
	assert.Equal(t, kakao.Defaults.AuthURL, cfg.AuthURL)
	assert.Equal(t, kakao.Defaults.Scopes, cfg.Scopes)

	_, err = providers.Resolve("kakao", providers.Settings{}, kakao.Defaults, "https://app")
	assert.ErrorIs(t, err, providers.ErrConfig)
	_, err = providers.Resolve("kakao", providers.Settings{ClientID: "id"}, kakao.Defaults, "")
	assert.ErrorIs(t, err, providers.ErrConfig)
}

func TestRegistry(t *testing.T) {
	r := providers.NewRegistry(providers.Deps{})
	r.Register(kakao.Spec(), providers.Settings{ClientID: "k"})
	r.Register(google.Spec(), providers.Settings{ClientID: "g"})

	assert.Equal(t, []string{"google", "kakao"}, r.Names())

	p, err := r.Get("kakao", "https://app")
	require.NoError(t, err)
	assert.Equal(t, "kakao", p.Name())

	_, err = r.Get("github", "https://app")
	assert.ErrorIs(t, err, providers.ErrUnknownProvider)

	// google sin client secret
	_, err = r.Get("google", "https://app")
	assert.ErrorIs(t, err, providers.ErrConfig)
}

func TestBaseURL(t *testing.T) {
	req := httptest.NewRequest("GET", "http://internal:8080/api/auth/kakao/login", nil)
	assert.Equal(t, "http://internal:8080", providers.BaseURL(req, true))

	req.Header.Set("X-Forwarded-Proto", "https, http")
	req.Header.Set("X-Forwarded-Host", "login.example.com")
	assert.Equal(t, "https://login.example.com", providers.BaseURL(req, true))
}

func TestBaseURL_IgnoresForwardedHeadersUnlessTrusted(t *testing.T) {
	req := httptest.NewRequest("GET", "http://app.example.com/api/auth/kakao/login", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "evil.example")
	assert.Equal(t, "http://app.example.com", providers.BaseURL(req, false))
}
