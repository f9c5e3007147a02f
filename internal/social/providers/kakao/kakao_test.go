package kakao

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialgate/internal/social/providers"
)

func newProvider(t *testing.T, srvURL string) providers.Provider {
	t.Helper()
	s := providers.Settings{ClientID: "kakao-client"}
	if srvURL != "" {
		s.TokenURL = srvURL + "/oauth/token"
		s.UserInfoURL = srvURL + "/v2/user/me"
	}
	cfg, err := providers.Resolve(Name, s, Defaults, "https://app.example.com/")
	require.NoError(t, err)
	p, err := New(cfg, providers.Deps{HTTPClient: http.DefaultClient})
	require.NoError(t, err)
	return p
}

func TestAuthorizeURL(t *testing.T) {
	raw, err := newProvider(t, "").AuthorizeURL(providers.AuthParams{State: "abc"})
	require.NoError(t, err)
	u, _ := url.Parse(raw)
	q := u.Query()
	assert.Equal(t, "kauth.kakao.com", u.Host)
	assert.Equal(t, "kakao-client", q.Get("client_id"))
	assert.Equal(t, "https://app.example.com/api/auth/kakao/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "abc", q.Get("state"))
	assert.NotEmpty(t, q.Get("scope"))
	assert.Empty(t, q.Get("code_challenge"))
	assert.Empty(t, q.Get("nonce"))
}

func TestExchangeAndFetchIdentity(t *testing.T) {
	var tokenForm url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		tokenForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"kat","token_type":"bearer","expires_in":21599}`))
	})
	mux.HandleFunc("/v2/user/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer kat" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":123456789,"kakao_account":{"profile":{"nickname":"민지","profile_image_url":"https://k.kakaocdn.net/p.jpg"}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newProvider(t, srv.URL)
	ts, err := p.Exchange(context.Background(), "C0DE", "")
	require.NoError(t, err)
	assert.Equal(t, "kat", ts.AccessToken)
	assert.Equal(t, "authorization_code", tokenForm.Get("grant_type"))
	assert.Equal(t, "C0DE", tokenForm.Get("code"))
	assert.Equal(t, "kakao-client", tokenForm.Get("client_id"))
	_, hasSecret := tokenForm["client_secret"]
	assert.False(t, hasSecret)

	id, err := p.FetchIdentity(context.Background(), ts, providers.Callback{})
	require.NoError(t, err)
	assert.Equal(t, "kakao", id.Provider)
	assert.Equal(t, "123456789", id.ProviderID)
	assert.Equal(t, "민지", *id.FirstName)
	assert.Equal(t, "https://k.kakaocdn.net/p.jpg", *id.AvatarURL)
	assert.Nil(t, id.LastName)
	assert.Nil(t, id.Email)
}

func TestFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
	})
	mux.HandleFunc("/v2/user/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newProvider(t, srv.URL)
	_, err := p.Exchange(context.Background(), "C0DE", "")
	assert.ErrorIs(t, err, providers.ErrToken)

	_, err = p.FetchIdentity(context.Background(), &providers.TokenSet{AccessToken: "x"}, providers.Callback{})
	assert.ErrorIs(t, err, providers.ErrProfile)
}
