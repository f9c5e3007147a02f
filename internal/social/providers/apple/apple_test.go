package apple

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialgate/internal/jwt"
	"github.com/dropDatabas3/socialgate/internal/social/providers"
)

const clientID = "com.example.web"

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(k)
	require.NoError(t, err)
	return k, string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func newProvider(t *testing.T, tokenURL string) (*Provider, *ecdsa.PrivateKey) {
	t.Helper()
	k, p := newKey(t)
	cfg, err := providers.Resolve(Name, providers.Settings{
		ClientID: clientID, TeamID: "TEAM123", KeyID: "KEY456",
		PrivateKey: strings.ReplaceAll(p, "\n", `\n`), TokenURL: tokenURL,
	}, Defaults, "https://app.example.com")
	require.NoError(t, err)
	prov, err := New(cfg, providers.Deps{HTTPClient: http.DefaultClient, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return prov.(*Provider), k
}

// idToken firma un id_token de prueba (la firma no se verifica con VerifySignature=false).
func idToken(t *testing.T, claims jwtv5.MapClaims) string {
	t.Helper()
	k, _ := newKey(t)
	s, err := jwt.Sign(nil, claims, k, "ES256")
	require.NoError(t, err)
	return s
}

func validClaims() jwtv5.MapClaims {
	return jwtv5.MapClaims{
		"iss":   Audience,
		"aud":   clientID,
		"sub":   "001234.abcd",
		"email": "a@b.com",
		"nonce": "N",
		"exp":   fixedNow.Add(10 * time.Minute).Unix(),
	}
}

func TestNew_ConfigErrors(t *testing.T) {
	cfg := providers.Config{Settings: providers.Settings{ClientID: clientID, TeamID: "T", KeyID: "K"}}
	_, err := New(cfg, providers.Deps{})
	assert.ErrorIs(t, err, providers.ErrConfig)

	cfg.PrivateKey = "not a pem"
	_, err = New(cfg, providers.Deps{})
	assert.ErrorIs(t, err, providers.ErrConfig)
}

func TestClientAssertion(t *testing.T) {
	k, _ := newKey(t)
	raw, err := ClientAssertion("TEAM123", clientID, "KEY456", k, fixedNow)
	require.NoError(t, err)

	tok, err := jwtv5.Parse(raw, func(*jwtv5.Token) (any, error) { return &k.PublicKey, nil },
		jwtv5.WithValidMethods([]string{"ES256"}), jwtv5.WithTimeFunc(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	assert.Equal(t, "KEY456", tok.Header["kid"])
	assert.Equal(t, "JWT", tok.Header["typ"])

	c := tok.Claims.(jwtv5.MapClaims)
	assert.Equal(t, "TEAM123", c["iss"])
	assert.Equal(t, clientID, c["sub"])
	assert.Equal(t, Audience, c["aud"])
	assert.EqualValues(t, fixedNow.Unix(), c["iat"])
	assert.EqualValues(t, fixedNow.Unix()+15777000, c["exp"])

	_, err = ClientAssertion("", clientID, "KEY456", k, fixedNow)
	assert.ErrorIs(t, err, providers.ErrConfig)
}

func TestAuthorizeURL(t *testing.T) {
	p, _ := newProvider(t, "")
	raw, err := p.AuthorizeURL(providers.AuthParams{State: "S", Nonce: "N"})
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "appleid.apple.com", u.Host)

	q := u.Query()
	assert.Equal(t, clientID, q.Get("client_id"))
	assert.Equal(t, "https://app.example.com/api/auth/apple/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code id_token", q.Get("response_type"))
	assert.Equal(t, "form_post", q.Get("response_mode"))
	assert.Equal(t, "name email", q.Get("scope"))
	assert.Equal(t, "S", q.Get("state"))
	assert.Equal(t, "N", q.Get("nonce"))

	_, err = p.AuthorizeURL(providers.AuthParams{State: "S"})
	assert.ErrorIs(t, err, providers.ErrConfig)
}

func TestExchange_SendsSignedClientSecret(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","id_token":"idt"}`))
	}))
	defer srv.Close()

	p, k := newProvider(t, srv.URL)
	ts, err := p.Exchange(context.Background(), "CODE", "")
	require.NoError(t, err)
	assert.Equal(t, "at", ts.AccessToken)
	assert.Equal(t, "idt", ts.IDToken)

	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "CODE", form.Get("code"))
	assert.Equal(t, clientID, form.Get("client_id"))
	assert.Equal(t, "https://app.example.com/api/auth/apple/callback", form.Get("redirect_uri"))
	_, err = jwtv5.Parse(form.Get("client_secret"), func(*jwtv5.Token) (any, error) { return &k.PublicKey, nil },
		jwtv5.WithValidMethods([]string{"ES256"}), jwtv5.WithTimeFunc(func() time.Time { return fixedNow }))
	assert.NoError(t, err)
}

func TestExchange_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http 400": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		},
		"no id_token": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at"}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			p, _ := newProvider(t, srv.URL)
			_, err := p.Exchange(context.Background(), "CODE", "")
			assert.ErrorIs(t, err, providers.ErrToken)
		})
	}
}

func TestFetchIdentity(t *testing.T) {
	p, _ := newProvider(t, "")
	formTok := idToken(t, validClaims())
	other := validClaims()
	other["sub"] = "from-token-endpoint"
	endpointTok := idToken(t, other)

	user, _ := json.Marshal(map[string]any{"name": map[string]string{"firstName": "Jane", "lastName": "Doe"}})
	ts := &providers.TokenSet{IDToken: endpointTok}
	id, err := p.FetchIdentity(context.Background(), ts, providers.Callback{IDToken: formTok, User: string(user)})
	require.NoError(t, err)
	assert.Equal(t, "001234.abcd", id.ProviderID)
	assert.Equal(t, "a@b.com", *id.Email)
	assert.Equal(t, "Jane", *id.FirstName)
	assert.Equal(t, "Doe", *id.LastName)
	assert.Nil(t, id.AvatarURL)
	assert.NotNil(t, ts.Claims)

	// Sin id_token en el form se usa el del token endpoint; "user" inválido no es error.
	id, err = p.FetchIdentity(context.Background(), &providers.TokenSet{IDToken: endpointTok}, providers.Callback{User: "{nope"})
	require.NoError(t, err)
	assert.Equal(t, "from-token-endpoint", id.ProviderID)
	assert.Nil(t, id.FirstName)
	assert.Nil(t, id.LastName)

	_, err = p.FetchIdentity(context.Background(), &providers.TokenSet{}, providers.Callback{IDToken: "garbage"})
	assert.ErrorIs(t, err, providers.ErrInvalidIDToken)
}

func TestFetchIdentity_EmailVerified(t *testing.T) {
	p, _ := newProvider(t, "")
	for _, tc := range []struct {
		verified any
		want     bool
	}{
		{"true", true},
		{true, true},
		{"false", false},
		{false, false},
	} {
		c := validClaims()
		c["email_verified"] = tc.verified
		id, err := p.FetchIdentity(context.Background(), &providers.TokenSet{}, providers.Callback{IDToken: idToken(t, c)})
		require.NoError(t, err)
		if tc.want {
			require.NotNil(t, id.Email, "email_verified=%v", tc.verified)
			assert.Equal(t, "a@b.com", *id.Email)
		} else {
			assert.Nil(t, id.Email, "email_verified=%v", tc.verified)
		}
	}
}

func TestValidateIdentity_OrderedChecks(t *testing.T) {
	p, _ := newProvider(t, "")

	cases := []struct {
		name   string
		mutate func(jwtv5.MapClaims)
		nonce  string
		want   error
	}{
		{"valid", func(jwtv5.MapClaims) {}, "N", nil},
		{"no saved nonce skips nonce check", func(c jwtv5.MapClaims) { c["nonce"] = "other" }, "", nil},
		{"issuer first", func(c jwtv5.MapClaims) { c["iss"] = "https://evil"; c["aud"] = "x" }, "N", providers.ErrInvalidIssuer},
		{"audience", func(c jwtv5.MapClaims) { c["aud"] = "com.other.app"; c["exp"] = 0 }, "N", providers.ErrInvalidAudience},
		{"audience array", func(c jwtv5.MapClaims) { c["aud"] = []string{"x", clientID} }, "N", nil},
		{"nonce", func(c jwtv5.MapClaims) { c["nonce"] = "M" }, "N", providers.ErrNonceMismatch},
		{"nonce missing in token", func(c jwtv5.MapClaims) { delete(c, "nonce") }, "N", providers.ErrNonceMismatch},
		{"expired", func(c jwtv5.MapClaims) { c["exp"] = fixedNow.Add(-time.Second).Unix() }, "N", providers.ErrTokenExpired},
		{"exp equal now", func(c jwtv5.MapClaims) { c["exp"] = fixedNow.Unix() }, "N", providers.ErrTokenExpired},
		{"exp missing", func(c jwtv5.MapClaims) { delete(c, "exp") }, "N", providers.ErrTokenExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validClaims()
			tc.mutate(c)
			ts := &providers.TokenSet{}
			_, err := p.FetchIdentity(context.Background(), ts, providers.Callback{IDToken: idToken(t, c)})
			require.NoError(t, err)

			err = p.ValidateIdentity(context.Background(), ts, providers.Expectations{Nonce: tc.nonce})
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}
