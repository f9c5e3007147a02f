package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialgate/internal/config"
)

func testConfig() *config.Config {
	var cfg config.Config
	cfg.Providers.Kakao.Enabled = true
	cfg.Providers.Kakao.ClientID = "kakao-id"
	cfg.Rate.Enabled = true
	cfg.ApplyDefaults()
	return &cfg
}

func TestNew_WiresMemoryBackends(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Equal(t, "memory", a.Store.Driver)
	assert.Equal(t, []string{"kakao"}, a.Service.Providers())

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/providers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Providers []string `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"kakao"}, body.Providers)

	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/kakao/login", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/api/auth/{provider}/login",status="302"}`)
}

func TestNew_CookiesSecureUnlessDevOptsOut(t *testing.T) {
	attemptCookie := func(cfg *config.Config) *http.Cookie {
		a, err := New(context.Background(), cfg)
		require.NoError(t, err)
		t.Cleanup(a.Close)
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/kakao/login", nil))
		require.Equal(t, http.StatusFound, rec.Code)
		for _, c := range rec.Result().Cookies() {
			if c.Name == cfg.Auth.Attempt.CookieName {
				return c
			}
		}
		t.Fatalf("attempt cookie %q not set", cfg.Auth.Attempt.CookieName)
		return nil
	}

	cfg := testConfig()
	assert.True(t, attemptCookie(cfg).Secure)

	off := false
	cfg = testConfig()
	cfg.Auth.Session.Secure = &off
	assert.False(t, attemptCookie(cfg).Secure)
}

func TestAppleSettings_VerifySignatureDefault(t *testing.T) {
	cfg := testConfig()
	assert.True(t, AppleSettings(cfg).VerifySignature)

	off := false
	cfg.Providers.Apple.VerifySignature = &off
	assert.False(t, AppleSettings(cfg).VerifySignature)
}

func TestNewLimiter(t *testing.T) {
	cfg := testConfig()
	assert.NotNil(t, newLimiter(cfg, nil))
	cfg.Rate.Enabled = false
	assert.Nil(t, newLimiter(cfg, nil))
}
