package providers

import (
	"fmt"
	"net/http"
	"strings"
)

// Settings configuración estática de un proveedor (config.yaml / env).
// Endpoints vacíos toman el default del adaptador.
type Settings struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	JWKSURL      string

	// Apple
	TeamID          string
	KeyID           string
	PrivateKey      string
	VerifySignature bool
}

// Config configuración resuelta para un request.
type Config struct {
	Settings
	RedirectURI string
}

// CallbackPath ruta del callback de un proveedor.
func CallbackPath(name string) string { return "/api/auth/" + name + "/callback" }

// Resolve completa defaults y arma redirect_uri = baseURL + /api/auth/{name}/callback.
// Solo valida presencia; los adaptadores validan sus campos propios.
func Resolve(name string, s, defaults Settings, baseURL string) (Config, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return Config{}, fmt.Errorf("%w: %s: public base url unknown", ErrConfig, name)
	}
	if strings.TrimSpace(s.ClientID) == "" {
		return Config{}, fmt.Errorf("%w: %s: client id missing", ErrConfig, name)
	}
	if s.AuthURL == "" {
		s.AuthURL = defaults.AuthURL
	}
	if s.TokenURL == "" {
		s.TokenURL = defaults.TokenURL
	}
	if s.UserInfoURL == "" {
		s.UserInfoURL = defaults.UserInfoURL
	}
	if s.JWKSURL == "" {
		s.JWKSURL = defaults.JWKSURL
	}
	if len(s.Scopes) == 0 {
		s.Scopes = defaults.Scopes
	}
	return Config{Settings: s, RedirectURI: baseURL + CallbackPath(name)}, nil
}

// BaseURL deriva scheme://host del request. X-Forwarded-Proto/Host solo se
// respetan con trustForwarded (detrás de un proxy propio); si no, cualquier
// cliente podría elegir el host del redirect_uri.
func BaseURL(r *http.Request, trustForwarded bool) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if trustForwarded {
		if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
			scheme = strings.TrimSpace(strings.Split(p, ",")[0])
		}
		if h := r.Header.Get("X-Forwarded-Host"); h != "" {
			host = strings.TrimSpace(strings.Split(h, ",")[0])
		}
	}
	return scheme + "://" + host
}
