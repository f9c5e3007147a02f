package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/socialgate/internal/security/secretbox"
)

// Prefijo de valores cifrados con secretbox (ver `socialctl secret encrypt`).
const encPrefix = "enc:"

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// PublicBaseURL se usa para construir redirect_uri. Vacío ⇒ se deriva del
		// request (obligatorio en prod).
		PublicBaseURL string `yaml:"public_base_url"`
		// TrustForwarded: respetar X-Forwarded-Proto/Host (solo detrás de un proxy propio).
		TrustForwarded bool          `yaml:"trust_forwarded"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int32         `yaml:"max_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
			// AutoMigrate corre las migraciones embebidas al arrancar.
			AutoMigrate bool `yaml:"auto_migrate"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	HTTP struct {
		// Timeout de las llamadas salientes a los proveedores.
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"http"`

	Rate struct {
		Enabled bool          `yaml:"enabled"`
		Limit   int           `yaml:"limit"`
		Window  time.Duration `yaml:"window"`
	} `yaml:"rate"`

	Auth struct {
		Session struct {
			CookieName string `yaml:"cookie_name"`
			Domain     string `yaml:"domain"`
			SameSite   string `yaml:"samesite"`
			// Secure default true; dev sobre http plano puede desactivarlo (nunca en prod).
			Secure *bool         `yaml:"secure"`
			TTL    time.Duration `yaml:"ttl"`
		} `yaml:"session"`
		Attempt struct {
			CookieName string        `yaml:"cookie_name"`
			TTL        time.Duration `yaml:"ttl"`
		} `yaml:"attempt"`
		// replace (default): la identidad más reciente pisa provider/provider_id de la cuenta con igual email.
		// none: nunca vincular por email.
		LinkPolicy      string `yaml:"link_policy"`
		SuccessRedirect string `yaml:"success_redirect"`
		FailureRedirect string `yaml:"failure_redirect"`
	} `yaml:"auth"`

	Providers struct {
		Kakao  OAuthProvider `yaml:"kakao"`
		Google OAuthProvider `yaml:"google"`
		Apple  AppleProvider `yaml:"apple"`
	} `yaml:"providers"`
}

// OAuthProvider: credenciales y endpoints (overridables para staging/tests).
type OAuthProvider struct {
	Enabled      bool     `yaml:"enabled"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url"`
}

type AppleProvider struct {
	Enabled  bool   `yaml:"enabled"`
	ClientID string `yaml:"client_id"` // Services ID
	TeamID   string `yaml:"team_id"`
	KeyID    string `yaml:"key_id"`
	// PrivateKey en PEM; se aceptan "\n" escapados.
	PrivateKey string   `yaml:"private_key"`
	Scopes     []string `yaml:"scopes"`
	AuthURL    string   `yaml:"auth_url"`
	TokenURL   string   `yaml:"token_url"`
	JWKSURL    string   `yaml:"jwks_url"`
	// VerifySignature verifica la firma del id_token contra el JWKS de Apple.
	VerifySignature *bool `yaml:"verify_signature"`
}

// Load lee el YAML (path vacío ⇒ solo defaults + env), aplica defaults y overrides por env.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	c.ApplyDefaults()
	if err := c.openSecrets(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyDefaults completa valores vacíos. Exportado para tests que arman Config a mano.
func (c *Config) ApplyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "socialgate:"
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 10 * time.Second
	}
	if c.Rate.Limit == 0 {
		c.Rate.Limit = 30
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}
	if c.Auth.Session.CookieName == "" {
		c.Auth.Session.CookieName = "sid"
	}
	if c.Auth.Session.SameSite == "" {
		c.Auth.Session.SameSite = "Lax"
	}
	if c.Auth.Session.TTL == 0 {
		c.Auth.Session.TTL = 30 * 24 * time.Hour
	}
	if c.Auth.Attempt.CookieName == "" {
		c.Auth.Attempt.CookieName = "oauth_attempt"
	}
	if c.Auth.Attempt.TTL == 0 {
		c.Auth.Attempt.TTL = 600 * time.Second
	}
	if c.Auth.LinkPolicy == "" {
		c.Auth.LinkPolicy = "replace"
	}
	if c.Providers.Apple.VerifySignature == nil {
		v := true
		c.Providers.Apple.VerifySignature = &v
	}
	// En prod las cookies siempre Secure.
	if c.Auth.Session.Secure == nil || strings.EqualFold(c.App.Env, "prod") {
		v := true
		c.Auth.Session.Secure = &v
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported (memory|postgres)", c.Storage.Driver))
	}
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q not supported (memory|redis)", c.Cache.Kind))
	}
	switch c.Auth.LinkPolicy {
	case "replace", "none":
	default:
		errs = append(errs, fmt.Errorf("auth.link_policy %q not supported (replace|none)", c.Auth.LinkPolicy))
	}
	if u := c.Server.PublicBaseURL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		errs = append(errs, fmt.Errorf("server.public_base_url must be absolute, got %q", u))
	}
	if strings.EqualFold(c.App.Env, "prod") && c.Server.PublicBaseURL == "" {
		errs = append(errs, errors.New("server.public_base_url is required in prod"))
	}
	return errors.Join(errs...)
}

// SecureCookies: default true.
func (c *Config) SecureCookies() bool {
	return c.Auth.Session.Secure == nil || *c.Auth.Session.Secure
}

// VerifyAppleSignature: default true.
func (c *Config) VerifyAppleSignature() bool {
	return c.Providers.Apple.VerifySignature == nil || *c.Providers.Apple.VerifySignature
}

// openSecrets descifra los valores con prefijo "enc:".
func (c *Config) openSecrets() error {
	fields := []*string{
		&c.Providers.Kakao.ClientSecret,
		&c.Providers.Google.ClientSecret,
		&c.Providers.Apple.PrivateKey,
		&c.Cache.Redis.Password,
		&c.Storage.DSN,
	}
	var box *secretbox.Box
	for _, f := range fields {
		if !strings.HasPrefix(*f, encPrefix) {
			continue
		}
		if box == nil {
			b, err := secretbox.FromEnv()
			if err != nil {
				return fmt.Errorf("config: encrypted value present: %w", err)
			}
			box = b
		}
		plain, err := box.Open(strings.TrimPrefix(*f, encPrefix))
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		*f = plain
	}
	return nil
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("PUBLIC_BASE_URL"); ok {
		c.Server.PublicBaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := getEnvBool("TRUST_FORWARDED_HEADERS"); ok {
		c.Server.TrustForwarded = v
	}

	// STORAGE / CACHE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.Postgres.AutoMigrate = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}

	// HTTP / RATE
	if v, ok := getEnvDur("HTTP_TIMEOUT"); ok {
		c.HTTP.Timeout = v
	}
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LIMIT"); ok {
		c.Rate.Limit = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}

	// AUTH
	if v, ok := getEnvStr("AUTH_SESSION_COOKIE_NAME"); ok {
		c.Auth.Session.CookieName = v
	}
	if v, ok := getEnvStr("AUTH_SESSION_DOMAIN"); ok {
		c.Auth.Session.Domain = v
	}
	if v, ok := getEnvBool("AUTH_SESSION_SECURE"); ok {
		c.Auth.Session.Secure = &v
	}
	if v, ok := getEnvDur("AUTH_SESSION_TTL"); ok {
		c.Auth.Session.TTL = v
	}
	if v, ok := getEnvStr("AUTH_LINK_POLICY"); ok {
		c.Auth.LinkPolicy = strings.ToLower(v)
	}
	if v, ok := getEnvStr("AUTH_SUCCESS_REDIRECT"); ok {
		c.Auth.SuccessRedirect = v
	}
	if v, ok := getEnvStr("AUTH_FAILURE_REDIRECT"); ok {
		c.Auth.FailureRedirect = v
	}

	// PROVIDERS (habilitar un proveedor al setear su client id)
	if v, ok := getEnvStr("KAKAO_CLIENT_ID"); ok {
		c.Providers.Kakao.ClientID, c.Providers.Kakao.Enabled = v, true
	}
	if v, ok := getEnvStr("KAKAO_CLIENT_SECRET"); ok {
		c.Providers.Kakao.ClientSecret = v
	}
	if v, ok := getEnvCSV("KAKAO_SCOPES"); ok {
		c.Providers.Kakao.Scopes = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_ID"); ok {
		c.Providers.Google.ClientID, c.Providers.Google.Enabled = v, true
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_SECRET"); ok {
		c.Providers.Google.ClientSecret = v
	}
	if v, ok := getEnvStr("APPLE_CLIENT_ID"); ok {
		c.Providers.Apple.ClientID, c.Providers.Apple.Enabled = v, true
	}
	if v, ok := getEnvStr("APPLE_TEAM_ID"); ok {
		c.Providers.Apple.TeamID = v
	}
	if v, ok := getEnvStr("APPLE_KEY_ID"); ok {
		c.Providers.Apple.KeyID = v
	}
	if v, ok := getEnvStr("APPLE_PRIVATE_KEY"); ok {
		c.Providers.Apple.PrivateKey = v
	}
	if v, ok := getEnvBool("APPLE_VERIFY_SIGNATURE"); ok {
		c.Providers.Apple.VerifySignature = &v
	}
}
