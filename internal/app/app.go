// Package app arma el grafo de dependencias del servicio a partir de la config.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/socialgate/internal/cache"
	"github.com/dropDatabas3/socialgate/internal/config"
	httpserver "github.com/dropDatabas3/socialgate/internal/http"
	"github.com/dropDatabas3/socialgate/internal/http/controllers/health"
	sessionctrl "github.com/dropDatabas3/socialgate/internal/http/controllers/session"
	socialctrl "github.com/dropDatabas3/socialgate/internal/http/controllers/social"
	"github.com/dropDatabas3/socialgate/internal/http/helpers"
	"github.com/dropDatabas3/socialgate/internal/http/router"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/rate"
	"github.com/dropDatabas3/socialgate/internal/social"
	"github.com/dropDatabas3/socialgate/internal/social/attempt"
	"github.com/dropDatabas3/socialgate/internal/social/providers"
	"github.com/dropDatabas3/socialgate/internal/social/providers/apple"
	"github.com/dropDatabas3/socialgate/internal/social/providers/google"
	"github.com/dropDatabas3/socialgate/internal/social/providers/kakao"
	"github.com/dropDatabas3/socialgate/internal/store"
)

// App es el servicio armado.
type App struct {
	Config   *config.Config
	Store    *store.Store
	Cache    cache.Client
	Service  *social.Service
	Registry *prometheus.Registry
	Handler  http.Handler
}

// New abre store y cache, registra los proveedores habilitados y arma el router.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.L().With(logger.Component("app"))

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cc, err := cache.New(ctx, cache.Config{
		Driver:   cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	reg := NewProviderRegistry(cfg, &http.Client{Timeout: cfg.HTTP.Timeout})
	log.Info("providers enabled", logger.String("names", fmt.Sprint(reg.Names())))

	issuer := social.NewSessionIssuer(st.Sessions, cfg.Auth.Session.TTL, nil)
	svc := social.NewService(social.Deps{
		Registry: reg,
		Guard:    attempt.NewGuard(cc, cfg.Auth.Attempt.TTL),
		Resolver: social.NewResolver(st.Accounts, social.LinkPolicy(cfg.Auth.LinkPolicy), nil),
		Sessions: issuer,
	})

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	social.RegisterMetrics(promReg)
	metricsHandler, err := httpserver.RegisterMetrics(httpserver.MetricsConfig{Registry: promReg, Pool: st.Pool})
	if err != nil {
		_ = cc.Close()
		st.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	sessionCookie := helpers.CookieSpec{
		Name:     cfg.Auth.Session.CookieName,
		Domain:   cfg.Auth.Session.Domain,
		SameSite: cfg.Auth.Session.SameSite,
		Secure:   cfg.SecureCookies(),
		TTL:      cfg.Auth.Session.TTL,
	}
	attemptCookie := sessionCookie
	attemptCookie.Name = cfg.Auth.Attempt.CookieName
	attemptCookie.TTL = cfg.Auth.Attempt.TTL

	handler := router.New(router.Deps{
		Social: socialctrl.NewControllers(svc, socialctrl.Config{
			PublicBaseURL:   cfg.Server.PublicBaseURL,
			TrustForwarded:  cfg.Server.TrustForwarded,
			Attempt:         attemptCookie,
			Session:         sessionCookie,
			SuccessRedirect: cfg.Auth.SuccessRedirect,
			FailureRedirect: cfg.Auth.FailureRedirect,
		}),
		Session:     sessionctrl.NewController(issuer, sessionCookie),
		Health:      health.NewController(map[string]health.Pinger{"store": st, "cache": cc}),
		Metrics:     metricsHandler,
		Instrument:  httpserver.WithMetrics,
		RateLimiter: newLimiter(cfg, cc),
	})

	return &App{Config: cfg, Store: st, Cache: cc, Service: svc, Registry: promReg, Handler: handler}, nil
}

// Close libera cache y store.
func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		logger.L().Warn("cache close failed", logger.Err(err))
	}
	a.Store.Close()
}

// NewProviderRegistry registra los proveedores habilitados en la config.
// Faltantes de credenciales se reportan recién al usar el proveedor (configuration error).
func NewProviderRegistry(cfg *config.Config, client *http.Client) *providers.Registry {
	reg := providers.NewRegistry(providers.Deps{HTTPClient: client})
	p := cfg.Providers
	if p.Kakao.Enabled {
		reg.Register(kakao.Spec(), oauthSettings(p.Kakao))
	}
	if p.Google.Enabled {
		reg.Register(google.Spec(), oauthSettings(p.Google))
	}
	if p.Apple.Enabled {
		reg.Register(apple.Spec(), AppleSettings(cfg))
	}
	return reg
}

func oauthSettings(p config.OAuthProvider) providers.Settings {
	return providers.Settings{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Scopes:       p.Scopes,
		AuthURL:      p.AuthURL,
		TokenURL:     p.TokenURL,
		UserInfoURL:  p.UserInfoURL,
	}
}

// AppleSettings mapea la sección apple de la config.
func AppleSettings(cfg *config.Config) providers.Settings {
	a := cfg.Providers.Apple
	return providers.Settings{
		ClientID:        a.ClientID,
		Scopes:          a.Scopes,
		AuthURL:         a.AuthURL,
		TokenURL:        a.TokenURL,
		JWKSURL:         a.JWKSURL,
		TeamID:          a.TeamID,
		KeyID:           a.KeyID,
		PrivateKey:      a.PrivateKey,
		VerifySignature: cfg.VerifyAppleSignature(),
	}
}

// newLimiter: redis si el cache es redis (compartido entre réplicas), si no en memoria.
func newLimiter(cfg *config.Config, cc cache.Client) rate.Limiter {
	if !cfg.Rate.Enabled {
		return nil
	}
	if rc, ok := cc.(interface{ Redis() *redis.Client }); ok {
		return rate.NewRedisLimiter(rc.Redis(), cfg.Cache.Redis.Prefix+"rl:", cfg.Rate.Limit, cfg.Rate.Window)
	}
	return rate.NewMemoryLimiter(cfg.Rate.Limit, cfg.Rate.Window)
}
