// Package router define las rutas HTTP del servicio sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/socialgate/internal/http/controllers/health"
	"github.com/dropDatabas3/socialgate/internal/http/controllers/session"
	"github.com/dropDatabas3/socialgate/internal/http/controllers/social"
	httperrors "github.com/dropDatabas3/socialgate/internal/http/errors"
	mw "github.com/dropDatabas3/socialgate/internal/http/middlewares"
	"github.com/dropDatabas3/socialgate/internal/rate"
)

// Deps dependencias del router.
type Deps struct {
	Social  *social.Controllers
	Session *session.Controller
	Health  *health.Controller
	// Metrics handler de /metrics (opcional).
	Metrics http.Handler
	// Instrument middleware de métricas HTTP (opcional, corre dentro de chi).
	Instrument mw.Middleware
	// RateLimiter opcional: por IP+path en login y callback.
	RateLimiter rate.Limiter
}

// New arma el router. Orden de middlewares globales:
// recover -> request id -> logging -> métricas -> security headers.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.WithRecover(), mw.WithRequestID(), mw.WithLogging())
	if d.Instrument != nil {
		r.Use(d.Instrument)
	}
	r.Use(mw.WithSecurityHeaders())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, r, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, r, httperrors.ErrMethodNotAllowed)
	})

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(mw.WithNoStore())

		r.Get("/providers", d.Social.Providers.List)
		r.Get("/session", d.Session.Session)
		r.Post("/logout", d.Session.Logout)

		r.Group(func(r chi.Router) {
			if limit := mw.WithRateLimit(d.RateLimiter, mw.IPPathRateKey); limit != nil {
				r.Use(limit)
			}
			r.Get("/{provider}/login", d.Social.Start.Login)
			r.Get("/{provider}/callback", d.Social.Callback.Callback)
			r.Post("/{provider}/callback", d.Social.Callback.CallbackForm)
		})
	})

	return r
}
