// Package session expone la sesión first-party emitida por el login social.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/socialgate/internal/audit"
	"github.com/dropDatabas3/socialgate/internal/domain/repository"
	httperrors "github.com/dropDatabas3/socialgate/internal/http/errors"
	"github.com/dropDatabas3/socialgate/internal/http/helpers"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
)

// Service es el subconjunto de social.SessionIssuer que usan los controllers.
type Service interface {
	Lookup(ctx context.Context, sid string) (*repository.Session, error)
	Revoke(ctx context.Context, sid string) error
}

// Controller maneja GET /api/auth/session y POST /api/auth/logout.
type Controller struct {
	service Service
	cookie  helpers.CookieSpec
}

func NewController(s Service, cookie helpers.CookieSpec) *Controller {
	return &Controller{service: s, cookie: cookie}
}

// SessionResponse lo que ve el front de la sesión actual.
type SessionResponse struct {
	UserID    string                   `json:"userId"`
	Claims    repository.SessionClaims `json:"claims"`
	ExpiresAt time.Time                `json:"expiresAt"`
}

// Session resuelve la cookie de sesión. 401 si falta, expiró o no existe.
func (c *Controller) Session(w http.ResponseWriter, r *http.Request) {
	sid := c.cookie.Read(r)
	if sid == "" {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}
	s, err := c.service.Lookup(r.Context(), sid)
	if err != nil {
		if repository.IsNotFound(err) {
			httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
			return
		}
		httperrors.WriteError(w, r, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, SessionResponse{
		UserID:    s.Payload.UserID,
		Claims:    s.Payload.Claims,
		ExpiresAt: s.ExpiresAt,
	})
}

// Logout borra la sesión y la cookie. Siempre 204: sin cookie no hay nada que hacer.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := c.cookie.Read(r); sid != "" {
		if err := c.service.Revoke(r.Context(), sid); err != nil {
			logger.From(r.Context()).Warn("session revoke failed", logger.Op("session.Logout"), logger.Err(err))
		}
		c.cookie.Clear(w)
		audit.Log(r.Context(), audit.EventLogout)
	}
	w.WriteHeader(http.StatusNoContent)
}
