// Package health contiene los chequeos de liveness y readiness.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/socialgate/internal/http/helpers"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
)

// Pinger es una dependencia chequeable (store, cache).
type Pinger interface {
	Ping(ctx context.Context) error
}

const checkTimeout = 2 * time.Second

type Controller struct {
	checks map[string]Pinger
}

func NewController(checks map[string]Pinger) *Controller {
	return &Controller{checks: checks}
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Healthz liveness: el proceso responde.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz readiness: 503 si alguna dependencia no responde.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := readyResponse{Status: "ready", Checks: map[string]string{}}
	status := http.StatusOK
	for name, p := range c.checks {
		if err := p.Ping(ctx); err != nil {
			logger.From(r.Context()).Warn("readiness check failed", logger.Component(name), logger.Err(err))
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}
	helpers.WriteJSON(w, status, resp)
}
