package social

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/social"
)

// StartController maneja GET /api/auth/{provider}/login.
type StartController struct {
	service LoginService
	cfg     Config
}

func NewStartController(s LoginService, cfg Config) *StartController {
	return &StartController{service: s, cfg: cfg}
}

// Login guarda el intento, setea la cookie oauth_attempt y redirige al proveedor.
func (c *StartController) Login(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("StartController.Login"), logger.Provider(provider))

	res, err := c.service.Start(r.Context(), social.StartRequest{Provider: provider, BaseURL: c.cfg.baseURL(r)})
	if err != nil {
		log.Debug("login start failed", logger.Err(err))
		writeResult(w, r, c.cfg, failure(err))
		return
	}

	c.cfg.attemptCookie(res.Capabilities).Set(w, res.Attempt.ID)
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}
