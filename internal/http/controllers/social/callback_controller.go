package social

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/socialgate/internal/http/errors"
	"github.com/dropDatabas3/socialgate/internal/http/helpers"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/social"
	"github.com/dropDatabas3/socialgate/internal/social/providers"
)

// CallbackController maneja el retorno desde el proveedor.
type CallbackController struct {
	service LoginService
	cfg     Config
}

func NewCallbackController(s LoginService, cfg Config) *CallbackController {
	return &CallbackController{service: s, cfg: cfg}
}

// Callback maneja GET /api/auth/{provider}/callback?code&state[&error].
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c.finish(w, r, providers.Callback{
		Code:  strings.TrimSpace(q.Get("code")),
		State: strings.TrimSpace(q.Get("state")),
	}, strings.TrimSpace(q.Get("error")))
}

// CallbackForm maneja POST /api/auth/{provider}/callback (response_mode=form_post).
// Solo proveedores con FormPost lo aceptan.
func (c *CallbackController) CallbackForm(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	caps, err := c.service.Capabilities(provider, c.cfg.baseURL(r))
	if err != nil {
		writeResult(w, r, c.cfg, failure(err))
		return
	}
	if !caps.FormPost {
		w.Header().Set("Allow", http.MethodGet)
		httperrors.WriteError(w, r, httperrors.ErrMethodNotAllowed)
		return
	}
	if err := helpers.ParseForm(w, r); err != nil {
		logger.From(r.Context()).Debug("callback form rejected", logger.Provider(provider), logger.Err(err))
		writeResult(w, r, c.cfg, social.Result{Success: false, Error: social.MsgInvalidForm, Kind: social.KindBadRequest})
		return
	}
	c.finish(w, r, providers.Callback{
		Code:    strings.TrimSpace(r.PostForm.Get("code")),
		State:   strings.TrimSpace(r.PostForm.Get("state")),
		IDToken: strings.TrimSpace(r.PostForm.Get("id_token")),
		User:    r.PostForm.Get("user"),
	}, strings.TrimSpace(r.PostForm.Get("error")))
}

func (c *CallbackController) finish(w http.ResponseWriter, r *http.Request, cb providers.Callback, idpError string) {
	provider := chi.URLParam(r, "provider")
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("CallbackController.finish"), logger.Provider(provider))

	baseURL := c.cfg.baseURL(r)
	attemptCookie := c.cfg.Attempt
	if caps, err := c.service.Capabilities(provider, baseURL); err == nil {
		attemptCookie = c.cfg.attemptCookie(caps)
	}

	res := c.service.Callback(r.Context(), social.CallbackRequest{
		Provider:      provider,
		BaseURL:       baseURL,
		AttemptID:     attemptCookie.Read(r),
		Callback:      cb,
		ProviderError: idpError,
	})

	if res.AttemptConsumed {
		attemptCookie.Clear(w)
	}
	if res.Success && res.Session != nil {
		c.cfg.Session.Set(w, res.Session.SID)
		log.Debug("session cookie set", logger.AccountID(res.Account.ID))
	}
	writeResult(w, r, c.cfg, res)
}
