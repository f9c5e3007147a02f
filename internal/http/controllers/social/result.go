package social

import (
	"net/http"
	"net/url"

	"github.com/dropDatabas3/socialgate/internal/http/helpers"
	"github.com/dropDatabas3/socialgate/internal/social"
)

// statusFor mapea el tipo de fallo a un status HTTP. El body sigue siendo
// {success:false, error}.
func statusFor(kind social.Kind) int {
	switch kind {
	case social.KindUnknownProvider:
		return http.StatusNotFound
	case social.KindCSRF, social.KindBadRequest, social.KindProviderDenied:
		return http.StatusBadRequest
	case social.KindTokenValidation:
		return http.StatusUnauthorized
	case social.KindProviderToken, social.KindProviderProfile:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// redirectStatus: tras un POST (form_post) 303 fuerza GET en el destino.
func redirectStatus(r *http.Request) int {
	if r.Method == http.MethodPost {
		return http.StatusSeeOther
	}
	return http.StatusFound
}

// writeResult responde el contrato {success, error} o redirige si hay destino configurado.
func writeResult(w http.ResponseWriter, r *http.Request, cfg Config, res social.Result) {
	if res.Success {
		if cfg.SuccessRedirect != "" {
			http.Redirect(w, r, cfg.SuccessRedirect, redirectStatus(r))
			return
		}
		helpers.WriteJSON(w, http.StatusOK, res)
		return
	}

	if cfg.FailureRedirect != "" {
		if u, err := url.Parse(cfg.FailureRedirect); err == nil {
			q := u.Query()
			q.Set("error", res.Error)
			u.RawQuery = q.Encode()
			http.Redirect(w, r, u.String(), redirectStatus(r))
			return
		}
	}
	helpers.WriteJSON(w, statusFor(res.Kind), res)
}

// failure convierte un error de Start en Result.
func failure(err error) social.Result {
	e := social.AsError(err)
	return social.Result{Success: false, Error: e.Message, Kind: e.Kind}
}
