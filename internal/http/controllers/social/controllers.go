// Package social contiene los controllers del login federado.
package social

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/socialgate/internal/http/helpers"
	"github.com/dropDatabas3/socialgate/internal/social"
	"github.com/dropDatabas3/socialgate/internal/social/providers"
)

// LoginService es lo que los controllers necesitan de social.Service.
type LoginService interface {
	Providers() []string
	Capabilities(provider, baseURL string) (providers.Capabilities, error)
	Start(ctx context.Context, req social.StartRequest) (*social.StartResult, error)
	Callback(ctx context.Context, req social.CallbackRequest) social.Result
}

// Config de cookies y redirects de los controllers.
type Config struct {
	// PublicBaseURL fija el origen del redirect_uri; vacío ⇒ se deriva del request.
	PublicBaseURL string
	// TrustForwarded habilita X-Forwarded-Proto/Host al derivar el origen.
	TrustForwarded bool
	Attempt        helpers.CookieSpec
	Session        helpers.CookieSpec
	// Con SuccessRedirect/FailureRedirect el callback redirige en lugar de responder JSON.
	SuccessRedirect string
	FailureRedirect string
}

func (c Config) baseURL(r *http.Request) string {
	if c.PublicBaseURL != "" {
		return strings.TrimRight(c.PublicBaseURL, "/")
	}
	return providers.BaseURL(r, c.TrustForwarded)
}

// attemptCookie: con form_post el callback es un POST cross-site desde el
// proveedor y SameSite=Lax no enviaría la cookie; ahí va None (+Secure).
func (c Config) attemptCookie(caps providers.Capabilities) helpers.CookieSpec {
	spec := c.Attempt
	if caps.FormPost {
		spec.SameSite = "none"
	}
	return spec
}

// Controllers agrupa los controllers del dominio social.
type Controllers struct {
	Start     *StartController
	Callback  *CallbackController
	Providers *ProvidersController
}

func NewControllers(s LoginService, cfg Config) *Controllers {
	return &Controllers{
		Start:     NewStartController(s, cfg),
		Callback:  NewCallbackController(s, cfg),
		Providers: NewProvidersController(s),
	}
}
