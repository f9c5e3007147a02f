package social

import (
	"net/http"

	"github.com/dropDatabas3/socialgate/internal/http/helpers"
)

// ProvidersController lista los proveedores habilitados.
type ProvidersController struct {
	service LoginService
}

func NewProvidersController(s LoginService) *ProvidersController {
	return &ProvidersController{service: s}
}

// ProvidersResponse respuesta de GET /api/auth/providers.
type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

func (c *ProvidersController) List(w http.ResponseWriter, r *http.Request) {
	names := c.service.Providers()
	if names == nil {
		names = []string{}
	}
	helpers.WriteJSON(w, http.StatusOK, ProvidersResponse{Providers: names})
}
