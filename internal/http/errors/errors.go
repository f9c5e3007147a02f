package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/socialgate/internal/observability/logger"
)

// errorResponse es lo único que se serializa al cliente.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe el AppError como JSON. Errores genéricos salen como 500.
// La causa (Err) solo va al log del request.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)

	if appErr.Err != nil && r != nil {
		log := logger.From(r.Context())
		if appErr.HTTPStatus >= 500 {
			log.Error("request failed", logger.String("code", appErr.Code), logger.Err(appErr.Err))
		} else {
			log.Debug("request rejected", logger.String("code", appErr.Code), logger.Err(appErr.Err))
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}
