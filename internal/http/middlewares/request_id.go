package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/socialgate/internal/security/token"
)

const requestIDHeader = "X-Request-ID"

// WithRequestID propaga X-Request-ID del cliente (si es razonable) o genera uno.
// Se expone en la respuesta y queda en el contexto.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if rid == "" || len(rid) > 128 {
				rid, _ = token.RandomHex(16)
			}
			w.Header().Set(requestIDHeader, rid)
			next.ServeHTTP(w, r.WithContext(setRequestID(r.Context(), rid)))
		})
	}
}
