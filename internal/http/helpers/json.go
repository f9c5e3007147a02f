package helpers

import (
	"encoding/json"
	"net/http"
)

// maxFormBytes límite del body en los callbacks form_post.
const maxFormBytes = 64 << 10

// WriteJSON escribe una respuesta JSON.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ParseForm lee un body application/x-www-form-urlencoded con tope de tamaño.
func ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.ParseForm()
}
