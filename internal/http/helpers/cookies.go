package helpers

import (
	"net/http"
	"strings"
	"time"
)

// CookieSpec describe una cookie emitida por el servicio. Siempre HttpOnly y Path=/.
type CookieSpec struct {
	Name     string
	Domain   string
	SameSite string // lax | strict | none
	Secure   bool
	TTL      time.Duration
}

func ParseSameSite(s string) http.SameSite {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Build arma la cookie con value y Max-Age = TTL.
// SameSite=None obliga Secure (los navegadores la descartan si no).
func (c CookieSpec) Build(value string) *http.Cookie {
	ck := c.base()
	ck.Value = value
	if c.TTL > 0 {
		ck.Expires = time.Now().Add(c.TTL).UTC()
		ck.MaxAge = int(c.TTL.Seconds())
	}
	return ck
}

// Deletion arma la cookie de borrado (Max-Age<0) con los mismos atributos.
func (c CookieSpec) Deletion() *http.Cookie {
	ck := c.base()
	ck.Expires = time.Unix(0, 0).UTC()
	ck.MaxAge = -1
	return ck
}

func (c CookieSpec) base() *http.Cookie {
	ss := ParseSameSite(c.SameSite)
	ck := &http.Cookie{
		Name:     c.Name,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure || ss == http.SameSiteNoneMode,
		SameSite: ss,
	}
	if d := strings.TrimSpace(c.Domain); d != "" {
		ck.Domain = d
	}
	return ck
}

// Set escribe la cookie en la respuesta.
func (c CookieSpec) Set(w http.ResponseWriter, value string) { http.SetCookie(w, c.Build(value)) }

// Clear escribe la cookie de borrado.
func (c CookieSpec) Clear(w http.ResponseWriter) { http.SetCookie(w, c.Deletion()) }

// Read devuelve el valor de la cookie del request ("" si no está).
func (c CookieSpec) Read(r *http.Request) string {
	ck, err := r.Cookie(c.Name)
	if err != nil || ck == nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}
