package jwt

import (
	"context"
	"errors"
	"fmt"
	"math"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed: no es un JWS compacto decodificable.
	ErrMalformed = errors.New("jwt: malformed token")
	// ErrSignature: firma inválida o kid desconocido.
	ErrSignature = errors.New("jwt: signature verification failed")
)

// Claims del payload. Los números llegan como float64 (encoding/json).
type Claims map[string]any

// String devuelve el claim k si es string.
func (c Claims) String(k string) string {
	s, _ := c[k].(string)
	return s
}

// Audience normaliza aud (string o array).
func (c Claims) Audience() []string {
	switch v := c["aud"].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

// Int64 devuelve un claim numérico (exp, iat). ok=false si falta o no es número.
func (c Claims) Int64(k string) (int64, bool) {
	switch v := c[k].(type) {
	case float64:
		return int64(math.Floor(v)), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// Bool acepta true o "true" (Apple manda email_verified como string).
func (c Claims) Bool(k string) bool {
	switch v := c[k].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// Decoder obtiene las claims de un token. Las implementaciones no validan
// iss/aud/exp: ese orden de chequeos es responsabilidad del llamador.
type Decoder interface {
	Decode(ctx context.Context, raw string) (Claims, error)
}

// Unverified decodifica sin verificar firma.
type Unverified struct{}

func (Unverified) Decode(_ context.Context, raw string) (Claims, error) {
	var mc jwtv5.MapClaims
	if _, _, err := jwtv5.NewParser().ParseUnverified(raw, &mc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Claims(mc), nil
}
