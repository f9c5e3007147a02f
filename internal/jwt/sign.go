// Package jwt firma y decodifica JWTs sobre golang-jwt/v5.
//
// Sign cubre las client assertions (ES256); Decoder cubre los id_token de los
// proveedores, con o sin verificación de firma contra un JWKS.
package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnsupportedAlg = errors.New("jwt: unsupported signing algorithm")
	ErrInvalidKey     = errors.New("jwt: invalid private key")
)

// Sign firma claims con alg. Los campos de header extra (kid, typ) se copian;
// alg siempre lo fija el método de firma.
func Sign(header map[string]any, claims jwtv5.MapClaims, key crypto.PrivateKey, alg string) (string, error) {
	method := jwtv5.GetSigningMethod(alg)
	if method == nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}
	tok := jwtv5.NewWithClaims(method, claims)
	for k, v := range header {
		if k == "alg" {
			continue
		}
		tok.Header[k] = v
	}
	s, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("jwt: sign %s: %w", alg, err)
	}
	return s, nil
}

// ParseECPrivateKey lee una clave EC en PEM (PKCS#8 o SEC1). Acepta "\n"
// escapados, habitual cuando la clave viene de una variable de entorno.
func ParseECPrivateKey(pemText string) (*ecdsa.PrivateKey, error) {
	pemText = strings.TrimSpace(strings.ReplaceAll(pemText, `\n`, "\n"))
	if pemText == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	k, err := jwtv5.ParseECPrivateKeyFromPEM([]byte(pemText))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return k, nil
}
