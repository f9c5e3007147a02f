package apple

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/socialgate/internal/jwt"
	"github.com/dropDatabas3/socialgate/internal/social/providers"
)

// Audience de la client assertion y issuer esperado en los id_token.
const Audience = "https://appleid.apple.com"

// AssertionTTL vigencia de la client assertion (~6 meses, el máximo que acepta Apple).
const AssertionTTL = 15777000 * time.Second

// ClientAssertion firma el client_secret ES256 que exige el token endpoint:
// header {alg:ES256, kid, typ:JWT}, payload {iss:team, iat, exp, aud, sub:client}.
func ClientAssertion(teamID, clientID, keyID string, key *ecdsa.PrivateKey, now time.Time) (string, error) {
	if teamID == "" || clientID == "" || keyID == "" || key == nil {
		return "", fmt.Errorf("%w: apple: incomplete client assertion input", providers.ErrConfig)
	}
	iat := now.Unix()
	s, err := jwt.Sign(
		map[string]any{"kid": keyID, "typ": "JWT"},
		jwtv5.MapClaims{
			"iss": teamID,
			"iat": iat,
			"exp": iat + int64(AssertionTTL/time.Second),
			"aud": Audience,
			"sub": clientID,
		},
		key, "ES256",
	)
	if err != nil {
		return "", fmt.Errorf("%w: apple: %v", providers.ErrConfig, err)
	}
	return s, nil
}
