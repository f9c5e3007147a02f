package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

type jwk struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// JWKS verifica tokens RS256 contra un JWKS remoto. Las claves se cachean
// (TTL + ETag); un kid desconocido fuerza un refresh, como máximo uno por
// MinRefresh, y los refresh concurrentes se deduplican.
type JWKS struct {
	URL        string
	TTL        time.Duration
	MinRefresh time.Duration

	http  *http.Client
	group singleflight.Group

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
	etag    string
}

// NewJWKS crea el verificador. client nil ⇒ http.Client con timeout de 10s.
func NewJWKS(url string, client *http.Client) *JWKS {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKS{URL: url, TTL: time.Hour, MinRefresh: time.Minute, http: client}
}

var _ Decoder = (*JWKS)(nil)

// Decode verifica la firma y devuelve las claims (sin validar iss/aud/exp).
func (j *JWKS) Decode(ctx context.Context, raw string) (Claims, error) {
	parser := jwtv5.NewParser(jwtv5.WithValidMethods([]string{"RS256"}), jwtv5.WithoutClaimsValidation())
	var mc jwtv5.MapClaims
	_, err := parser.ParseWithClaims(raw, &mc, func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return j.keyFor(ctx, kid)
	})
	switch {
	case err == nil:
		return Claims(mc), nil
	case errors.Is(err, jwtv5.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
}

func (j *JWKS) keyFor(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	k, ok := j.keys[kid]
	fresh := time.Since(j.fetched) < j.TTL
	recent := time.Since(j.fetched) < j.MinRefresh
	j.mu.RUnlock()
	if ok && fresh {
		return k, nil
	}
	if !ok && recent {
		return nil, fmt.Errorf("kid %q not found", kid)
	}

	if _, err, _ := j.group.Do("refresh", func() (any, error) { return nil, j.refresh(ctx) }); err != nil {
		if ok {
			// clave vieja todavía utilizable si el refresh falla
			return k, nil
		}
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if k, ok := j.keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("kid %q not found", kid)
}

func (j *JWKS) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.URL, nil)
	if err != nil {
		return err
	}
	j.mu.RLock()
	if j.etag != "" && j.keys != nil {
		req.Header.Set("If-None-Match", j.etag)
	}
	j.mu.RUnlock()

	resp, err := j.http.Do(req)
	if err != nil {
		return fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		j.mu.Lock()
		j.fetched = time.Now()
		j.mu.Unlock()
		return nil
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("jwks http %d", resp.StatusCode)
	}
	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("jwks decode: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		pub, err := rsaPublicKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	j.mu.Lock()
	j.keys = keys
	j.fetched = time.Now()
	j.etag = resp.Header.Get("ETag")
	j.mu.Unlock()
	return nil
}

func rsaPublicKey(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := 65537
	if len(eb) > 0 {
		e = int(new(big.Int).SetBytes(eb).Int64())
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
