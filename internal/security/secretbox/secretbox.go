// Package secretbox cifra secretos de configuración (client secrets, claves privadas)
// con XChaCha20-Poly1305. Formato: base64(nonce)|base64(ciphertext).
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// EnvMasterKey es la variable de entorno con la clave maestra (base64 o hex, 32 bytes).
const EnvMasterKey = "SECRETBOX_MASTER_KEY"

const sep = "|"

var (
	ErrNoMasterKey = errors.New("secretbox: " + EnvMasterKey + " not set")
	ErrMalformed   = errors.New("secretbox: malformed ciphertext, expected base64(nonce)|base64(ciphertext)")
)

// Box sella y abre secretos con una clave fija.
type Box struct {
	key []byte
}

// New crea un Box con una clave cruda de 32 bytes.
func New(key []byte) (*Box, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secretbox: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Box{key: k}, nil
}

// FromEnv construye el Box desde SECRETBOX_MASTER_KEY.
func FromEnv() (*Box, error) {
	v := strings.TrimSpace(os.Getenv(EnvMasterKey))
	if v == "" {
		return nil, ErrNoMasterKey
	}
	k, err := ParseKey(v)
	if err != nil {
		return nil, err
	}
	return New(k)
}

// ParseKey acepta base64 (std o raw) o hex de 64 caracteres.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == chacha20poly1305.KeySize {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil && len(b) == chacha20poly1305.KeySize {
		return b, nil
	}
	if len(s) == 2*chacha20poly1305.KeySize {
		if b, err := hex.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("secretbox: master key must decode to %d bytes (base64 or hex)", chacha20poly1305.KeySize)
}

// Seal cifra plain.
func (b *Box) Seal(plain string) (string, error) {
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("secretbox: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce: %w", err)
	}
	ct := aead.Seal(nil, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open descifra lo producido por Seal.
func (b *Box) Open(sealed string) (string, error) {
	nb64, cb64, ok := strings.Cut(strings.TrimSpace(sealed), sep)
	if !ok {
		return "", ErrMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(nb64)
	if err != nil {
		return "", ErrMalformed
	}
	ct, err := base64.StdEncoding.DecodeString(cb64)
	if err != nil {
		return "", ErrMalformed
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("secretbox: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return "", ErrMalformed
	}
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secretbox: open: %w", err)
	}
	return string(pt), nil
}
