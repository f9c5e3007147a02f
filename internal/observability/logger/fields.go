package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
)

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// ---- Federación ----

// Provider identifica el proveedor de identidad (kakao, google, apple).
func Provider(v string) zap.Field { return zap.String("provider", v) }

// AttemptID loguea una referencia (hash truncado) del id del intento: el valor
// de la cookie es un handle de portador. Nunca loguear state/verifier/nonce.
func AttemptID(v string) zap.Field { return zap.String("attempt_ref", AttemptRef(v)) }

func AccountID(v string) zap.Field { return zap.String("account_id", v) }

// Stage es la última etapa alcanzada del flujo de callback.
func Stage(v string) zap.Field { return zap.String("stage", v) }

// Email loguea el email enmascarado (j***@example.com).
func Email(v string) zap.Field { return zap.String("email", MaskEmail(v)) }

// ---- Sistema ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Layer(v string) zap.Field { return zap.String("layer", v) }
func Err(err error) zap.Field { return zap.Error(err) }
func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

// MaskEmail deja visible la primera letra y el dominio.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// AttemptRef: primeros 8 bytes de sha256(id) en hex; "" si id es vacío.
func AttemptRef(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}
