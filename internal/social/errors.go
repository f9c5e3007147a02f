package social

import (
	"errors"

	"github.com/dropDatabas3/socialgate/internal/social/attempt"
	"github.com/dropDatabas3/socialgate/internal/social/providers"
)

// Kind clasifica el fallo de un login.
type Kind string

const (
	KindUnknownProvider Kind = "unknown_provider"
	KindConfiguration   Kind = "configuration"
	KindCSRF            Kind = "csrf"
	KindBadRequest      Kind = "bad_request"
	KindProviderDenied  Kind = "provider_denied"
	KindProviderToken   Kind = "provider_token"
	KindProviderProfile Kind = "provider_profile"
	KindTokenValidation Kind = "token_validation"
	KindPersistence     Kind = "persistence"
)

// Mensajes públicos.
const (
	MsgInvalidState    = "Invalid state"
	MsgMissingCode     = "missing code"
	MsgConfiguration   = "configuration error"
	MsgUnknownProvider = "unknown provider"
	MsgInvalidForm     = "invalid callback form"
)

// Error es el fallo tipado de una etapa. Message es lo único que ve el cliente;
// Err queda para los logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// classify mapea los sentinels de providers/attempt a Kind + mensaje público.
// Lo que no se reconoce cae en persistence con el error stringificado.
func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, attempt.ErrInvalidState):
		return newError(KindCSRF, MsgInvalidState, err)
	case errors.Is(err, providers.ErrUnknownProvider):
		return newError(KindUnknownProvider, MsgUnknownProvider, err)
	case errors.Is(err, providers.ErrConfig):
		return newError(KindConfiguration, MsgConfiguration, err)
	case errors.Is(err, providers.ErrToken):
		return newError(KindProviderToken, providers.ErrToken.Error(), err)
	case errors.Is(err, providers.ErrProfile):
		return newError(KindProviderProfile, providers.ErrProfile.Error(), err)
	}
	for _, v := range []error{
		providers.ErrInvalidIssuer,
		providers.ErrInvalidAudience,
		providers.ErrNonceMismatch,
		providers.ErrTokenExpired,
		providers.ErrInvalidIDToken,
	} {
		if errors.Is(err, v) {
			return newError(KindTokenValidation, v.Error(), err)
		}
	}
	return newError(KindPersistence, err.Error(), err)
}

// AsError devuelve err como *Error, clasificándolo si hace falta.
func AsError(err error) *Error { return classify(err) }
