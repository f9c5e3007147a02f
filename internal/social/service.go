// Package social orquesta el login federado: redirección al proveedor,
// validación del callback, resolución de cuenta y emisión de sesión.
package social

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/socialgate/internal/audit"
	"github.com/dropDatabas3/socialgate/internal/domain/repository"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/social/attempt"
	"github.com/dropDatabas3/socialgate/internal/social/providers"
)

// Etapas del callback, en orden. La última alcanzada se loguea al abortar.
const (
	StageCallbackReceived  = "callback_received"
	StageStateValidated    = "state_validated"
	StageTokenExchanged    = "token_exchanged"
	StageIdentityExtracted = "identity_extracted"
	StageTokenValidated    = "token_validated"
	StageAccountResolved   = "account_resolved"
	StageSessionIssued     = "session_issued"
)

// Deps dependencias de Service.
type Deps struct {
	Registry *providers.Registry
	Guard    *attempt.Guard
	Resolver *Resolver
	Sessions *SessionIssuer
}

// Service implementa Start y Callback.
type Service struct {
	registry *providers.Registry
	guard    *attempt.Guard
	resolver *Resolver
	sessions *SessionIssuer
}

func NewService(d Deps) *Service {
	return &Service{registry: d.Registry, guard: d.Guard, resolver: d.Resolver, sessions: d.Sessions}
}

// Sessions expone el emisor (lookup/logout).
func (s *Service) Sessions() *SessionIssuer { return s.sessions }

// Providers nombres habilitados.
func (s *Service) Providers() []string { return s.registry.Names() }

// Capabilities de un proveedor habilitado (los controllers eligen SameSite de la cookie).
func (s *Service) Capabilities(provider, baseURL string) (providers.Capabilities, error) {
	p, err := s.registry.Get(provider, baseURL)
	if err != nil {
		return providers.Capabilities{}, classify(err)
	}
	return p.Capabilities(), nil
}

// StartRequest inicio de login.
type StartRequest struct {
	Provider string
	BaseURL  string
}

// StartResult URL del proveedor y el intento a referenciar desde la cookie.
type StartResult struct {
	RedirectURL  string
	Attempt      *attempt.Attempt
	Capabilities providers.Capabilities
}

// Start genera el material del intento y la URL de autorización.
// Devuelve *Error (unknown_provider, configuration).
func (s *Service) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	log := logger.From(ctx).With(logger.Component("social.start"), logger.Provider(req.Provider))

	p, err := s.registry.Get(req.Provider, req.BaseURL)
	if err != nil {
		e := classify(err)
		log.Warn("login start rejected", logger.String("kind", string(e.Kind)), logger.Err(err))
		return nil, e
	}
	caps := p.Capabilities()
	a, err := s.guard.Start(ctx, p.Name(), attempt.Options{PKCE: caps.PKCE, Nonce: caps.Nonce})
	if err != nil {
		log.Error("save login attempt failed", logger.Err(err))
		return nil, newError(KindPersistence, err.Error(), err)
	}
	u, err := p.AuthorizeURL(providers.AuthParams{State: a.State, CodeVerifier: a.CodeVerifier, Nonce: a.Nonce})
	if err != nil {
		log.Error("build authorize url failed", logger.Err(err))
		if derr := s.guard.Discard(ctx, a.ID); derr != nil {
			log.Warn("discard login attempt failed", logger.Err(derr))
		}
		return nil, classify(err)
	}
	log.Debug("login started", logger.AttemptID(a.ID))
	return &StartResult{RedirectURL: u, Attempt: a, Capabilities: caps}, nil
}

// CallbackRequest datos del callback.
type CallbackRequest struct {
	Provider  string
	BaseURL   string
	AttemptID string // valor de la cookie del intento
	Callback  providers.Callback
	// ProviderError parámetro "error" devuelto por el proveedor (ej. access_denied).
	ProviderError string
}

// Result contrato con la capa de rutas: {success, error}.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Kind Kind `json:"-"`
	// AttemptConsumed: el state validó y el intento se borró; limpiar la cookie.
	AttemptConsumed bool                      `json:"-"`
	Account         *repository.Account       `json:"-"`
	Session         *repository.Session       `json:"-"`
	Outcome         repository.ResolveOutcome `json:"-"`
}

// Callback recorre la máquina de estados. Nunca devuelve error Go: cualquier
// fallo termina en Result{Success:false} con el mensaje público de la etapa.
func (s *Service) Callback(ctx context.Context, req CallbackRequest) Result {
	log := logger.From(ctx).With(logger.Component("social.callback"), logger.Provider(req.Provider), logger.AttemptID(req.AttemptID))
	stage := StageCallbackReceived
	var res Result

	fail := func(err error) Result {
		e := classify(err)
		res.Success = false
		res.Error = e.Message
		res.Kind = e.Kind
		label := req.Provider
		if e.Kind == KindUnknownProvider {
			label = "unknown"
		}
		loginTotal.WithLabelValues(label, "failure").Inc()
		loginFailures.WithLabelValues(label, string(e.Kind)).Inc()
		lvl := log.Warn
		if e.Kind == KindPersistence || e.Kind == KindConfiguration {
			lvl = log.Error
		}
		lvl("social login aborted", logger.Stage(stage), logger.String("kind", string(e.Kind)), logger.Err(e.Err))
		audit.Log(ctx, audit.EventLoginFailed, logger.Provider(req.Provider), logger.Stage(stage), logger.String("kind", string(e.Kind)))
		return res
	}

	p, err := s.registry.Get(req.Provider, req.BaseURL)
	if err != nil {
		return fail(err)
	}
	caps := p.Capabilities()

	a, err := s.guard.Validate(ctx, req.AttemptID, p.Name(), req.Callback.State, attempt.Options{PKCE: caps.PKCE, Nonce: caps.Nonce})
	if err != nil {
		return fail(err)
	}
	stage = StageStateValidated
	res.AttemptConsumed = true

	if pe := strings.TrimSpace(req.ProviderError); pe != "" {
		return fail(newError(KindProviderDenied, "provider error: "+pe, nil))
	}
	if strings.TrimSpace(req.Callback.Code) == "" {
		return fail(newError(KindBadRequest, MsgMissingCode, nil))
	}

	tok, err := p.Exchange(ctx, req.Callback.Code, a.CodeVerifier)
	if err != nil {
		return fail(err)
	}
	stage = StageTokenExchanged

	id, err := p.FetchIdentity(ctx, tok, req.Callback)
	if err != nil {
		return fail(err)
	}
	stage = StageIdentityExtracted

	if err := p.ValidateIdentity(ctx, tok, providers.Expectations{Nonce: a.Nonce}); err != nil {
		return fail(err)
	}
	stage = StageTokenValidated

	acc, outcome, err := s.resolver.Resolve(ctx, *id)
	if err != nil {
		return fail(err)
	}
	stage = StageAccountResolved
	accountsResolved.WithLabelValues(string(outcome)).Inc()

	sess, err := s.sessions.Issue(ctx, acc)
	if err != nil {
		return fail(err)
	}
	stage = StageSessionIssued

	loginTotal.WithLabelValues(req.Provider, "success").Inc()
	log.Info("social login completed",
		logger.AccountID(acc.ID),
		logger.String("outcome", string(outcome)),
		logger.Stage(stage),
		logger.String("expires_at", sess.ExpiresAt.UTC().Format(time.RFC3339)))
	audit.Log(ctx, audit.EventLoginSucceeded, logger.Provider(req.Provider), logger.AccountID(acc.ID), logger.String("outcome", string(outcome)))

	res.Success = true
	res.Account = acc
	res.Session = sess
	res.Outcome = outcome
	return res
}
