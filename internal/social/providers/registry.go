package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/socialgate/internal/jwt"
)

// Factory construye un adaptador para una configuración resuelta.
type Factory func(cfg Config, deps Deps) (Provider, error)

// Spec describe un adaptador: nombre, defaults y factory.
type Spec struct {
	Name     string
	Defaults Settings
	Factory  Factory
}

type entry struct {
	spec     Spec
	settings Settings
}

// Registry guarda los proveedores habilitados. Los adaptadores se construyen por
// request porque redirect_uri puede depender del host del request.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	deps    Deps

	jwksMu sync.Mutex
	jwks   map[string]*jwt.JWKS
}

// NewRegistry crea el registro. Si deps.JWKS es nil se usa un cache por URL
// sobre deps.HTTPClient.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{entries: map[string]entry{}, jwks: map[string]*jwt.JWKS{}}
	if deps.JWKS == nil {
		deps.JWKS = r.jwksFor
	}
	r.deps = deps
	return r
}

// Register habilita un proveedor.
func (r *Registry) Register(spec Spec, s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[spec.Name] = entry{spec: spec, settings: s}
}

// Get resuelve la configuración y construye el adaptador.
// ErrUnknownProvider si no está habilitado; ErrConfig si falta configuración.
func (r *Registry) Get(name, baseURL string) (Provider, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	cfg, err := Resolve(name, e.settings, e.spec.Defaults, baseURL)
	if err != nil {
		return nil, err
	}
	return e.spec.Factory(cfg, r.deps)
}

// Names proveedores habilitados, ordenados.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for n := range r.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) jwksFor(url string) jwt.Decoder {
	r.jwksMu.Lock()
	defer r.jwksMu.Unlock()
	if j, ok := r.jwks[url]; ok {
		return j
	}
	j := jwt.NewJWKS(url, r.deps.HTTPClient)
	r.jwks[url] = j
	return j
}
