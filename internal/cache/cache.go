// Package cache guarda estado efímero con TTL (intentos de login).
//
// Backends:
//   - memory: in-process sobre patrickmn/go-cache (dev, tests, una sola réplica)
//   - redis: distribuido, requerido con más de una réplica
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound: la key no existe o expiró.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)
	// Set guarda un valor; ttl 0 ⇒ sin expiración.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Take obtiene y borra la key de forma atómica (uso único).
	Take(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New crea un cliente de cache según la configuración.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(ctx, cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}
