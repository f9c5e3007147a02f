// Package store elige el backend de persistencia según config.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialgate/internal/config"
	"github.com/dropDatabas3/socialgate/internal/domain/repository"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/store/memory"
	"github.com/dropDatabas3/socialgate/internal/store/pg"
)

// Store agrupa los repositorios de un backend.
type Store struct {
	Driver   string
	Accounts repository.AccountRepository
	Sessions repository.SessionRepository
	// Pool es el pool de postgres (nil con memory); lo usa el collector de métricas.
	Pool *pgxpool.Pool

	ping  func(context.Context) error
	close func()
}

func (s *Store) Ping(ctx context.Context) error { return s.ping(ctx) }
func (s *Store) Close()                         { s.close() }

// Open abre el backend configurado (memory | postgres). Con postgres y
// storage.postgres.auto_migrate aplica las migraciones embebidas antes de abrir el pool.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Storage.Driver {
	case "memory", "":
		logger.L().Warn("using in-memory storage; accounts and sessions are lost on restart")
		m := memory.New()
		return &Store{Driver: "memory", Accounts: m.Accounts, Sessions: m.Sessions, ping: m.Ping, close: m.Close}, nil
	case "postgres":
		if cfg.Storage.Postgres.AutoMigrate {
			if err := pg.MigrateUp(cfg.Storage.DSN); err != nil {
				return nil, err
			}
		}
		p, err := pg.New(ctx, cfg.Storage.DSN, pg.Options{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Store{Driver: "postgres", Accounts: p.Accounts, Sessions: p.Sessions, Pool: p.Pool(), ping: p.Ping, close: p.Close}, nil
	default:
		return nil, fmt.Errorf("storage driver %q not supported", cfg.Storage.Driver)
	}
}
