// Package pg implementa los repositorios sobre PostgreSQL (pgx/v5).
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialgate/internal/observability/logger"
)

// Options de tuning del pool.
type Options struct {
	MaxConns        int32
	ConnMaxLifetime time.Duration
}

type Store struct {
	pool     *pgxpool.Pool
	Accounts *AccountRepo
	Sessions *SessionRepo
}

// New abre el pool. El ping inicial no es fatal: la app arranca aunque la DB
// esté caída momentáneamente y /readyz lo reporta.
func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}
	if opts.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = opts.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	log := logger.L().With(logger.Component("store.pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		log.Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}
	return NewWithPool(pool), nil
}

// NewWithPool arma el store sobre un pool existente.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:     pool,
		Accounts: NewAccountRepo(pool),
		Sessions: NewSessionRepo(pool),
	}
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Pool expone el pool subyacente (métricas).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close cierra el pool (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// isUniqueViolation detecta SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
