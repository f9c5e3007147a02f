package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialgate/internal/domain/repository"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo { return &SessionRepo{pool: pool} }

var _ repository.SessionRepository = (*SessionRepo)(nil)

func (r *SessionRepo) Create(ctx context.Context, s repository.Session) error {
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO sessions (sid, payload, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		s.SID, payload, s.ExpiresAt, s.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create session: %w", repository.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, sid string, now time.Time) (*repository.Session, error) {
	var (
		s       repository.Session
		payload []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT sid, payload, expires_at, created_at FROM sessions WHERE sid = $1 AND expires_at > $2`,
		sid, now).Scan(&s.SID, &payload, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if err := json.Unmarshal(payload, &s.Payload); err != nil {
		return nil, fmt.Errorf("get session: decode payload: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, sid string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE sid = $1`, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
