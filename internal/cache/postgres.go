package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/stwir/clean-bib-file/internal/model"
)

// Pool is the minimal pgx pool surface the cache needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on pgxpool, for setups where several
// machines share one lookup cache.
type PostgresStore struct {
	pool Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres connects to the cache database.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (used by tests).
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS lookup_cache (
	id         TEXT PRIMARY KEY,
	lookup_key TEXT NOT NULL,
	payload    TEXT NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lookup_cache_key ON lookup_cache(lookup_key);
CREATE INDEX IF NOT EXISTS idx_lookup_cache_expires_at ON lookup_cache(expires_at)`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]model.MetadataCandidate, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT payload FROM lookup_cache WHERE lookup_key = $1 AND expires_at > now() ORDER BY cached_at DESC LIMIT 1`,
		key,
	)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "postgres: get cache")
	}

	var candidates []model.MetadataCandidate
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		return nil, false, eris.Wrap(err, "postgres: decode cache payload")
	}
	return candidates, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, candidates []model.MetadataCandidate, ttl time.Duration) error {
	payload, err := json.Marshal(candidates)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal cache payload")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO lookup_cache (id, lookup_key, payload, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), key, string(payload), now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cache")
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM lookup_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired")
	}
	return int(tag.RowsAffected()), nil
}
