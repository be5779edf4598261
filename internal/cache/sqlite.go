package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/stwir/clean-bib-file/internal/model"
)

// SQLiteStore implements Store on modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (or creates) the cache database at path and configures WAL
// mode.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS lookup_cache (
	id         TEXT PRIMARY KEY,
	lookup_key TEXT NOT NULL,
	payload    TEXT NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lookup_cache_key ON lookup_cache(lookup_key);
CREATE INDEX IF NOT EXISTS idx_lookup_cache_expires_at ON lookup_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]model.MetadataCandidate, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM lookup_cache WHERE lookup_key = ? AND expires_at > ? ORDER BY cached_at DESC LIMIT 1`,
		key, time.Now().UTC(),
	)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "sqlite: get cache")
	}

	var candidates []model.MetadataCandidate
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: decode cache payload")
	}
	return candidates, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, candidates []model.MetadataCandidate, ttl time.Duration) error {
	payload, err := json.Marshal(candidates)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal cache payload")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lookup_cache (id, lookup_key, payload, cached_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), key, string(payload), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cache")
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM lookup_cache WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}
