// Package cache persists metadata lookup results so repeated runs over the
// same bibliography do not re-query CrossRef. Entries expire on a TTL; a miss
// and an expired row look the same to callers.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/stwir/clean-bib-file/internal/model"
	"github.com/stwir/clean-bib-file/internal/normalize"
)

// Store is the lookup-cache persistence interface, with SQLite and Postgres
// implementations selected by config.
type Store interface {
	// Get returns the cached candidates for key, with ok=false on a miss.
	Get(ctx context.Context, key string) ([]model.MetadataCandidate, bool, error)
	// Set stores candidates under key for ttl.
	Set(ctx context.Context, key string, candidates []model.MetadataCandidate, ttl time.Duration) error
	// DeleteExpired removes rows past their TTL and reports how many.
	DeleteExpired(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// DOIKey builds the cache key for a DOI fetch.
func DOIKey(doi string) string {
	return "doi:" + normalize.DOI(doi)
}

// SearchKey builds the cache key for a title+author search.
func SearchKey(title, author string) string {
	return "search:" + normalize.Title(title) + "|" + strings.ToLower(strings.TrimSpace(author))
}
