package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/stwir/clean-bib-file/internal/cache"
	"github.com/stwir/clean-bib-file/internal/crossref"
	"github.com/stwir/clean-bib-file/internal/pipeline"
	"github.com/stwir/clean-bib-file/internal/resilience"
)

// cleanEnv holds the initialized client, cache store, and pipeline needed by
// the clean/lookup/serve commands.
type cleanEnv struct {
	Client   crossref.Client
	Store    cache.Store // nil when caching is off
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (ce *cleanEnv) Close() {
	if ce.Store != nil {
		_ = ce.Store.Close()
	}
}

// initEnv builds the CrossRef client, opens the configured cache backend, and
// wires the pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context) (*cleanEnv, error) {
	client := newCrossRefClient()

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(client, st, pipeline.Options{
		Threshold:   cfg.MatchThreshold,
		Concurrency: cfg.Clean.Concurrency,
		CacheTTL:    time.Duration(cfg.Cache.TTLHours) * time.Hour,
	})

	return &cleanEnv{Client: client, Store: st, Pipeline: p}, nil
}

func newCrossRefClient() crossref.Client {
	opts := []crossref.Option{
		crossref.WithBaseURL(cfg.CrossRef.BaseURL),
		crossref.WithTimeout(time.Duration(cfg.CrossRef.TimeoutSecs) * time.Second),
		crossref.WithRows(cfg.CrossRef.Rows),
		crossref.WithRateLimit(cfg.CrossRef.RateRPS, cfg.CrossRef.RateBurst),
		crossref.WithRetry(resilience.RetryConfig{
			MaxAttempts:    cfg.CrossRef.Retry.MaxAttempts,
			InitialBackoff: time.Duration(cfg.CrossRef.Retry.InitialBackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.CrossRef.Retry.MaxBackoffMs) * time.Millisecond,
			Multiplier:     cfg.CrossRef.Retry.Multiplier,
		}),
	}
	if cfg.CrossRef.Mailto != "" {
		opts = append(opts, crossref.WithMailto(cfg.CrossRef.Mailto))
	}
	return crossref.NewClient(opts...)
}

// initStore opens the cache backend named by config. Returns nil for "off".
func initStore(ctx context.Context) (cache.Store, error) {
	switch cfg.Cache.Driver {
	case "off", "":
		zap.L().Debug("lookup cache disabled")
		return nil, nil
	case "sqlite":
		st, err := cache.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return nil, eris.Wrap(err, "open sqlite cache")
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate sqlite cache")
		}
		purgeExpired(ctx, st)
		zap.L().Info("using sqlite cache", zap.String("path", cfg.Cache.Path))
		return st, nil
	case "postgres":
		st, err := cache.NewPostgres(ctx, cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "open postgres cache")
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate postgres cache")
		}
		purgeExpired(ctx, st)
		zap.L().Info("using postgres cache")
		return st, nil
	default:
		return nil, eris.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}

// purgeExpired sweeps stale cache rows at open so they never accumulate across
// runs. Failures only warn; the cache stays usable.
func purgeExpired(ctx context.Context, st cache.Store) {
	n, err := st.DeleteExpired(ctx)
	if err != nil {
		zap.L().Warn("cache purge failed", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("purged expired cache rows", zap.Int("rows", n))
	}
}
