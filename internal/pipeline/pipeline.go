// Package pipeline runs the per-entry clean loop: look up candidate metadata,
// select a match, merge fields. Entries are independent, so lookups may run
// concurrently, but results always come back in input order and a failed
// lookup only degrades that one entry to no-match.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stwir/clean-bib-file/internal/cache"
	"github.com/stwir/clean-bib-file/internal/match"
	"github.com/stwir/clean-bib-file/internal/merge"
	"github.com/stwir/clean-bib-file/internal/model"
	"github.com/stwir/clean-bib-file/internal/normalize"
)

// Lookup is the metadata source. crossref.Client satisfies it.
type Lookup interface {
	WorkByDOI(ctx context.Context, doi string) (*model.MetadataCandidate, error)
	Search(ctx context.Context, title, author string) ([]model.MetadataCandidate, error)
}

// Options configures a run.
type Options struct {
	// Threshold is the minimum similarity to accept a title-based match.
	Threshold float64
	// Concurrency bounds parallel lookups; 1 processes entries serially.
	Concurrency int
	// CacheTTL is how long lookup results stay valid. Ignored without a store.
	CacheTTL time.Duration
}

// Outcome says what happened to one entry.
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
)

// EntryResult records the outcome for one entry, in input order.
type EntryResult struct {
	Key           string   `json:"key" yaml:"key"`
	Outcome       Outcome  `json:"outcome" yaml:"outcome"`
	Confidence    float64  `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	MatchedDOI    string   `json:"matched_doi,omitempty" yaml:"matched_doi,omitempty"`
	ChangedFields []string `json:"changed_fields,omitempty" yaml:"changed_fields,omitempty"`
}

// Result summarizes a run.
type Result struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Updated   int           `json:"updated" yaml:"updated"`
	Unchanged int           `json:"unchanged" yaml:"unchanged"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	Entries   []EntryResult `json:"entries" yaml:"entries"`
}

// Pipeline cleans bibliography entries against a metadata source.
type Pipeline struct {
	lookup   Lookup
	store    cache.Store // nil disables caching
	selector match.Selector
	opts     Options
}

// New creates a Pipeline. store may be nil.
func New(lookup Lookup, store cache.Store, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		lookup:   lookup,
		store:    store,
		selector: match.NewSelector(opts.Threshold),
		opts:     opts,
	}
}

// Run processes every entry, mutating matched entries in place. It never
// fails an entry through to the caller: lookup errors degrade to no-match and
// the entry stays as parsed.
func (p *Pipeline) Run(ctx context.Context, entries []*model.BibEntry) *Result {
	runID := uuid.New().String()
	results := make([]EntryResult, len(entries))

	zap.L().Info("clean run starting",
		zap.String("run_id", runID),
		zap.Int("entries", len(entries)),
		zap.Int("concurrency", p.opts.Concurrency),
		zap.Float64("threshold", p.opts.Threshold),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			results[i] = p.processEntry(gctx, entry)
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	res := &Result{RunID: runID, Entries: results}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeUpdated:
			res.Updated++
		case OutcomeSkipped:
			res.Skipped++
		default:
			res.Unchanged++
		}
	}

	zap.L().Info("clean run complete",
		zap.String("run_id", runID),
		zap.Int("updated", res.Updated),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("skipped", res.Skipped),
	)
	return res
}

func (p *Pipeline) processEntry(ctx context.Context, entry *model.BibEntry) EntryResult {
	if ctx.Err() != nil {
		return EntryResult{Key: entry.Key, Outcome: OutcomeSkipped}
	}
	if !entry.Has(model.FieldDOI) && !entry.Has(model.FieldTitle) {
		zap.L().Warn("entry has neither DOI nor title, skipping lookup",
			zap.String("key", entry.Key),
		)
		return EntryResult{Key: entry.Key, Outcome: OutcomeSkipped}
	}

	candidates := p.candidates(ctx, entry)

	res := p.selector.Select(entry, candidates)
	if !res.Matched() {
		zap.L().Debug("no confident match", zap.String("key", entry.Key))
		return EntryResult{Key: entry.Key, Outcome: OutcomeUnchanged}
	}

	changed := merge.Apply(entry, res)
	out := EntryResult{
		Key:           entry.Key,
		Outcome:       OutcomeUnchanged,
		Confidence:    res.Confidence,
		MatchedDOI:    res.Candidate.DOI,
		ChangedFields: changed,
	}
	if len(changed) > 0 {
		out.Outcome = OutcomeUpdated
		zap.L().Info("entry updated",
			zap.String("key", entry.Key),
			zap.Float64("confidence", res.Confidence),
			zap.Strings("fields", changed),
		)
	}
	return out
}

// candidates fetches metadata for the entry, consulting the cache first. Any
// lookup failure yields an empty list; "no metadata found" is a normal
// outcome, never an error.
func (p *Pipeline) candidates(ctx context.Context, entry *model.BibEntry) []model.MetadataCandidate {
	var key string
	fetch := func(ctx context.Context) ([]model.MetadataCandidate, error) { return nil, nil }

	if doi := entry.Get(model.FieldDOI); strings.TrimSpace(doi) != "" {
		key = cache.DOIKey(doi)
		fetch = func(ctx context.Context) ([]model.MetadataCandidate, error) {
			cand, err := p.lookup.WorkByDOI(ctx, doi)
			if err != nil {
				return nil, err
			}
			return []model.MetadataCandidate{*cand}, nil
		}
	} else {
		title := entry.Get(model.FieldTitle)
		author := firstAuthorFamily(entry.Get(model.FieldAuthor))
		key = cache.SearchKey(title, author)
		fetch = func(ctx context.Context) ([]model.MetadataCandidate, error) {
			return p.lookup.Search(ctx, title, author)
		}
	}

	if p.store != nil {
		if cands, ok, err := p.store.Get(ctx, key); err != nil {
			zap.L().Warn("cache read failed", zap.String("key", entry.Key), zap.Error(err))
		} else if ok {
			return cands
		}
	}

	cands, err := fetch(ctx)
	if err != nil {
		zap.L().Warn("metadata lookup failed, leaving entry unchanged",
			zap.String("key", entry.Key),
			zap.Error(err),
		)
		return nil
	}

	if p.store != nil {
		if err := p.store.Set(ctx, key, cands, p.opts.CacheTTL); err != nil {
			zap.L().Warn("cache write failed", zap.String("key", entry.Key), zap.Error(err))
		}
	}
	return cands
}

// firstAuthorFamily extracts the first author's family name from a BibTeX
// author field, for the search query.
func firstAuthorFamily(raw string) string {
	names := normalize.SplitAuthors(raw)
	if len(names) == 0 {
		return ""
	}
	canonical := normalize.Author(names[0])
	if i := strings.Index(canonical, ","); i >= 0 {
		return canonical[:i]
	}
	return canonical
}
