package match

import (
	"go.uber.org/zap"

	"github.com/stwir/clean-bib-file/internal/model"
	"github.com/stwir/clean-bib-file/internal/normalize"
)

// scoreEpsilon bounds float comparison when grouping equal top scores.
const scoreEpsilon = 1e-9

// Selector picks the best metadata candidate for an entry. Threshold is the
// minimum similarity required to accept a title-based match; it always comes
// from configuration, never from a literal inside the selector.
type Selector struct {
	Threshold float64
}

// NewSelector returns a Selector with the given acceptance threshold.
func NewSelector(threshold float64) Selector {
	return Selector{Threshold: threshold}
}

// Select returns the authoritative candidate for entry, or model.NoMatch.
// DOI equality short-circuits title scoring entirely. An empty candidate list
// is a normal outcome, never an error.
func (s Selector) Select(entry *model.BibEntry, candidates []model.MetadataCandidate) model.MatchResult {
	if len(candidates) == 0 {
		return model.NoMatch
	}

	// DOI equality is authoritative regardless of title score.
	if doi := normalize.DOI(entry.Get(model.FieldDOI)); doi != "" {
		for i := range candidates {
			if normalize.DOI(candidates[i].DOI) == doi {
				return model.MatchResult{Candidate: &candidates[i], Confidence: 1.0}
			}
		}
		// No candidate carries the entry's DOI: fall through to title scoring.
	}

	entryTitle := normalize.Title(entry.Get(model.FieldTitle))
	if entryTitle == "" {
		return model.NoMatch
	}

	scores := make([]float64, len(candidates))
	best := 0.0
	for i := range candidates {
		scores[i] = Score(entryTitle, normalize.CandidateTitle(candidates[i].Title, candidates[i].Subtitle))
		if scores[i] > best {
			best = scores[i]
		}
	}

	if best < s.Threshold {
		zap.L().Debug("match: best score below threshold",
			zap.String("key", entry.Key),
			zap.Float64("best", best),
			zap.Float64("threshold", s.Threshold),
		)
		return model.NoMatch
	}

	var tied []int
	for i := range candidates {
		if best-scores[i] <= scoreEpsilon {
			tied = append(tied, i)
		}
	}

	winner := breakTie(entry.Type, candidates, tied)
	return model.MatchResult{Candidate: &candidates[winner], Confidence: best}
}

// breakTie resolves equal top scores: prefer the candidate whose type matches
// the entry (a chapter result over its enclosing book), then the candidate
// with the most non-empty fields, then input order.
func breakTie(entryType model.EntryType, candidates []model.MetadataCandidate, tied []int) int {
	if len(tied) == 1 {
		return tied[0]
	}

	var typed []int
	for _, i := range tied {
		if candidates[i].Type == entryType {
			typed = append(typed, i)
		}
	}
	if len(typed) > 0 {
		tied = typed
	}

	winner := tied[0]
	for _, i := range tied[1:] {
		if candidates[i].FieldCount() > candidates[winner].FieldCount() {
			winner = i
		}
	}
	return winner
}
