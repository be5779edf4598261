// Package merge applies a matched metadata candidate to a bibliography entry
// under per-field replace and fill-if-missing rules. The citation key is never
// touched, and a NoMatch result leaves the entry untouched.
package merge

import (
	"strings"

	"github.com/stwir/clean-bib-file/internal/model"
	"github.com/stwir/clean-bib-file/internal/normalize"
)

// Apply reconciles entry fields with the matched candidate and returns the
// names of the fields it changed, in application order. A NoMatch result is a
// no-op.
func Apply(entry *model.BibEntry, res model.MatchResult) []string {
	if !res.Matched() {
		return nil
	}
	cand := res.Candidate
	var changed []string

	// Title: replaced only when it differs after normalization, so a title
	// that is already correct modulo case/whitespace stays as written.
	if cand.Title != "" {
		candNorm := normalize.CandidateTitle(cand.Title, cand.Subtitle)
		if candNorm != normalize.Title(entry.Get(model.FieldTitle)) {
			entry.Set(model.FieldTitle, cand.FullTitle())
			changed = append(changed, model.FieldTitle)
		}
	}

	// Author: replaced when missing or when the normalized lists differ.
	if authors := authorField(cand.Authors); authors != "" {
		existing := entry.Get(model.FieldAuthor)
		if !entry.Has(model.FieldAuthor) || normalize.Authors(existing) != normalize.Authors(authors) {
			entry.Set(model.FieldAuthor, authors)
			changed = append(changed, model.FieldAuthor)
		}
	}

	// Journal vs booktitle depends on the entry type; fill-if-missing only.
	if field, ok := containerField(entry.Type); ok && strings.TrimSpace(cand.ContainerTitle) != "" {
		if !entry.Has(field) {
			entry.Set(field, cand.ContainerTitle)
			changed = append(changed, field)
		}
	}

	// Remaining fields never overwrite a populated value.
	for _, f := range []struct {
		name  string
		value string
	}{
		{model.FieldYear, cand.Year},
		{model.FieldMonth, cand.Month},
		{model.FieldVolume, cand.Volume},
		{model.FieldNumber, cand.Issue},
		{model.FieldPages, normalize.Pages(cand.Pages)},
		{model.FieldPublisher, cand.Publisher},
		{model.FieldDOI, cand.DOI},
	} {
		if strings.TrimSpace(f.value) == "" || entry.Has(f.name) {
			continue
		}
		entry.Set(f.name, f.value)
		changed = append(changed, f.name)
	}

	return changed
}

// containerField returns the BibTeX field the candidate's container title
// belongs in for the given entry type. Books and untyped entries take none.
func containerField(t model.EntryType) (string, bool) {
	switch t {
	case model.TypeArticle:
		return model.FieldJournal, true
	case model.TypeInProceedings, model.TypeBookChapter:
		return model.FieldBookTitle, true
	case model.TypeBook, model.TypeOther:
		return "", false
	default:
		return "", false
	}
}

// authorField formats candidate authors as a BibTeX author list. Authors
// without a family name are dropped.
func authorField(authors []model.Author) string {
	var names []string
	for _, a := range authors {
		family := strings.TrimSpace(a.Family)
		if family == "" {
			continue
		}
		if given := strings.TrimSpace(a.Given); given != "" {
			names = append(names, family+", "+given)
		} else {
			names = append(names, family)
		}
	}
	return strings.Join(names, " and ")
}
