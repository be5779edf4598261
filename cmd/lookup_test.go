package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stwir/clean-bib-file/internal/model"
)

func TestEntryFromCandidate(t *testing.T) {
	cand := &model.MetadataCandidate{
		DOI:            "10.1234/abc.5",
		Title:          "A Study of Things",
		Authors:        []model.Author{{Family: "Smith", Given: "Jane"}},
		ContainerTitle: "Journal of Things",
		Year:           "2021",
		Volume:         "12",
		Pages:          "101--120",
		Type:           model.TypeArticle,
	}

	e := entryFromCandidate(cand)

	assert.Equal(t, "10-1234-abc-5", e.Key)
	assert.Equal(t, "article", e.RawType)
	assert.Equal(t, "A Study of Things", e.Get("title"))
	assert.Equal(t, "Smith, Jane", e.Get("author"))
	assert.Equal(t, "Journal of Things", e.Get("journal"))
	assert.Equal(t, "2021", e.Get("year"))
	assert.Equal(t, "10.1234/abc.5", e.Get("doi"))
}

func TestCandidateKey_NoDOI(t *testing.T) {
	assert.Equal(t, "work", candidateKey(&model.MetadataCandidate{Title: "T"}))
}

func TestBibTag(t *testing.T) {
	assert.Equal(t, "article", bibTag(model.TypeArticle))
	assert.Equal(t, "inproceedings", bibTag(model.TypeInProceedings))
	assert.Equal(t, "book", bibTag(model.TypeBook))
	assert.Equal(t, "incollection", bibTag(model.TypeBookChapter))
	assert.Equal(t, "misc", bibTag(model.TypeOther))
}
