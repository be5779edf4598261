package crossref

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwir/clean-bib-file/internal/model"
	"github.com/stwir/clean-bib-file/internal/resilience"
)

const workJSON = `{
  "status": "ok",
  "message": {
    "DOI": "10.1000/xyz123",
    "type": "journal-article",
    "title": ["Deep Learning Methods"],
    "subtitle": ["A Survey"],
    "container-title": ["Journal of Examples"],
    "author": [
      {"given": "Jane", "family": "Smith"},
      {"given": "Bob", "family": "Jones"},
      {"given": "Orphan"}
    ],
    "publisher": "Example Press",
    "volume": "7",
    "issue": "2",
    "page": "123-134",
    "issued": {"date-parts": [[2019, 3, 12]]}
  }
}`

const searchJSON = `{
  "status": "ok",
  "message": {
    "items": [
      {"DOI": "10.1/a", "type": "book-chapter", "title": ["Chapter on Graphs"]},
      {"DOI": "10.1/b", "type": "book", "title": ["Chapter on Graphs"]}
    ]
  }
}`

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestWorkByDOI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works/10.1000%2Fxyz123", r.URL.EscapedPath())
		assert.Equal(t, "hi@example.org", r.URL.Query().Get("mailto"))
		w.Write([]byte(workJSON))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithMailto("hi@example.org"), WithRetry(fastRetry()))
	cand, err := c.WorkByDOI(context.Background(), "10.1000/xyz123")
	require.NoError(t, err)

	assert.Equal(t, "10.1000/xyz123", cand.DOI)
	assert.Equal(t, model.TypeArticle, cand.Type)
	assert.Equal(t, "Deep Learning Methods", cand.Title)
	assert.Equal(t, "A Survey", cand.Subtitle)
	assert.Equal(t, "Journal of Examples", cand.ContainerTitle)
	assert.Equal(t, "Example Press", cand.Publisher)
	assert.Equal(t, "7", cand.Volume)
	assert.Equal(t, "2", cand.Issue)
	assert.Equal(t, "123-134", cand.Pages)
	assert.Equal(t, "2019", cand.Year)
	assert.Equal(t, "3", cand.Month)
	require.Len(t, cand.Authors, 2, "author without family name is dropped")
	assert.Equal(t, model.Author{Family: "Smith", Given: "Jane"}, cand.Authors[0])
}

func TestWorkByDOI_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Resource not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetry(fastRetry()))
	_, err := c.WorkByDOI(context.Background(), "10.1/missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestWorkByDOI_EmptyDOI(t *testing.T) {
	c := NewClient(WithRetry(fastRetry()))
	_, err := c.WorkByDOI(context.Background(), "  ")
	assert.Error(t, err)
}

func TestWorkByDOI_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(workJSON))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetry(fastRetry()))
	cand, err := c.WorkByDOI(context.Background(), "10.1000/xyz123")
	require.NoError(t, err)
	assert.Equal(t, "10.1000/xyz123", cand.DOI)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Chapter on Graphs", q.Get("query.bibliographic"))
		assert.Equal(t, "Smith", q.Get("query.author"))
		assert.Equal(t, "5", q.Get("rows"))
		w.Write([]byte(searchJSON))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetry(fastRetry()))
	cands, err := c.Search(context.Background(), "Chapter on Graphs", "Smith")
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, model.TypeBookChapter, cands[0].Type)
	assert.Equal(t, model.TypeBook, cands[1].Type)
}

func TestSearch_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","message":{"items":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetry(fastRetry()))
	cands, err := c.Search(context.Background(), "no such work", "")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestSearch_EmptyTitle(t *testing.T) {
	c := NewClient(WithRetry(fastRetry()))
	_, err := c.Search(context.Background(), "", "Smith")
	assert.Error(t, err)
}

func TestWithTimeout(t *testing.T) {
	c := NewClient(WithTimeout(5 * time.Second)).(*httpClient)
	assert.Equal(t, 5*time.Second, c.http.Timeout)

	c = NewClient(WithTimeout(0)).(*httpClient)
	assert.Equal(t, 30*time.Second, c.http.Timeout, "non-positive values keep the default")
}

func TestWithTimeout_AbortsSlowRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(workJSON))
	}))
	defer srv.Close()

	c := NewClient(
		WithBaseURL(srv.URL),
		WithTimeout(50*time.Millisecond),
		WithRetry(resilience.RetryConfig{MaxAttempts: 1}),
	)
	_, err := c.WorkByDOI(context.Background(), "10.1000/xyz123")
	assert.Error(t, err)
}

func TestWorkToCandidate_EventFallback(t *testing.T) {
	w := work{
		Type:   "proceedings-article",
		Title:  []string{"Paper"},
		Event:  &workEvent{Name: "Conf 2020"},
		Issued: workDate{DateParts: [][]int{{2020}}},
	}
	cand := w.toCandidate()
	assert.Equal(t, "Conf 2020", cand.ContainerTitle)
	assert.Equal(t, "2020", cand.Year)
	assert.Equal(t, "", cand.Month)
}
