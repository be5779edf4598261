// Package crossref is a client for the CrossRef REST API. It supports the two
// lookups the cleaner needs: an exact work fetch by DOI and a bibliographic
// title+author search. Requests are rate limited and retried on transient
// failures; a missing work is the ErrNotFound sentinel, not a transport error.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/stwir/clean-bib-file/internal/model"
	"github.com/stwir/clean-bib-file/internal/resilience"
)

// ErrNotFound indicates the DOI resolves to no work.
var ErrNotFound = eris.New("crossref: work not found")

// Client defines the metadata lookups.
type Client interface {
	// WorkByDOI fetches the single work registered under doi.
	WorkByDOI(ctx context.Context, doi string) (*model.MetadataCandidate, error)
	// Search queries works by title and optional first-author surname.
	Search(ctx context.Context, title, author string) ([]model.MetadataCandidate, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API root (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithTimeout bounds each HTTP request. Applies to the client in effect, so
// it should follow WithHTTPClient when both are given.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithMailto joins the CrossRef polite pool by attaching a contact address to
// every request.
func WithMailto(addr string) Option {
	return func(c *httpClient) { c.mailto = addr }
}

// WithRows sets how many candidates a search requests.
func WithRows(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.rows = n
		}
	}
}

// WithRateLimit sets the request rate toward the API.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		if rps > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

type httpClient struct {
	baseURL string
	mailto  string
	rows    int
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a CrossRef client with polite defaults.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://api.crossref.org",
		rows:    5,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) WorkByDOI(ctx context.Context, doi string) (*model.MetadataCandidate, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return nil, eris.New("crossref: empty DOI")
	}

	u := c.baseURL + "/works/" + url.PathEscape(doi) + c.query(nil)
	body, err := c.get(ctx, "works/doi", u)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Message work `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "crossref: decode work")
	}

	cand := resp.Message.toCandidate()
	return &cand, nil
}

func (c *httpClient) Search(ctx context.Context, title, author string) ([]model.MetadataCandidate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, eris.New("crossref: empty title query")
	}

	params := url.Values{}
	params.Set("query.bibliographic", title)
	if author = strings.TrimSpace(author); author != "" {
		params.Set("query.author", author)
	}
	params.Set("rows", fmt.Sprintf("%d", c.rows))

	u := c.baseURL + "/works" + c.query(params)
	body, err := c.get(ctx, "works/search", u)
	if err != nil {
		if eris.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var resp struct {
		Message struct {
			Items []work `json:"items"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "crossref: decode search")
	}

	out := make([]model.MetadataCandidate, 0, len(resp.Message.Items))
	for _, w := range resp.Message.Items {
		out = append(out, w.toCandidate())
	}
	return out, nil
}

// query renders params plus the polite-pool mailto, with a leading "?" when
// non-empty.
func (c *httpClient) query(params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

// get performs one rate-limited GET with retries on transient statuses.
func (c *httpClient) get(ctx context.Context, op, u string) ([]byte, error) {
	return resilience.DoVal(ctx, c.retry, "crossref: "+op, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "crossref: rate limit wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, eris.Wrap(err, "crossref: create request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "crossref: request")
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, eris.Wrap(err, "crossref: read response")
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			return nil, resilience.NewTransientError(
				eris.Errorf("crossref: status %d", resp.StatusCode), resp.StatusCode)
		default:
			return nil, eris.Errorf("crossref: unexpected status %d: %s", resp.StatusCode, string(body))
		}
	})
}
