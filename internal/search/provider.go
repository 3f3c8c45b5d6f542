// Package search resolves a query into ranked result links by walking an
// ordered plan of search backends until one of them answers.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"briefsearch/internal/urlnorm"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxResponseBytes  = 4 << 20
	maxErrorBodyBytes = 8 * 1024
	acceptLanguage    = "en-US,en;q=0.9"
)

// Result is one ranked search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	Score   int    `json:"score"`
}

// Query is what every backend receives.
type Query struct {
	Text       string
	Limit      int
	SafeSearch bool
}

// Outcome is the answer of one backend call: either results (possibly
// none) or the error that stopped the backend.
type Outcome struct {
	Results []Result
	Err     error
}

func Ok(results []Result) Outcome {
	return Outcome{Results: results}
}

func Failed(err error) Outcome {
	if err == nil {
		err = errors.New("search backend failed")
	}
	return Outcome{Err: err}
}

// OK reports whether the backend returned without error.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Empty reports whether the chain should move on to the next step.
func (o Outcome) Empty() bool {
	return len(o.Results) == 0
}

// Provider is a single search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) Outcome
}

// StatusError is returned when a backend answers with a non-2xx status.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Backend, e.StatusCode, e.Body)
}

// collector applies the per-call result rules: redirect decoding, http-only
// links, canonical dedup and the result cap.
type collector struct {
	limit   int
	seen    map[string]struct{}
	results []Result
}

func newCollector(limit int) *collector {
	if limit <= 0 {
		limit = 10
	}
	return &collector{limit: limit, seen: make(map[string]struct{}, limit)}
}

// add records a hit and reports whether the cap has been reached.
func (c *collector) add(rawURL, title, snippet string) bool {
	if c.full() {
		return true
	}
	target := urlnorm.DecodeRedirect(rawURL)
	if !urlnorm.IsHTTP(target) {
		return false
	}
	canonical := urlnorm.Canonicalize(target)
	if _, dup := c.seen[canonical]; dup {
		return false
	}
	c.seen[canonical] = struct{}{}
	c.results = append(c.results, Result{
		Title:   collapseSpace(title),
		Snippet: collapseSpace(snippet),
		URL:     canonical,
		Domain:  urlnorm.Domain(canonical),
	})
	return c.full()
}

func (c *collector) full() bool {
	return len(c.results) >= c.limit
}

func (c *collector) outcome() Outcome {
	return Ok(c.results)
}

// doRequest sends req and returns the bounded body of a 2xx response.
func doRequest(client *http.Client, backend string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", backend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, StatusError{
			Backend:    backend,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", backend, err)
	}
	return body, nil
}

func setBrowserHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", acceptLanguage)
}

// htmlText strips markup from a snippet fragment.
func htmlText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapseSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseSpace(fragment)
	}
	return collapseSpace(doc.Text())
}

func collapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func httpClientOrDefault(client *http.Client) *http.Client {
	if client == nil {
		return http.DefaultClient
	}
	return client
}
