package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// Endpoint is one page the HTML scraper may try.
type Endpoint struct {
	URL    string
	Method string
}

// DefaultScrapeEndpoints are tried in order until one yields links.
var DefaultScrapeEndpoints = []Endpoint{
	{URL: "https://duckduckgo.com/html/", Method: http.MethodPost},
	{URL: "https://html.duckduckgo.com/html/", Method: http.MethodPost},
	{URL: "https://duckduckgo.com/html/", Method: http.MethodGet},
}

const defaultLiteScrapeURL = "https://duckduckgo.com/lite/"

// HTMLScraper reads a.result__a links off DuckDuckGo's HTML results page.
// It never reports snippets.
type HTMLScraper struct {
	endpoints  []Endpoint
	userAgent  string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewHTMLScraper(endpoints []Endpoint, userAgent string, httpClient *http.Client, log zerolog.Logger) *HTMLScraper {
	if len(endpoints) == 0 {
		endpoints = DefaultScrapeEndpoints
	}
	return &HTMLScraper{
		endpoints:  endpoints,
		userAgent:  userAgent,
		httpClient: httpClientOrDefault(httpClient),
		log:        log,
	}
}

func (s *HTMLScraper) Name() string { return "duckduckgo_html_scrape" }

// Search stops at the first endpoint that yields at least one link. Failing
// endpoints are skipped; only when all of them fail is the last error kept.
func (s *HTMLScraper) Search(ctx context.Context, q Query) Outcome {
	var lastErr error
	for _, endpoint := range s.endpoints {
		if err := ctx.Err(); err != nil {
			return Failed(err)
		}
		doc, err := scrapePage(ctx, s.httpClient, s.Name(), endpoint, q, s.userAgent)
		if err != nil {
			s.log.Debug().Err(err).Str("endpoint", endpoint.URL).Str("method", endpoint.Method).Msg("scrape endpoint failed")
			lastErr = err
			continue
		}
		lastErr = nil
		if out := collectLinks(doc, "a.result__a", q.Limit); !out.Empty() {
			return out
		}
	}
	if lastErr != nil {
		return Failed(lastErr)
	}
	return Ok(nil)
}

// LiteScraper reads a.result-link anchors off DuckDuckGo Lite.
type LiteScraper struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

func NewLiteScraper(endpoint, userAgent string, httpClient *http.Client) *LiteScraper {
	if endpoint == "" {
		endpoint = defaultLiteScrapeURL
	}
	return &LiteScraper{
		endpoint:   endpoint,
		userAgent:  userAgent,
		httpClient: httpClientOrDefault(httpClient),
	}
}

func (s *LiteScraper) Name() string { return "duckduckgo_lite_scrape" }

func (s *LiteScraper) Search(ctx context.Context, q Query) Outcome {
	doc, err := scrapePage(ctx, s.httpClient, s.Name(), Endpoint{URL: s.endpoint, Method: http.MethodGet}, q, s.userAgent)
	if err != nil {
		return Failed(err)
	}
	return collectLinks(doc, "a.result-link", q.Limit)
}

func scrapePage(ctx context.Context, client *http.Client, backend string, endpoint Endpoint, q Query, userAgent string) (*goquery.Document, error) {
	form := url.Values{}
	form.Set("q", q.Text)
	form.Set("kp", safeParam(q.SafeSearch))

	var (
		req *http.Request
		err error
	)
	if endpoint.Method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		target := endpoint.URL
		if strings.Contains(target, "?") {
			target += "&" + form.Encode()
		} else {
			target += "?" + form.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", backend, err)
	}
	setBrowserHeaders(req, userAgent)

	body, err := doRequest(client, backend, req)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s page: %w", backend, err)
	}
	return doc, nil
}

func collectLinks(doc *goquery.Document, selector string, limit int) Outcome {
	c := newCollector(limit)
	doc.Find(selector).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		return !c.add(href, link.Text(), "")
	})
	return c.outcome()
}
