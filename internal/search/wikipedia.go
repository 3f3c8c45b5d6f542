package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultWikipediaAPI  = "https://en.wikipedia.org/w/api.php"
	defaultWikipediaWiki = "https://en.wikipedia.org/wiki/"
)

// Wikipedia queries the MediaWiki list=search API and turns titles into
// article links.
type Wikipedia struct {
	apiURL     string
	wikiURL    string
	userAgent  string
	httpClient *http.Client
}

type wikipediaResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

// NewWikipedia builds the backend. apiURL and wikiURL default to English
// Wikipedia; wikiURL is the prefix article titles are appended to.
func NewWikipedia(apiURL, wikiURL, userAgent string, httpClient *http.Client) *Wikipedia {
	if apiURL == "" {
		apiURL = defaultWikipediaAPI
	}
	if wikiURL == "" {
		wikiURL = defaultWikipediaWiki
	}
	if !strings.HasSuffix(wikiURL, "/") {
		wikiURL += "/"
	}
	return &Wikipedia{
		apiURL:     apiURL,
		wikiURL:    wikiURL,
		userAgent:  userAgent,
		httpClient: httpClientOrDefault(httpClient),
	}
}

func (w *Wikipedia) Name() string { return "wikipedia" }

func (w *Wikipedia) Search(ctx context.Context, q Query) Outcome {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", q.Text)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return Failed(fmt.Errorf("build wikipedia request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}

	body, err := doRequest(w.httpClient, w.Name(), req)
	if err != nil {
		return Failed(err)
	}
	var parsed wikipediaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Failed(fmt.Errorf("decode wikipedia response: %w", err))
	}

	c := newCollector(limit)
	for _, item := range parsed.Query.Search {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		article := w.wikiURL + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
		if c.add(article, title, htmlText(item.Snippet)) {
			break
		}
	}
	return c.outcome()
}
