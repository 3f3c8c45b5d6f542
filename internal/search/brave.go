package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultBraveBaseURL = "https://api.search.brave.com/res/v1"
	maxBraveCount       = 20
	maxBraveQueryWords  = 50
)

var ErrMissingBraveAPIKey = errors.New("brave api key is not configured")

// Brave queries the Brave Search web endpoint.
type Brave struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
	Results []braveResult `json:"results"`
}

type braveResult struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Snippet       string   `json:"snippet"`
	ExtraSnippets []string `json:"extra_snippets"`
}

func NewBrave(apiKey, baseURL string, httpClient *http.Client) (*Brave, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingBraveAPIKey
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBraveBaseURL
	}
	return &Brave{apiKey: apiKey, baseURL: baseURL, httpClient: httpClientOrDefault(httpClient)}, nil
}

func (b *Brave) Name() string { return BackendBrave }

func (b *Brave) Search(ctx context.Context, q Query) Outcome {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	count := limit
	if count > maxBraveCount {
		count = maxBraveCount
	}

	endpoint, err := url.Parse(b.baseURL + "/web/search")
	if err != nil {
		return Failed(fmt.Errorf("parse brave endpoint: %w", err))
	}
	params := endpoint.Query()
	params.Set("q", trimToWordLimit(q.Text, maxBraveQueryWords))
	params.Set("count", strconv.Itoa(count))
	params.Set("spellcheck", "0")
	params.Set("text_decorations", "0")
	if q.SafeSearch {
		params.Set("safesearch", "strict")
	} else {
		params.Set("safesearch", "off")
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Failed(fmt.Errorf("build brave request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	body, err := doRequest(b.httpClient, b.Name(), req)
	if err != nil {
		return Failed(err)
	}
	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Failed(fmt.Errorf("decode brave response: %w", err))
	}

	items := parsed.Web.Results
	if len(items) == 0 {
		items = parsed.Results
	}

	c := newCollector(limit)
	for _, item := range items {
		if c.add(strings.TrimSpace(item.URL), item.Title, braveSnippet(item)) {
			break
		}
	}
	return c.outcome()
}

func braveSnippet(item braveResult) string {
	if s := strings.TrimSpace(item.Description); s != "" {
		return s
	}
	if s := strings.TrimSpace(item.Snippet); s != "" {
		return s
	}
	if len(item.ExtraSnippets) > 0 {
		return strings.TrimSpace(item.ExtraSnippets[0])
	}
	return ""
}

func trimToWordLimit(input string, maxWords int) string {
	words := strings.Fields(input)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}
