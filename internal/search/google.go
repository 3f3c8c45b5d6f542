package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	googlePageSize = 10
	// The JSON API rejects start indexes past 91.
	googleMaxStart = 91
)

var ErrMissingGoogleCredentials = errors.New("google custom search api key and engine id are required")

// GoogleCSE pages through the Custom Search JSON API.
type GoogleCSE struct {
	apiKey  string
	cx      string
	service *customsearch.Service
}

// NewGoogleCSE builds the backend. endpoint overrides the API root and is
// empty in production.
func NewGoogleCSE(ctx context.Context, apiKey, cx, endpoint string, httpClient *http.Client) (*GoogleCSE, error) {
	apiKey = strings.TrimSpace(apiKey)
	cx = strings.TrimSpace(cx)
	if apiKey == "" || cx == "" {
		return nil, ErrMissingGoogleCredentials
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClientOrDefault(httpClient))}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	service, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create custom search service: %w", err)
	}
	return &GoogleCSE{apiKey: apiKey, cx: cx, service: service}, nil
}

func (g *GoogleCSE) Name() string { return "google_cse" }

// Search keeps the results gathered before a failing page. It only fails
// when the first page does.
func (g *GoogleCSE) Search(ctx context.Context, q Query) Outcome {
	safe := "off"
	if q.SafeSearch {
		safe = "active"
	}

	c := newCollector(q.Limit)
	for start := int64(1); !c.full() && start <= googleMaxStart; {
		resp, err := g.service.Cse.List().
			Q(q.Text).
			Cx(g.cx).
			Num(googlePageSize).
			Start(start).
			Safe(safe).
			Context(ctx).
			Do(googleapi.QueryParameter("key", g.apiKey))
		if err != nil {
			if start == 1 {
				return Failed(fmt.Errorf("google custom search: %w", err))
			}
			break
		}
		if len(resp.Items) == 0 {
			break
		}
		for _, item := range resp.Items {
			if c.add(item.Link, item.Title, item.Snippet) {
				break
			}
		}
		start += int64(len(resp.Items))
	}
	return c.outcome()
}
