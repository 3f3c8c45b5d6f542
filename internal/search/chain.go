package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"briefsearch/internal/cache"
	"briefsearch/internal/urlnorm"

	"github.com/rs/zerolog"
)

// ProviderName is the user-facing provider selection.
type ProviderName string

const (
	ProviderAuto       ProviderName = "auto"
	ProviderDuckDuckGo ProviderName = "duckduckgo"
	ProviderGoogleCSE  ProviderName = "google_cse"
	ProviderWikipedia  ProviderName = "wikipedia"
	ProviderBrave      ProviderName = "brave"
)

// ParseProviderName accepts the known names case-insensitively.
func ParseProviderName(raw string) (ProviderName, bool) {
	switch name := ProviderName(strings.ToLower(strings.TrimSpace(raw))); name {
	case ProviderAuto, ProviderDuckDuckGo, ProviderGoogleCSE, ProviderWikipedia, ProviderBrave:
		return name, true
	default:
		return "", false
	}
}

// Backend names as reported by each Provider.
const (
	BackendDuckDuckGoAPI  = "duckduckgo:api"
	BackendDuckDuckGoHTML = "duckduckgo:html"
	BackendDuckDuckGoLite = "duckduckgo:lite"
	BackendGoogleCSE      = "google_cse"
	BackendHTMLScrape     = "duckduckgo_html_scrape"
	BackendLiteScrape     = "duckduckgo_lite_scrape"
	BackendWikipedia      = "wikipedia"
	BackendBrave          = "brave"
)

// Plan lists the backends tried for a provider selection, in order.
// Unknown selections get the auto plan. Brave is only used when selected.
func Plan(provider ProviderName) []string {
	primary := []string{BackendDuckDuckGoAPI, BackendDuckDuckGoHTML, BackendDuckDuckGoLite}
	switch provider {
	case ProviderWikipedia:
		return []string{BackendWikipedia}
	case ProviderGoogleCSE:
		return []string{BackendGoogleCSE}
	case ProviderBrave:
		return []string{BackendBrave}
	case ProviderDuckDuckGo:
		return append(primary, BackendHTMLScrape, BackendLiteScrape)
	default:
		return append(primary, BackendGoogleCSE, BackendHTMLScrape, BackendLiteScrape, BackendWikipedia)
	}
}

var ErrBlankQuery = errors.New("search query is blank")

// Request is one Resolve call.
type Request struct {
	Query      string
	MaxResults int
	Provider   ProviderName
	SafeSearch bool
}

// ChainConfig tunes the chain. Zero values disable the feature.
type ChainConfig struct {
	// StepTimeout bounds each backend call.
	StepTimeout time.Duration
	// MinInterval spaces outbound backend calls.
	MinInterval time.Duration
	// Store caches non-empty result lists in the results namespace.
	Store cache.Store
}

// Chain walks a Plan over the registered backends.
type Chain struct {
	backends map[string]Provider
	scorer   *urlnorm.Scorer
	store    cache.Store
	timeout  time.Duration
	log      zerolog.Logger
}

// NewChain registers providers by Name. Later providers with the same name
// replace earlier ones. A nil scorer uses the default reputable set.
func NewChain(cfg ChainConfig, scorer *urlnorm.Scorer, log zerolog.Logger, providers ...Provider) *Chain {
	if scorer == nil {
		scorer = urlnorm.NewScorer(nil)
	}
	limiter := newLimiter(cfg.MinInterval)
	backends := make(map[string]Provider, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		backends[provider.Name()] = limiter.wrap(provider)
	}
	return &Chain{
		backends: backends,
		scorer:   scorer,
		store:    cfg.Store,
		timeout:  cfg.StepTimeout,
		log:      log,
	}
}

// Has reports whether a backend is registered.
func (c *Chain) Has(name string) bool {
	_, ok := c.backends[name]
	return ok
}

// Resolve returns scored results sorted by score, highest first. Backend
// failures are logged and fall through to the next step; the error is set
// only for a blank query or a context that ended before any backend answered.
func (c *Chain) Resolve(ctx context.Context, req Request) ([]Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrBlankQuery
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 10
	}
	if _, ok := ParseProviderName(string(req.Provider)); !ok {
		req.Provider = ProviderAuto
	}
	q := Query{Text: query, Limit: req.MaxResults, SafeSearch: req.SafeSearch}

	cacheKey := resultCacheKey(req.Provider, q)
	if cached, ok := c.readCache(ctx, cacheKey); ok {
		return cached, nil
	}

	var results []Result
	answered := false
	for _, name := range Plan(req.Provider) {
		backend, ok := c.backends[name]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			if !answered {
				return nil, fmt.Errorf("resolve %q: %w", query, err)
			}
			break
		}

		started := time.Now()
		outcome := c.runStep(ctx, backend, q)
		answered = true
		event := c.log.Debug()
		if !outcome.OK() {
			event = c.log.Info().Err(outcome.Err)
		}
		event.Str("backend", name).
			Int("results", len(outcome.Results)).
			Dur("took", time.Since(started)).
			Msg("search backend attempted")

		if !outcome.Empty() {
			results = outcome.Results
			break
		}
	}

	results = c.rank(results)
	c.writeCache(ctx, cacheKey, results)
	return results, nil
}

func (c *Chain) runStep(ctx context.Context, backend Provider, q Query) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(fmt.Errorf("%s panicked: %v", backend.Name(), r))
		}
	}()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return backend.Search(ctx, q)
}

// rank scores each result, drops any URL seen twice and stable-sorts by
// score so equal scores keep backend order.
func (c *Chain) rank(results []Result) []Result {
	ranked := make([]Result, 0, len(results))
	seen := make(map[string]struct{}, len(results))
	for _, result := range results {
		if _, dup := seen[result.URL]; dup {
			continue
		}
		seen[result.URL] = struct{}{}
		if result.Domain == "" {
			result.Domain = urlnorm.Domain(result.URL)
		}
		result.Score = c.scorer.Score(result.Domain)
		ranked = append(ranked, result)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func resultCacheKey(provider ProviderName, q Query) string {
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("n", strconv.Itoa(q.Limit))
	params.Set("safe", strconv.FormatBool(q.SafeSearch))
	return urlnorm.CacheKey("search://" + string(provider) + "?" + params.Encode())
}

func (c *Chain) readCache(ctx context.Context, key string) ([]Result, bool) {
	if c.store == nil {
		return nil, false
	}
	data, err := c.store.Read(ctx, cache.NamespaceResults, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.log.Debug().Err(err).Msg("result cache read failed")
		}
		return nil, false
	}
	var results []Result
	if err := json.Unmarshal(data, &results); err != nil || len(results) == 0 {
		return nil, false
	}
	return results, true
}

func (c *Chain) writeCache(ctx context.Context, key string, results []Result) {
	if c.store == nil || len(results) == 0 {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.store.Write(ctx, cache.NamespaceResults, key, data); err != nil {
		c.log.Warn().Err(err).Msg("result cache write failed")
	}
}
