// Package engine runs one query through search, fetch, extraction and
// synthesis and assembles the response.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"briefsearch/internal/extract"
	"briefsearch/internal/fetch"
	"briefsearch/internal/search"
	"briefsearch/internal/summarize"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency   = 4
	defaultMaxFetched    = 10
	defaultMinTextLength = 200
	defaultMaxSentences  = 10
	defaultMinSources    = 1
)

type Resolver interface {
	Resolve(ctx context.Context, req search.Request) ([]search.Result, error)
}

type RobotsChecker interface {
	Allowed(ctx context.Context, rawURL string) bool
}

type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, fetch.Status)
}

type TextExtractor interface {
	Extract(ctx context.Context, rawURL, page string) string
}

// Deps are the collaborators of a run. Summarizer defaults to the standard
// rules when nil.
type Deps struct {
	Resolver   Resolver
	Robots     RobotsChecker
	Fetcher    PageFetcher
	Extractor  TextExtractor
	Summarizer *summarize.Summarizer
}

// Options tune a run. Zero values take the defaults.
type Options struct {
	Concurrency   int
	MaxFetched    int
	MinTextLength int
	MaxSentences  int
	MinSources    int
}

// Response is the terminal output of one run.
type Response struct {
	RunID   string          `json:"run_id"`
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
	Summary string          `json:"summary"`
	Sources []string        `json:"sources"`
	Error   string          `json:"error,omitempty"`

	err error
}

// Err returns the sentinel behind Error, or nil.
func (r Response) Err() error {
	return r.err
}

type Engine struct {
	deps Deps
	opts Options
	log  zerolog.Logger
}

func New(deps Deps, opts Options, log zerolog.Logger) *Engine {
	if deps.Summarizer == nil {
		deps.Summarizer = summarize.New(summarize.DefaultConflictRules)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.MaxFetched <= 0 {
		opts.MaxFetched = defaultMaxFetched
	}
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = defaultMinTextLength
	}
	if opts.MaxSentences <= 0 {
		opts.MaxSentences = defaultMaxSentences
	}
	if opts.MinSources <= 0 {
		opts.MinSources = defaultMinSources
	}
	return &Engine{deps: deps, opts: opts, log: log}
}

// Run answers query. It never panics and never returns partial state: every
// path ends in a complete Response.
func (e *Engine) Run(ctx context.Context, query string, settings Settings) (resp Response) {
	runID := uuid.NewString()
	log := e.log.With().Str("run_id", runID).Logger()
	normalized := strings.TrimSpace(query)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("search run panicked")
			resp = failure(runID, normalized, ErrProviderFailure)
		}
	}()

	if normalized == "" {
		return failure(runID, "", ErrEmptyQuery)
	}

	settings = settings.Normalized()
	started := time.Now()
	log.Info().
		Str("query", normalized).
		Int("max_results", settings.MaxResults).
		Str("provider", string(settings.Provider)).
		Bool("safe_search", settings.SafeSearch).
		Msg("running search")

	results, err := e.deps.Resolver.Resolve(ctx, search.Request{
		Query:      normalized,
		MaxResults: settings.MaxResults,
		Provider:   settings.Provider,
		SafeSearch: settings.SafeSearch,
	})
	if err != nil {
		log.Error().Err(err).Str("query", normalized).Msg("search providers failed")
		return failure(runID, normalized, fmt.Errorf("%w: %v", ErrProviderFailure, err))
	}
	if len(results) == 0 {
		log.Info().Str("query", normalized).Msg("no search results")
		return failure(runID, normalized, ErrNoResults)
	}

	sources := e.filterFetch(ctx, log, results, settings)

	var summaries []summarize.SourceSummary
	for _, source := range sources {
		if source.summary != nil {
			summaries = append(summaries, *source.summary)
		}
	}

	var paragraph string
	var cited []string
	if len(summaries) == 0 {
		log.Info().Err(ErrInsufficientSources).Msg("falling back to search snippets")
		paragraph, cited = e.deps.Summarizer.SynthesizeFromSnippets(snippets(results, sources), normalized, 0)
	} else {
		paragraph, cited = e.deps.Summarizer.Synthesize(summaries, e.opts.MinSources, normalized, e.opts.MaxSentences)
	}

	log.Info().
		Int("results", len(results)).
		Int("sources", len(summaries)).
		Dur("took", time.Since(started)).
		Msg("search run finished")

	return Response{
		RunID:   runID,
		Query:   normalized,
		Results: results,
		Summary: paragraph,
		Sources: cited,
	}
}

func failure(runID, query string, err error) Response {
	message, summary := providerFailureError, providerFailureSummary
	switch {
	case errors.Is(err, ErrEmptyQuery):
		message, summary = emptyQueryError, emptyQuerySummary
	case errors.Is(err, ErrNoResults):
		message, summary = noResultsError, noResultsSummary
	}
	return Response{
		RunID:   runID,
		Query:   query,
		Results: []search.Result{},
		Summary: summary,
		Sources: []string{},
		Error:   message,
		err:     err,
	}
}

// sourceOutcome is what processing one result produced. page is kept so
// snippet fallback can borrow the page description.
type sourceOutcome struct {
	summary *summarize.SourceSummary
	page    string
	err     error
}

// filterFetch processes the top results in parallel. outcomes[i] always
// belongs to results[i], so rank order survives any completion order.
func (e *Engine) filterFetch(ctx context.Context, log zerolog.Logger, results []search.Result, settings Settings) []sourceOutcome {
	limit := settings.MaxResults
	if limit > e.opts.MaxFetched {
		limit = e.opts.MaxFetched
	}
	if limit > len(results) {
		limit = len(results)
	}

	outcomes := make([]sourceOutcome, limit)
	var group errgroup.Group
	group.SetLimit(e.opts.Concurrency)
	for i, result := range results[:limit] {
		group.Go(func() error {
			outcomes[i] = e.processSource(ctx, result.URL)
			if err := outcomes[i].err; err != nil {
				log.Info().Err(err).Str("url", result.URL).Msg("source skipped")
			}
			return nil
		})
	}
	_ = group.Wait()
	return outcomes
}

func (e *Engine) processSource(ctx context.Context, rawURL string) (out sourceOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = sourceOutcome{err: fmt.Errorf("%w: panic: %v", ErrFetchError, r)}
		}
	}()

	if strings.TrimSpace(rawURL) == "" {
		return sourceOutcome{err: ErrFetchError}
	}
	if e.deps.Robots != nil && !e.deps.Robots.Allowed(ctx, rawURL) {
		return sourceOutcome{err: ErrDisallowedByRobots}
	}

	page, status := e.deps.Fetcher.Fetch(ctx, rawURL)
	if page == "" {
		err := status.Err()
		if err == nil {
			err = ErrFetchError
		}
		return sourceOutcome{err: fmt.Errorf("%w (%s)", err, status)}
	}

	text := e.deps.Extractor.Extract(ctx, rawURL, page)
	if utf8.RuneCountInString(text) < e.opts.MinTextLength {
		return sourceOutcome{page: page, err: ErrExtractionTooThin}
	}

	bullets := e.deps.Summarizer.SourceBullets(text, summarize.DefaultMaxBullets)
	if len(bullets) == 0 {
		return sourceOutcome{page: page, err: ErrExtractionTooThin}
	}
	return sourceOutcome{
		summary: &summarize.SourceSummary{URL: rawURL, Bullets: bullets},
		page:    page,
	}
}

// snippets converts results for the snippet fallback. A result without a
// snippet borrows the description of its page when one was fetched.
func snippets(results []search.Result, sources []sourceOutcome) []summarize.Snippet {
	out := make([]summarize.Snippet, 0, len(results))
	for i, result := range results {
		snippet := strings.TrimSpace(result.Snippet)
		if snippet == "" && i < len(sources) && sources[i].page != "" {
			snippet = extract.PageMetadata(sources[i].page).Description
		}
		out = append(out, summarize.Snippet{URL: result.URL, Title: result.Title, Snippet: snippet})
	}
	return out
}
