package engine

import (
	"errors"
	"fmt"

	"briefsearch/internal/fetch"
)

var (
	ErrEmptyQuery          = errors.New("query is empty")
	ErrProviderFailure     = errors.New("search providers failed")
	ErrNoResults           = errors.New("no search results")
	ErrFetchBlocked        = fetch.ErrBlocked
	ErrDisallowedByRobots  = fmt.Errorf("%w: disallowed by robots.txt", ErrFetchBlocked)
	ErrFetchError          = fetch.ErrFailed
	ErrExtractionTooThin   = errors.New("extracted text too thin")
	ErrInsufficientSources = errors.New("no source yielded usable text")
)

// Messages shown to users for the errors that end a run early.
const (
	emptyQueryError   = "Query cannot be empty."
	emptyQuerySummary = "Please provide a search topic."

	providerFailureError   = "Search providers failed. Try a different query or provider."
	providerFailureSummary = "The search request failed before results were returned. Try another query and retry."

	noResultsError   = "No results were returned."
	noResultsSummary = "Not enough high-quality sources were accessible to produce a reliable summary. " +
		"No search results were returned or accessible; this can happen due to network restrictions " +
		"or a very narrow query."
)

// NoResultsSummary is the paragraph written when a query finds nothing.
const NoResultsSummary = noResultsSummary

// FailureResponse is the response of a run that err ended early. Errors
// other than ErrEmptyQuery and ErrNoResults read as provider failures.
func FailureResponse(query string, err error) Response {
	return failure("", query, err)
}
