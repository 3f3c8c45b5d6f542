// Package httpapi exposes the search engine as a small JSON API.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"briefsearch/internal/engine"
)

// Searcher runs one query to completion.
type Searcher interface {
	Run(ctx context.Context, query string, settings engine.Settings) engine.Response
}

type Handler struct {
	searcher Searcher
}

func NewHandler(searcher Searcher) Handler {
	return Handler{searcher: searcher}
}

func (h Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Search accepts {"query", "max_results", "safe_search", "provider"} and
// replies with the engine response. Settings are coerced the same way as
// any other untrusted mapping.
func (h Handler) Search(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeObject(w, r, "query", "max_results", "safe_search", "provider")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var query string
	if raw, ok := payload["query"]; ok && raw != nil {
		text, ok := raw.(string)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", "query must be a string")
			return
		}
		query = text
	}

	resp := h.searcher.Run(r.Context(), query, engine.SettingsFromMapping(payload))
	writeJSON(w, statusFor(resp.Err()), resp)
}

func statusFor(err error) int {
	switch {
	case err == nil, errors.Is(err, engine.ErrNoResults):
		return http.StatusOK
	case errors.Is(err, engine.ErrEmptyQuery):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrProviderFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
