package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"briefsearch/internal/config"
	"briefsearch/internal/engine"
	"briefsearch/internal/search"

	"github.com/rs/zerolog"
)

type stubSearcher struct {
	calls    int
	query    string
	settings engine.Settings
	run      func(query string) engine.Response
}

func (s *stubSearcher) Run(_ context.Context, query string, settings engine.Settings) engine.Response {
	s.calls++
	s.query = query
	s.settings = settings
	if s.run != nil {
		return s.run(query)
	}
	return engine.Response{Query: query, Summary: "Solar output rose.", Sources: []string{"https://a.example/"}}
}

func newTestRouter(searcher Searcher) http.Handler {
	return NewRouter(config.Config{AllowedOrigins: []string{"*"}}, NewHandler(searcher), zerolog.Nop())
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&stubSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestSearchRejectsMalformedJSON(t *testing.T) {
	searcher := &stubSearcher{}
	router := newTestRouter(searcher)

	for _, body := range []string{`{"query":`, `[]`, `{"query":"a"}{"query":"b"}`, `{"query":"a","extra":1}`, `{"query":7}`} {
		req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
		var payload errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode error body: %v", err)
		}
		if payload.Error.Code != "invalid_request" {
			t.Fatalf("unexpected error code %q", payload.Error.Code)
		}
	}
	if searcher.calls != 0 {
		t.Fatalf("expected no engine calls, got %d", searcher.calls)
	}
}

func TestSearchPassesSettings(t *testing.T) {
	searcher := &stubSearcher{}
	router := newTestRouter(searcher)

	body := `{"query":"solar power","max_results":"5","safe_search":false,"provider":"wikipedia"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if searcher.query != "solar power" {
		t.Fatalf("unexpected query %q", searcher.query)
	}
	want := engine.Settings{MaxResults: 5, SafeSearch: false, Provider: search.ProviderWikipedia}
	if searcher.settings != want {
		t.Fatalf("unexpected settings %+v", searcher.settings)
	}

	var resp engine.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Summary != "Solar output rose." || len(resp.Sources) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSearchMapsEngineErrors(t *testing.T) {
	tests := []struct {
		name   string
		resp   engine.Response
		status int
	}{
		{"empty query", engine.FailureResponse("", engine.ErrEmptyQuery), http.StatusUnprocessableEntity},
		{"provider failure", engine.FailureResponse("q", engine.ErrProviderFailure), http.StatusBadGateway},
		{"no results", engine.FailureResponse("q", engine.ErrNoResults), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &stubSearcher{run: func(string) engine.Response { return tt.resp }}
			router := newTestRouter(searcher)

			req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"q"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}
