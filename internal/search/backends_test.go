package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgHTMLPage = `<html><body>
<div class="result result--ad"><a class="result__a" href="https://ads.example/buy">Sponsored</a></div>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa%23frag&amp;rut=x">Example <b>A</b></a>
  <a class="result__snippet">Snippet   for A</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/a">Example A again</a>
</div>
<div class="result">
  <a class="result__a" href="javascript:void(0)">Broken</a>
</div>
<div class="result">
  <a class="result__a" href="https://Example.org/B">Example B</a>
  <a class="result__snippet">Snippet for B</a>
</div>
</body></html>`

const ddgLitePage = `<html><body><table>
<tr><td><a class="result-link" href="https://lite.example/one">One</a></td></tr>
<tr><td class="result-snippet">First lite snippet</td></tr>
<tr><td><a class="result-link" href="/l/?uddg=https%3A%2F%2Flite.example%2Ftwo">Two</a></td></tr>
<tr><td class="result-snippet">Second lite snippet</td></tr>
</table></body></html>`

func newDDGServer(t *testing.T) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var lastForm atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script>var nrj = 1; vqd="4-123456789";</script></html>`))
	})
	mux.HandleFunc("/d.js", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("vqd") != "4-123456789" {
			http.Error(w, "bad vqd", http.StatusForbidden)
			return
		}
		lastForm.Store(r.URL.Query().Get("p"))
		_, _ = fmt.Fprint(w, `if (DDG.deep) DDG.pageLayout.load('d',[`+
			`{"u":"https://example.com/api","t":"API <b>hit</b>","a":"Body with <b>bold</b> text"},`+
			`{"u":"https://example.com/api#dup","t":"Dup","a":"dup"},`+
			`{"n":"/d.js?q=next&s=30"}`+
			`]);DDG.duckbar.load('images');`)
	})
	mux.HandleFunc("/html/", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		lastForm.Store(r.PostForm.Get("kp"))
		_, _ = w.Write([]byte(ddgHTMLPage))
	})
	mux.HandleFunc("/lite/", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		lastForm.Store(r.Form.Get("kp"))
		_, _ = w.Write([]byte(ddgLitePage))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &lastForm
}

func ddgConfig(server *httptest.Server) DuckDuckGoConfig {
	return DuckDuckGoConfig{
		BaseURL:   server.URL,
		LinksURL:  server.URL,
		HTMLURL:   server.URL + "/html/",
		LiteURL:   server.URL + "/lite/",
		UserAgent: "briefsearch-test",
	}
}

func TestDuckDuckGoAPIMode(t *testing.T) {
	server, safe := newDDGServer(t)
	ddg := NewDuckDuckGo(ddgConfig(server), ModeAPI, server.Client())
	assert.Equal(t, BackendDuckDuckGoAPI, ddg.Name())

	outcome := ddg.Search(context.Background(), Query{Text: "golang", Limit: 10, SafeSearch: false})
	require.True(t, outcome.OK(), "%v", outcome.Err)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, Result{
		Title:   "API hit",
		Snippet: "Body with bold text",
		URL:     "https://example.com/api",
		Domain:  "example.com",
	}, outcome.Results[0])
	assert.Equal(t, "-2", safe.Load())
}

func TestDuckDuckGoAPIModeMissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>no token here</html>"))
	}))
	defer server.Close()

	ddg := NewDuckDuckGo(DuckDuckGoConfig{BaseURL: server.URL, LinksURL: server.URL}, ModeAPI, server.Client())
	outcome := ddg.Search(context.Background(), Query{Text: "golang", Limit: 10})
	assert.ErrorIs(t, outcome.Err, errMissingVQD)
}

func TestDuckDuckGoHTMLMode(t *testing.T) {
	server, safe := newDDGServer(t)
	ddg := NewDuckDuckGo(ddgConfig(server), ModeHTML, server.Client())

	outcome := ddg.Search(context.Background(), Query{Text: "golang", Limit: 10, SafeSearch: true})
	require.True(t, outcome.OK(), "%v", outcome.Err)
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "https://example.com/a", outcome.Results[0].URL)
	assert.Equal(t, "Example A", outcome.Results[0].Title)
	assert.Equal(t, "Snippet for A", outcome.Results[0].Snippet)
	assert.Equal(t, "https://example.org/B", outcome.Results[1].URL)
	assert.Equal(t, "example.org", outcome.Results[1].Domain)
	assert.Equal(t, "1", safe.Load())
}

func TestDuckDuckGoHTMLModeRespectsLimit(t *testing.T) {
	server, _ := newDDGServer(t)
	ddg := NewDuckDuckGo(ddgConfig(server), ModeHTML, server.Client())

	outcome := ddg.Search(context.Background(), Query{Text: "golang", Limit: 1})
	require.Len(t, outcome.Results, 1)
}

func TestDuckDuckGoLiteMode(t *testing.T) {
	server, _ := newDDGServer(t)
	ddg := NewDuckDuckGo(ddgConfig(server), ModeLite, server.Client())

	outcome := ddg.Search(context.Background(), Query{Text: "golang", Limit: 10})
	require.True(t, outcome.OK(), "%v", outcome.Err)
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "https://lite.example/one", outcome.Results[0].URL)
	assert.Equal(t, "First lite snippet", outcome.Results[0].Snippet)
	assert.Equal(t, "https://lite.example/two", outcome.Results[1].URL)
	assert.Equal(t, "Second lite snippet", outcome.Results[1].Snippet)
}

func TestDuckDuckGoStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	ddg := NewDuckDuckGo(DuckDuckGoConfig{HTMLURL: server.URL}, ModeHTML, server.Client())
	outcome := ddg.Search(context.Background(), Query{Text: "golang", Limit: 10})

	var statusErr StatusError
	require.ErrorAs(t, outcome.Err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "slow down", statusErr.Body)
}

func TestHTMLScraperFallsThroughEndpoints(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/broken/":
			http.Error(w, "nope", http.StatusInternalServerError)
		case "/empty/":
			_, _ = w.Write([]byte("<html><body>no results</body></html>"))
		default:
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "golang", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(ddgHTMLPage))
		}
	}))
	defer server.Close()

	scraper := NewHTMLScraper([]Endpoint{
		{URL: server.URL + "/broken/", Method: http.MethodPost},
		{URL: server.URL + "/empty/", Method: http.MethodPost},
		{URL: server.URL + "/html/", Method: http.MethodGet},
		{URL: server.URL + "/never/", Method: http.MethodGet},
	}, "ua", server.Client(), zerolog.Nop())

	outcome := scraper.Search(context.Background(), Query{Text: "golang", Limit: 10})
	require.True(t, outcome.OK())
	require.Len(t, outcome.Results, 3)
	assert.Equal(t, "https://ads.example/buy", outcome.Results[0].URL)
	assert.Equal(t, "https://example.com/a", outcome.Results[1].URL)
	assert.Empty(t, outcome.Results[1].Snippet)
	assert.EqualValues(t, 3, calls.Load())
}

func TestHTMLScraperAllEndpointsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	scraper := NewHTMLScraper([]Endpoint{{URL: server.URL, Method: http.MethodPost}}, "ua", server.Client(), zerolog.Nop())
	outcome := scraper.Search(context.Background(), Query{Text: "golang", Limit: 10})
	assert.False(t, outcome.OK())
	assert.True(t, outcome.Empty())
}

func TestScrapersForwardSafeSearch(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		mu.Lock()
		seen = append(seen, r.Method+" kp="+r.Form.Get("kp"))
		mu.Unlock()
		_, _ = w.Write([]byte("<html><body>no results</body></html>"))
	}))
	defer server.Close()

	html := NewHTMLScraper([]Endpoint{{URL: server.URL + "/html/", Method: http.MethodPost}}, "ua", server.Client(), zerolog.Nop())
	lite := NewLiteScraper(server.URL+"/lite/", "ua", server.Client())

	html.Search(context.Background(), Query{Text: "golang", Limit: 10, SafeSearch: true})
	lite.Search(context.Background(), Query{Text: "golang", Limit: 10, SafeSearch: true})
	lite.Search(context.Background(), Query{Text: "golang", Limit: 10, SafeSearch: false})

	assert.Equal(t, []string{"POST kp=1", "GET kp=1", "GET kp=-2"}, seen)
}

func TestLiteScraper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(ddgLitePage))
	}))
	defer server.Close()

	scraper := NewLiteScraper(server.URL+"/lite/", "ua", server.Client())
	outcome := scraper.Search(context.Background(), Query{Text: "golang", Limit: 10})
	require.True(t, outcome.OK())
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "https://lite.example/two", outcome.Results[1].URL)
	assert.Empty(t, outcome.Results[1].Snippet)
}

func TestWikipediaBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "query", query.Get("action"))
		assert.Equal(t, "search", query.Get("list"))
		assert.Equal(t, "solar power", query.Get("srsearch"))
		assert.Equal(t, "2", query.Get("srlimit"))
		_, _ = w.Write([]byte(`{"query":{"search":[
			{"title":"Solar power","snippet":"<span class=\"searchmatch\">Solar</span> power &amp; energy"},
			{"title":"","snippet":"untitled"},
			{"title":"Solar power","snippet":"duplicate"},
			{"title":"Photovoltaics","snippet":""}
		]}}`))
	}))
	defer server.Close()

	wiki := NewWikipedia(server.URL, "https://en.wikipedia.org/wiki", "ua", server.Client())
	outcome := wiki.Search(context.Background(), Query{Text: "solar power", Limit: 2})
	require.True(t, outcome.OK(), "%v", outcome.Err)
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Solar_power", outcome.Results[0].URL)
	assert.Equal(t, "Solar power & energy", outcome.Results[0].Snippet)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Photovoltaics", outcome.Results[1].URL)
}

func TestWikipediaEscapesTitles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"query":{"search":[
			{"title":"C#","snippet":"language"},
			{"title":"C","snippet":"language"},
			{"title":"What? (album)","snippet":"album"}
		]}}`))
	}))
	defer server.Close()

	wiki := NewWikipedia(server.URL, "https://en.wikipedia.org/wiki/", "ua", server.Client())
	outcome := wiki.Search(context.Background(), Query{Text: "c", Limit: 5})
	require.True(t, outcome.OK(), "%v", outcome.Err)
	require.Len(t, outcome.Results, 3)
	assert.Equal(t, "https://en.wikipedia.org/wiki/C%23", outcome.Results[0].URL)
	assert.Equal(t, "https://en.wikipedia.org/wiki/C", outcome.Results[1].URL)
	assert.Equal(t, "https://en.wikipedia.org/wiki/What%3F_%28album%29", outcome.Results[2].URL)
}

func TestWikipediaBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	outcome := NewWikipedia(server.URL, "", "", server.Client()).Search(context.Background(), Query{Text: "x", Limit: 3})
	assert.False(t, outcome.OK())
}

func TestGoogleCSEPaginates(t *testing.T) {
	var starts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		assert.Equal(t, "secret-key", query.Get("key"))
		assert.Equal(t, "engine-id", query.Get("cx"))
		assert.Equal(t, "active", query.Get("safe"))
		starts = append(starts, query.Get("start"))

		start, _ := strconv.Atoi(query.Get("start"))
		items := make([]string, 0, googlePageSize)
		for i := 0; i < googlePageSize; i++ {
			items = append(items, fmt.Sprintf(`{"link":"https://site%d.example/","title":"Site %d","snippet":"About site %d"}`, start+i, start+i, start+i))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[` + strings.Join(items, ",") + `]}`))
	}))
	defer server.Close()

	google, err := NewGoogleCSE(context.Background(), "secret-key", "engine-id", server.URL+"/", server.Client())
	require.NoError(t, err)
	assert.Equal(t, BackendGoogleCSE, google.Name())

	outcome := google.Search(context.Background(), Query{Text: "golang", Limit: 12, SafeSearch: true})
	require.True(t, outcome.OK(), "%v", outcome.Err)
	require.Len(t, outcome.Results, 12)
	assert.Equal(t, []string{"1", "11"}, starts)
	assert.Equal(t, "https://site12.example/", outcome.Results[11].URL)
	assert.Equal(t, "About site 1", outcome.Results[0].Snippet)
}

func TestGoogleCSEFirstPageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	google, err := NewGoogleCSE(context.Background(), "k", "cx", server.URL+"/", server.Client())
	require.NoError(t, err)
	outcome := google.Search(context.Background(), Query{Text: "golang", Limit: 5})
	assert.False(t, outcome.OK())
}

func TestGoogleCSERequiresCredentials(t *testing.T) {
	_, err := NewGoogleCSE(context.Background(), "", "cx", "", nil)
	assert.ErrorIs(t, err, ErrMissingGoogleCredentials)
}

func TestDefaultProvidersOmitsGoogleWithoutCredentials(t *testing.T) {
	chain := NewChain(ChainConfig{}, nil, zerolog.Nop(),
		DefaultProviders(context.Background(), BackendConfig{UserAgent: "ua"}, nil, zerolog.Nop())...)

	assert.False(t, chain.Has(BackendGoogleCSE))
	for _, name := range Plan(ProviderDuckDuckGo) {
		assert.True(t, chain.Has(name), name)
	}
	assert.True(t, chain.Has(BackendWikipedia))

	withGoogle := NewChain(ChainConfig{}, nil, zerolog.Nop(),
		DefaultProviders(context.Background(), BackendConfig{GoogleAPIKey: "k", GoogleCSEID: "cx"}, nil, zerolog.Nop())...)
	assert.True(t, withGoogle.Has(BackendGoogleCSE))
}
