package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Mode selects how the DuckDuckGo client retrieves results.
type Mode string

const (
	ModeAPI  Mode = "api"
	ModeHTML Mode = "html"
	ModeLite Mode = "lite"
)

const (
	defaultDDGBaseURL  = "https://duckduckgo.com"
	defaultDDGLinksURL = "https://links.duckduckgo.com"
	defaultDDGHTMLURL  = "https://html.duckduckgo.com/html/"
	defaultDDGLiteURL  = "https://lite.duckduckgo.com/lite/"
	ddgRegion          = "wt-wt"
	ddgPageLayoutStart = "DDG.pageLayout.load('d',"
)

var (
	vqdPattern = regexp.MustCompile(`vqd=["']?([\d-]+)["'&]?`)

	errMissingVQD = errors.New("duckduckgo: vqd token not found")
)

// DuckDuckGoConfig points the client at its endpoints. Empty fields use the
// public DuckDuckGo hosts.
type DuckDuckGoConfig struct {
	BaseURL   string
	LinksURL  string
	HTMLURL   string
	LiteURL   string
	UserAgent string
}

func (c DuckDuckGoConfig) withDefaults() DuckDuckGoConfig {
	if c.BaseURL == "" {
		c.BaseURL = defaultDDGBaseURL
	}
	if c.LinksURL == "" {
		c.LinksURL = defaultDDGLinksURL
	}
	if c.HTMLURL == "" {
		c.HTMLURL = defaultDDGHTMLURL
	}
	if c.LiteURL == "" {
		c.LiteURL = defaultDDGLiteURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.LinksURL = strings.TrimRight(c.LinksURL, "/")
	return c
}

// DuckDuckGo is the primary backend. Each Mode is registered as its own
// provider so the chain can fall through them in order.
type DuckDuckGo struct {
	cfg        DuckDuckGoConfig
	mode       Mode
	httpClient *http.Client
}

func NewDuckDuckGo(cfg DuckDuckGoConfig, mode Mode, httpClient *http.Client) *DuckDuckGo {
	return &DuckDuckGo{
		cfg:        cfg.withDefaults(),
		mode:       mode,
		httpClient: httpClientOrDefault(httpClient),
	}
}

func (d *DuckDuckGo) Name() string {
	return "duckduckgo:" + string(d.mode)
}

func (d *DuckDuckGo) Search(ctx context.Context, q Query) Outcome {
	var (
		results []Result
		err     error
	)
	switch d.mode {
	case ModeAPI:
		results, err = d.searchAPI(ctx, q)
	case ModeHTML:
		results, err = d.searchHTML(ctx, q)
	case ModeLite:
		results, err = d.searchLite(ctx, q)
	default:
		err = fmt.Errorf("duckduckgo: unknown mode %q", d.mode)
	}
	if err != nil {
		return Failed(err)
	}
	return Ok(results)
}

// safeParam maps safe search to DuckDuckGo's kp/p values: 1 strict, -2 off.
func safeParam(safe bool) string {
	if safe {
		return "1"
	}
	return "-2"
}

type ddgAPIItem struct {
	URL   string `json:"u"`
	Title string `json:"t"`
	Body  string `json:"a"`
	Next  string `json:"n"`
}

func (d *DuckDuckGo) searchAPI(ctx context.Context, q Query) ([]Result, error) {
	vqd, err := d.fetchVQD(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("kl", ddgRegion)
	params.Set("l", ddgRegion)
	params.Set("p", safeParam(q.SafeSearch))
	params.Set("s", "0")
	params.Set("df", "")
	params.Set("vqd", vqd)
	params.Set("ex", "-1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.LinksURL+"/d.js?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build duckduckgo api request: %w", err)
	}
	setBrowserHeaders(req, d.cfg.UserAgent)
	req.Header.Set("Referer", d.cfg.BaseURL+"/")

	body, err := doRequest(d.httpClient, d.Name(), req)
	if err != nil {
		return nil, err
	}
	items, err := parseDDGPageLayout(body)
	if err != nil {
		return nil, err
	}

	c := newCollector(q.Limit)
	for _, item := range items {
		if item.Next != "" || item.URL == "" {
			continue
		}
		if c.add(item.URL, htmlText(item.Title), htmlText(item.Body)) {
			break
		}
	}
	return c.results, nil
}

func (d *DuckDuckGo) fetchVQD(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.BaseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build duckduckgo vqd request: %w", err)
	}
	setBrowserHeaders(req, d.cfg.UserAgent)

	body, err := doRequest(d.httpClient, d.Name(), req)
	if err != nil {
		return "", err
	}
	match := vqdPattern.FindSubmatch(body)
	if match == nil {
		return "", errMissingVQD
	}
	return string(match[1]), nil
}

// parseDDGPageLayout decodes the result array embedded in d.js.
func parseDDGPageLayout(body []byte) ([]ddgAPIItem, error) {
	start := bytes.Index(body, []byte(ddgPageLayoutStart))
	if start < 0 {
		return nil, nil
	}
	var items []ddgAPIItem
	decoder := json.NewDecoder(bytes.NewReader(body[start+len(ddgPageLayoutStart):]))
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode duckduckgo api results: %w", err)
	}
	return items, nil
}

func (d *DuckDuckGo) searchHTML(ctx context.Context, q Query) ([]Result, error) {
	doc, err := d.postForm(ctx, d.cfg.HTMLURL, q)
	if err != nil {
		return nil, err
	}

	c := newCollector(q.Limit)
	doc.Find("div.result").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if item.HasClass("result--ad") {
			return true
		}
		link := item.Find("a.result__a").First()
		href, _ := link.Attr("href")
		return !c.add(href, link.Text(), item.Find(".result__snippet").First().Text())
	})
	return c.results, nil
}

func (d *DuckDuckGo) searchLite(ctx context.Context, q Query) ([]Result, error) {
	doc, err := d.postForm(ctx, d.cfg.LiteURL, q)
	if err != nil {
		return nil, err
	}

	snippets := doc.Find("td.result-snippet")
	c := newCollector(q.Limit)
	doc.Find("a.result-link").EachWithBreak(func(i int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		return !c.add(href, link.Text(), snippets.Eq(i).Text())
	})
	return c.results, nil
}

func (d *DuckDuckGo) postForm(ctx context.Context, endpoint string, q Query) (*goquery.Document, error) {
	form := url.Values{}
	form.Set("q", q.Text)
	form.Set("kl", ddgRegion)
	form.Set("kp", safeParam(q.SafeSearch))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", d.Name(), err)
	}
	setBrowserHeaders(req, d.cfg.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", d.cfg.BaseURL+"/")

	body, err := doRequest(d.httpClient, d.Name(), req)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s page: %w", d.Name(), err)
	}
	return doc, nil
}
