// Package robots answers whether a page may be fetched under its site's
// robots.txt.
package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = time.Hour
	maxRobotsBytes  = 512 * 1024
)

type Config struct {
	UserAgent string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

// Gate fetches robots.txt once per origin and caches the parsed rules.
// Any failure to obtain or parse the file allows the fetch: a site whose
// robots.txt is unreachable would otherwise silently lose every source.
type Gate struct {
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time

	mu    sync.Mutex
	rules map[string]cachedRules
}

type cachedRules struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

func NewGate(cfg Config, httpClient *http.Client, log zerolog.Logger) *Gate {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Gate{
		cfg:        cfg,
		httpClient: httpClient,
		log:        log,
		now:        time.Now,
		rules:      map[string]cachedRules{},
	}
}

// Allowed checks rawURL against robots.txt for the configured user agent.
func (g *Gate) Allowed(ctx context.Context, rawURL string) bool {
	return g.AllowedFor(ctx, rawURL, g.cfg.UserAgent)
}

// AllowedFor checks rawURL for an explicit user agent.
func (g *Gate) AllowedFor(ctx context.Context, rawURL, userAgent string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return true
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return true
	}

	data := g.rulesFor(ctx, scheme+"://"+strings.ToLower(parsed.Host))
	if data == nil {
		return true
	}
	if userAgent == "" {
		userAgent = "*"
	}
	return data.TestAgent(parsed.RequestURI(), userAgent)
}

func (g *Gate) rulesFor(ctx context.Context, origin string) *robotstxt.RobotsData {
	g.mu.Lock()
	if cached, ok := g.rules[origin]; ok && g.now().Sub(cached.fetchedAt) < g.cfg.CacheTTL {
		g.mu.Unlock()
		return cached.data
	}
	g.mu.Unlock()

	data, err := g.fetch(ctx, origin)
	if err != nil {
		g.log.Debug().Err(err).Str("origin", origin).Msg("robots.txt unavailable, allowing")
		if ctx.Err() != nil {
			return nil
		}
	}

	g.mu.Lock()
	g.rules[origin] = cachedRules{data: data, fetchedAt: g.now()}
	g.mu.Unlock()
	return data
}

func (g *Gate) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	requestCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	if g.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", g.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/plain,*/*;q=0.5")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	if data == nil {
		return nil, errors.New("parse robots.txt: no data")
	}
	return data, nil
}
