// Package fetch retrieves result pages with cache reuse, status
// classification, and per-host politeness.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"briefsearch/internal/cache"
	"briefsearch/internal/urlnorm"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultPoliteness   = 500 * time.Millisecond
	defaultMaxBytes     = int64(5_000_000)
	defaultPerHostLimit = 2
	defaultRedirects    = 5
)

// Status classifies the outcome of one Fetch.
type Status string

const (
	StatusCached       Status = "cached"
	StatusFetched      Status = "fetched"
	StatusBlocked      Status = "blocked"
	StatusHTTPError    Status = "http_error"
	StatusRequestError Status = "request_error"
)

var (
	ErrBlocked = errors.New("fetch blocked")
	ErrFailed  = errors.New("fetch failed")
)

// OK reports whether the status carries content.
func (s Status) OK() bool {
	return s == StatusCached || s == StatusFetched
}

// Err maps failure statuses to ErrBlocked or ErrFailed.
func (s Status) Err() error {
	switch s {
	case StatusCached, StatusFetched:
		return nil
	case StatusBlocked:
		return ErrBlocked
	default:
		return ErrFailed
	}
}

type Config struct {
	UserAgent       string
	Timeout         time.Duration
	PolitenessDelay time.Duration
	MaxBytes        int64
	PerHostLimit    int
	MaxRedirects    int
	// BlockPrivate refuses loopback and private network targets.
	BlockPrivate bool
}

// Fetcher downloads pages and stores raw bodies in the html namespace.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	store      cache.Store
	log        zerolog.Logger
	sleep      func(context.Context, time.Duration)

	hostsMu sync.Mutex
	hosts   map[string]chan struct{}
}

func New(cfg Config, httpClient *http.Client, store cache.Store, log zerolog.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PolitenessDelay < 0 {
		cfg.PolitenessDelay = 0
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.PerHostLimit <= 0 {
		cfg.PerHostLimit = defaultPerHostLimit
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultRedirects
	}
	if store == nil {
		store = cache.Nop{}
	}

	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.BlockPrivate {
			transport.DialContext = SecureDialContext(&net.Dialer{Timeout: cfg.Timeout})
		}
		httpClient = &http.Client{Transport: transport}
	} else {
		// Work on a copy so the caller's client keeps its own redirect policy.
		clone := *httpClient
		httpClient = &clone
	}
	redirects := cfg.MaxRedirects
	blockPrivate := cfg.BlockPrivate
	httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= redirects {
			return fmt.Errorf("too many redirects")
		}
		if _, err := validatePageURL(req.URL.String(), blockPrivate); err != nil {
			return err
		}
		return nil
	}

	return &Fetcher{
		cfg:        cfg,
		httpClient: httpClient,
		store:      store,
		log:        log,
		sleep:      sleepContext,
		hosts:      map[string]chan struct{}{},
	}
}

// Fetch returns the page body for rawURL. Content is empty unless the
// status is cached or fetched.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, Status) {
	key := urlnorm.CacheKey(rawURL)
	if data, err := f.store.Read(ctx, cache.NamespaceHTML, key); err == nil {
		return string(data), StatusCached
	} else if !errors.Is(err, cache.ErrNotFound) {
		f.log.Debug().Err(err).Str("url", rawURL).Msg("html cache read failed")
	}

	parsed, err := validatePageURL(rawURL, f.cfg.BlockPrivate)
	if err != nil {
		f.log.Debug().Err(err).Str("url", rawURL).Msg("refusing url")
		return "", StatusRequestError
	}

	release, err := f.acquireHost(ctx, strings.ToLower(parsed.Host))
	if err != nil {
		return "", StatusRequestError
	}
	defer release()

	body, status := f.get(ctx, parsed.String())
	if !status.OK() {
		return "", status
	}

	if err := f.store.Write(ctx, cache.NamespaceHTML, key, body); err != nil {
		f.log.Warn().Err(err).Str("url", rawURL).Msg("html cache write failed")
	}
	f.sleep(ctx, f.cfg.PolitenessDelay)
	return string(body), StatusFetched
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, Status) {
	requestCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, StatusRequestError
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain,application/pdf;q=0.9,*/*;q=0.2")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.log.Debug().Err(err).Str("url", target).Msg("page request failed")
		return nil, StatusRequestError
	}
	defer resp.Body.Close()

	if status := classifyStatus(resp.StatusCode); status != StatusFetched {
		f.log.Debug().Int("status", resp.StatusCode).Str("url", target).Msg("page request rejected")
		return nil, status
	}

	payload, truncated, err := readBoundedBody(resp.Body, f.cfg.MaxBytes)
	if err != nil {
		f.log.Debug().Err(err).Str("url", target).Msg("page body read failed")
		return nil, StatusRequestError
	}
	if truncated {
		f.log.Debug().Str("url", target).Int64("max_bytes", f.cfg.MaxBytes).Msg("page body truncated")
	}
	return payload, StatusFetched
}

func classifyStatus(code int) Status {
	switch {
	case code == http.StatusForbidden || code == http.StatusTooManyRequests:
		return StatusBlocked
	case code >= http.StatusBadRequest:
		return StatusHTTPError
	default:
		return StatusFetched
	}
}

// acquireHost bounds concurrent requests to one host.
func (f *Fetcher) acquireHost(ctx context.Context, host string) (func(), error) {
	f.hostsMu.Lock()
	sem, ok := f.hosts[host]
	if !ok {
		sem = make(chan struct{}, f.cfg.PerHostLimit)
		f.hosts[host] = sem
	}
	f.hostsMu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func readBoundedBody(r io.Reader, maxBytes int64) ([]byte, bool, error) {
	limited := io.LimitReader(r, maxBytes+1)
	payload, err := io.ReadAll(limited)
	if err != nil {
		return nil, false, err
	}
	if int64(len(payload)) > maxBytes {
		return payload[:maxBytes], true, nil
	}
	return payload, false, nil
}

func sleepContext(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
