package search

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// BackendConfig configures the standard backend set. URL fields override
// public endpoints and stay empty in production.
type BackendConfig struct {
	UserAgent       string
	DuckDuckGo      DuckDuckGoConfig
	ScrapeEndpoints []Endpoint
	LiteScrapeURL   string
	WikipediaAPIURL string
	WikipediaURL    string
	GoogleAPIKey    string
	GoogleCSEID     string
	GoogleEndpoint  string
	BraveAPIKey     string
	BraveBaseURL    string
}

// DefaultProviders builds every backend a Plan can name. Google Custom
// Search and Brave are left out when their credentials are missing or the
// client cannot be created.
func DefaultProviders(ctx context.Context, cfg BackendConfig, httpClient *http.Client, log zerolog.Logger) []Provider {
	ddg := cfg.DuckDuckGo
	if ddg.UserAgent == "" {
		ddg.UserAgent = cfg.UserAgent
	}

	providers := []Provider{
		NewDuckDuckGo(ddg, ModeAPI, httpClient),
		NewDuckDuckGo(ddg, ModeHTML, httpClient),
		NewDuckDuckGo(ddg, ModeLite, httpClient),
		NewHTMLScraper(cfg.ScrapeEndpoints, cfg.UserAgent, httpClient, log),
		NewLiteScraper(cfg.LiteScrapeURL, cfg.UserAgent, httpClient),
		NewWikipedia(cfg.WikipediaAPIURL, cfg.WikipediaURL, cfg.UserAgent, httpClient),
	}

	if brave, err := NewBrave(cfg.BraveAPIKey, cfg.BraveBaseURL, httpClient); err == nil {
		providers = append(providers, brave)
	} else {
		log.Debug().Err(err).Msg("brave search disabled")
	}

	if cfg.GoogleAPIKey == "" || cfg.GoogleCSEID == "" {
		log.Debug().Msg("google custom search disabled: credentials not configured")
		return providers
	}
	google, err := NewGoogleCSE(ctx, cfg.GoogleAPIKey, cfg.GoogleCSEID, cfg.GoogleEndpoint, httpClient)
	if err != nil {
		log.Warn().Err(err).Msg("google custom search disabled")
		return providers
	}
	return append(providers, google)
}
