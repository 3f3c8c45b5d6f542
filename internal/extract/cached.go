package extract

import (
	"context"
	"errors"

	"briefsearch/internal/cache"
	"briefsearch/internal/urlnorm"

	"github.com/rs/zerolog"
)

// Extractor memoizes Text in the text namespace of a cache store.
type Extractor struct {
	store cache.Store
	log   zerolog.Logger
}

func NewExtractor(store cache.Store, log zerolog.Logger) *Extractor {
	if store == nil {
		store = cache.Nop{}
	}
	return &Extractor{store: store, log: log}
}

// Extract returns cached text for rawURL, or extracts page and stores the
// result when it is non-empty.
func (e *Extractor) Extract(ctx context.Context, rawURL, page string) string {
	key := urlnorm.CacheKey(rawURL)
	if data, err := e.store.Read(ctx, cache.NamespaceText, key); err == nil {
		return string(data)
	} else if !errors.Is(err, cache.ErrNotFound) {
		e.log.Debug().Err(err).Str("url", rawURL).Msg("text cache read failed")
	}

	text := Text(page)
	if text == "" {
		return ""
	}
	if err := e.store.Write(ctx, cache.NamespaceText, key, []byte(text)); err != nil {
		e.log.Warn().Err(err).Str("url", rawURL).Msg("text cache write failed")
	}
	return text
}
