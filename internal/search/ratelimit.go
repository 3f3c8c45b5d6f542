package search

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// limiter spaces calls across every backend of a chain. A nil limiter lets
// providers through unwrapped.
type limiter struct {
	rate *rate.Limiter
}

func newLimiter(minInterval time.Duration) *limiter {
	if minInterval <= 0 {
		return nil
	}
	return &limiter{rate: rate.NewLimiter(rate.Every(minInterval), 1)}
}

func (l *limiter) wrap(inner Provider) Provider {
	if l == nil || inner == nil {
		return inner
	}
	return &rateLimitedProvider{inner: inner, limiter: l}
}

type rateLimitedProvider struct {
	inner   Provider
	limiter *limiter
}

func (p *rateLimitedProvider) Name() string {
	return p.inner.Name()
}

func (p *rateLimitedProvider) Search(ctx context.Context, q Query) Outcome {
	if err := p.limiter.rate.Wait(ctx); err != nil {
		return Failed(fmt.Errorf("wait for %s turn: %w", p.inner.Name(), err))
	}
	return p.inner.Search(ctx, q)
}
