package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/leadradar/internal/model"
)

// SourceRateLimiter enforces a minimum delay between requests to the same signal source.
type SourceRateLimiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time // key: source name
	minDelay time.Duration
}

// NewSourceRateLimiter creates a rate limiter that enforces minDelay between
// consecutive requests to the same source.
func NewSourceRateLimiter(minDelay time.Duration) *SourceRateLimiter {
	return &SourceRateLimiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last request to the given source.
// Returns an error if the context is cancelled while waiting.
func (r *SourceRateLimiter) Wait(ctx context.Context, source string) error {
	r.mu.Lock()
	last, ok := r.lastCall[source]
	now := time.Now()

	if !ok || now.Sub(last) >= r.minDelay {
		r.lastCall[source] = now
		r.mu.Unlock()
		return nil
	}

	remaining := r.minDelay - now.Sub(last)
	// Reserve the slot so concurrent callers queue behind this one.
	r.lastCall[source] = last.Add(r.minDelay)
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", source, ctx.Err())
	case <-time.After(remaining):
	}
	return nil
}

// RateLimitedSource is a decorator that enforces source-level rate limiting
// before delegating to the wrapped SignalSource.
type RateLimitedSource struct {
	inner   model.SignalSource
	limiter *SourceRateLimiter
	name    string
}

// NewRateLimitedSource wraps a SignalSource with rate limiting.
// All sources hitting the same backend should share the same limiter instance.
func NewRateLimitedSource(inner model.SignalSource, limiter *SourceRateLimiter, name string) *RateLimitedSource {
	return &RateLimitedSource{
		inner:   inner,
		limiter: limiter,
		name:    name,
	}
}

// FetchSignals waits for the rate limiter, then delegates to the wrapped source.
func (s *RateLimitedSource) FetchSignals(ctx context.Context, query string) ([]model.Signal, error) {
	if err := s.limiter.Wait(ctx, s.name); err != nil {
		return nil, err
	}
	return s.inner.FetchSignals(ctx, query)
}

// completer matches ai.LLMProvider.
type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LimitedProvider throttles classifier calls with a token bucket.
type LimitedProvider struct {
	inner   completer
	limiter *rate.Limiter
}

// NewLimitedProvider allows perSecond calls per second with the given burst.
// A non-positive perSecond disables throttling.
func NewLimitedProvider(inner completer, perSecond float64, burst int) *LimitedProvider {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &LimitedProvider{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

// Complete waits for a token, then delegates to the wrapped provider.
func (p *LimitedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limiter: %w", err)
	}
	return p.inner.Complete(ctx, prompt)
}
