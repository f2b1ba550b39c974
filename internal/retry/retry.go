package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/leadradar/internal/model"
)

// Policy controls how transient failures are retried.
// MaxRetries is the number of additional attempts after the first failure.
// BaseDelay is the delay before the first retry, doubled on each subsequent retry.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Do runs fn, retrying transient errors with exponential backoff and jitter.
// op names the operation in log lines.
func Do[T any](ctx context.Context, p Policy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}
	if !isRetryable(err) {
		return zero, err
	}

	lastErr := err
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		delay := p.backoffDelay(attempt, lastErr)

		logger.Warn("retrying after transient error",
			"op", op,
			"attempt", attempt,
			"max_retries", p.MaxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (p Policy) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation is never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		// 429 Too Many Requests and 5xx are retryable; other 4xx are not.
		if httpErr.StatusCode == 429 {
			return true
		}
		return httpErr.StatusCode >= 500
	}

	// Non-HTTP errors (network, DNS) are retryable.
	return true
}

// RetrySource is a decorator that retries transient failures of a SignalSource.
type RetrySource struct {
	inner  model.SignalSource
	policy Policy
	logger *slog.Logger
}

// NewRetrySource wraps a SignalSource with retry logic.
func NewRetrySource(inner model.SignalSource, policy Policy, logger *slog.Logger) *RetrySource {
	return &RetrySource{inner: inner, policy: policy, logger: logger}
}

// FetchSignals attempts to fetch signals, retrying on transient errors.
func (s *RetrySource) FetchSignals(ctx context.Context, query string) ([]model.Signal, error) {
	return Do(ctx, s.policy, s.logger, "fetch_signals", func(ctx context.Context) ([]model.Signal, error) {
		return s.inner.FetchSignals(ctx, query)
	})
}

// completer matches ai.LLMProvider.
type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RetryProvider is a decorator that retries transient classifier failures.
type RetryProvider struct {
	inner  completer
	policy Policy
	logger *slog.Logger
}

// NewRetryProvider wraps an LLM provider with retry logic.
func NewRetryProvider(inner completer, policy Policy, logger *slog.Logger) *RetryProvider {
	return &RetryProvider{inner: inner, policy: policy, logger: logger}
}

// Complete calls the wrapped provider, retrying on transient errors.
func (p *RetryProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return Do(ctx, p.policy, p.logger, "llm_complete", func(ctx context.Context) (string, error) {
		return p.inner.Complete(ctx, prompt)
	})
}
