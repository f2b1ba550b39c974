package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/amishk599/leadradar/internal/model"
)

func TestWait_SameSource_EnforcesMinDelay(t *testing.T) {
	limiter := NewSourceRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "reddit"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "reddit"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentSources_NoCrossBlocking(t *testing.T) {
	limiter := NewSourceRateLimiter(200 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "reddit"); err != nil {
		t.Fatalf("reddit wait: %v", err)
	}

	// Immediately call for another source; should not block.
	start := time.Now()
	if err := limiter.Wait(ctx, "hackernews"); err != nil {
		t.Fatalf("hackernews wait: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 50*time.Millisecond {
		t.Errorf("expected near-instant wait for a different source, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewSourceRateLimiter(5 * time.Second) // long delay

	// First call to seed the last-call time.
	if err := limiter.Wait(context.Background(), "reddit"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, "reddit"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

type recordingSource struct {
	calls int
}

func (s *recordingSource) FetchSignals(_ context.Context, _ string) ([]model.Signal, error) {
	s.calls++
	return nil, nil
}

func TestRateLimitedSource_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewSourceRateLimiter(100 * time.Millisecond)
	inner := &recordingSource{}
	source := NewRateLimitedSource(inner, limiter, "reddit")
	ctx := context.Background()

	if _, err := source.FetchSignals(ctx, "q"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	start := time.Now()
	if _, err := source.FetchSignals(ctx, "q"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	elapsed := time.Since(start)

	if inner.calls != 2 {
		t.Fatalf("inner calls = %d, want 2", inner.calls)
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second fetch, got %v", elapsed)
	}
}

type countingProvider struct {
	calls int
}

func (p *countingProvider) Complete(_ context.Context, _ string) (string, error) {
	p.calls++
	return "{}", nil
}

func TestLimitedProvider_Unlimited(t *testing.T) {
	inner := &countingProvider{}
	p := NewLimitedProvider(inner, 0, 0)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := p.Complete(context.Background(), "x"); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}
	if inner.calls != 5 {
		t.Errorf("calls = %d, want 5", inner.calls)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("unlimited provider should not throttle")
	}
}

func TestLimitedProvider_Throttles(t *testing.T) {
	inner := &countingProvider{}
	p := NewLimitedProvider(inner, 10, 1) // one token every 100ms

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := p.Complete(context.Background(), "x"); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}
	// First call uses the burst token; two more need ~200ms.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("expected >= 150ms for 3 calls at 10/s, got %v", elapsed)
	}
}

func TestLimitedProvider_CancelledContext(t *testing.T) {
	inner := &countingProvider{}
	p := NewLimitedProvider(inner, 0.001, 1)
	// Drain the burst token.
	if _, err := p.Complete(context.Background(), "x"); err != nil {
		t.Fatalf("first Complete: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Complete(ctx, "x"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}
