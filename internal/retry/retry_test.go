package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/leadradar/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fastPolicy = Policy{MaxRetries: 2, BaseDelay: 10 * time.Millisecond}

// mockSource calls a function on each invocation, tracking call count.
type mockSource struct {
	calls int
	fn    func(attempt int) ([]model.Signal, error)
}

func (m *mockSource) FetchSignals(_ context.Context, _ string) ([]model.Signal, error) {
	m.calls++
	return m.fn(m.calls)
}

type mockProvider struct {
	calls int
	fn    func(attempt int) (string, error)
}

func (m *mockProvider) Complete(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.fn(m.calls)
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	signals := []model.Signal{{Content: "Acme hiring", SourceURL: "u1"}}
	mock := &mockSource{fn: func(_ int) ([]model.Signal, error) {
		return signals, nil
	}}

	rs := NewRetrySource(mock, fastPolicy, discardLogger())
	got, err := rs.FetchSignals(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].SourceURL != "u1" {
		t.Fatalf("unexpected signals: %v", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockSource{fn: func(attempt int) ([]model.Signal, error) {
		if attempt == 1 {
			return nil, &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return []model.Signal{{Content: "x"}}, nil
	}}

	rs := NewRetrySource(mock, fastPolicy, discardLogger())
	got, err := rs.FetchSignals(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(got))
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryOn4xx(t *testing.T) {
	mock := &mockSource{fn: func(_ int) ([]model.Signal, error) {
		return nil, &model.HTTPError{StatusCode: 404, Err: errors.New("not found")}
	}}

	rs := NewRetrySource(mock, fastPolicy, discardLogger())
	_, err := rs.FetchSignals(context.Background(), "q")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Fatalf("expected HTTPError with status 404, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockProvider{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	rp := NewRetryProvider(mock, fastPolicy, discardLogger())
	_, err := rp.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	// 1 initial + 2 retries = 3
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_ProviderRecoversFrom429(t *testing.T) {
	mock := &mockProvider{fn: func(attempt int) (string, error) {
		if attempt == 1 {
			return "", &model.HTTPError{StatusCode: 429, RetryAfter: time.Millisecond}
		}
		return `{"novelty_score": 0.9}`, nil
	}}

	rp := NewRetryProvider(mock, Policy{MaxRetries: 1, BaseDelay: time.Hour}, discardLogger())
	got, err := rp.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"novelty_score": 0.9}` {
		t.Errorf("got %q", got)
	}
}

func TestRetry_DoesNotRetryDeadlineExceeded(t *testing.T) {
	mock := &mockProvider{fn: func(_ int) (string, error) {
		return "", context.DeadlineExceeded
	}}

	rp := NewRetryProvider(mock, fastPolicy, discardLogger())
	if _, err := rp.Complete(context.Background(), "prompt"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockSource{fn: func(_ int) ([]model.Signal, error) {
		return nil, &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel immediately so the backoff sleep is interrupted.
	cancel()

	rs := NewRetrySource(mock, Policy{MaxRetries: 2, BaseDelay: time.Second}, discardLogger())
	_, err := rs.FetchSignals(ctx, "q")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}
