package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/leadradar/internal/model"
)

func redditPayload(n int) string {
	var children []string
	for i := 0; i < n; i++ {
		children = append(children, `{"data": {
			"title": "Acme is hiring",
			"selftext": "We need a &lt;b&gt;fractional CTO&lt;/b&gt;",
			"created_utc": 1700000000.0,
			"url": "https://reddit.com/r/startups/acme",
			"permalink": "/r/startups/acme"
		}}`)
	}
	return `{"data": {"children": [` + strings.Join(children, ",") + `]}}`
}

func TestRedditFetchSignals_Success(t *testing.T) {
	var gotQuery, gotSort, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("path = %q, want /search.json", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		gotSort = r.URL.Query().Get("sort")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(redditPayload(1)))
	}))
	defer srv.Close()

	src := NewRedditSource(srv.URL, "", 0, srv.Client())
	signals, err := src.FetchSignals(context.Background(), "businesses hiring fractional CTO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}

	s := signals[0]
	if s.Content != "Acme is hiring: We need a fractional CTO" {
		t.Errorf("Content = %q", s.Content)
	}
	if s.Timestamp != 1700000000 {
		t.Errorf("Timestamp = %v", s.Timestamp)
	}
	if s.SourceURL != "https://reddit.com/r/startups/acme" {
		t.Errorf("SourceURL = %q", s.SourceURL)
	}
	if gotQuery != "businesses hiring fractional CTO" {
		t.Errorf("q = %q", gotQuery)
	}
	if gotSort != "new" {
		t.Errorf("sort = %q, want new", gotSort)
	}
	if gotUA == "" {
		t.Error("expected a User-Agent header")
	}
}

func TestRedditFetchSignals_CapsAtTen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(redditPayload(25)))
	}))
	defer srv.Close()

	src := NewRedditSource(srv.URL, "", 50, srv.Client())
	signals, err := src.FetchSignals(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != model.MaxSignalsPerFetch {
		t.Errorf("got %d signals, want %d", len(signals), model.MaxSignalsPerFetch)
	}
}

func TestRedditFetchSignals_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewRedditSource(srv.URL, "", 10, srv.Client())
	_, err := src.FetchSignals(context.Background(), "q")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *model.HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests || httpErr.RetryAfter != 30*time.Second {
		t.Errorf("HTTPError = %+v", httpErr)
	}
}

func TestRedditFetchSignals_PermalinkFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"children": [{"data": {"title": "t", "selftext": "", "created_utc": 1, "url": "", "permalink": "/r/x/1"}}]}}`))
	}))
	defer srv.Close()

	src := NewRedditSource(srv.URL, "", 10, srv.Client())
	signals, err := src.FetchSignals(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signals[0].SourceURL != srv.URL+"/r/x/1" {
		t.Errorf("SourceURL = %q", signals[0].SourceURL)
	}
}

func TestRedditFetchSignals_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	src := NewRedditSource(srv.URL, "", 10, srv.Client())
	if _, err := src.FetchSignals(context.Background(), "q"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestExtractText(t *testing.T) {
	cases := map[string]string{
		"plain text":                          "plain text",
		"<p>Hello <b>world</b></p>":           "Hello world",
		"&lt;p&gt;encoded&lt;/p&gt; &amp; co": "encoded & co",
		"  spaced\n\nout  ":                   "spaced out",
	}
	for in, want := range cases {
		if got := extractText(in); got != want {
			t.Errorf("extractText(%q) = %q, want %q", in, got, want)
		}
	}
}
