package notifier

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/amishk599/leadradar/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleLead(company string) model.Lead {
	return model.Lead{
		Company:   company,
		Profile:   "Seed-stage fintech",
		Contacts:  []string{"founder@example.com"},
		Context:   "Looking for a fractional CTO to lead our platform rebuild",
		Timestamp: 1768471200,
		SourceURL: "https://reddit.com/r/startups/comments/abc",
		Role:      "fractional_cto",
		Status:    "NEW",
	}
}

func TestSlackNotifier_EmptyLeads(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())

	if err := n.Notify(nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_SingleLead(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify([]model.Lead{sampleLead("Acme Corp")}); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	if got := payload.Blocks[0].Text.Text; got != "🎯 Acme Corp: Fractional Cto" {
		t.Errorf("header text = %q", got)
	}
	if got := payload.Blocks[1].Fields[0].Text; got != "*Company:*\nAcme Corp" {
		t.Errorf("company field = %q", got)
	}
	if got := payload.Blocks[4].Text.Text; got != "*Profile:* Seed-stage fintech\n*Contacts:* founder@example.com" {
		t.Errorf("profile block = %q", got)
	}
	if got := payload.Blocks[5].Elements[0].URL; got != "https://reddit.com/r/startups/comments/abc" {
		t.Errorf("action URL = %q", got)
	}
}

func TestSlackNotifier_PayloadWithoutProfile(t *testing.T) {
	l := model.Lead{Company: "TestCo", Context: "need help", Role: "fractional_cto", Status: "NEW"}
	payload := buildPayload(l)

	if len(payload.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(payload.Blocks))
	}
	if got := payload.Blocks[2].Fields[0].Text; got != "*Posted:*\nJust detected" {
		t.Errorf("posted field = %q, want 'Just detected' for zero timestamp", got)
	}
	if payload.Blocks[4].Type != "actions" || payload.Blocks[5].Type != "divider" {
		t.Errorf("unexpected trailing blocks: %q %q", payload.Blocks[4].Type, payload.Blocks[5].Type)
	}
}

func TestSlackNotifier_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify([]model.Lead{sampleLead("X"), sampleLead("Y")}); err == nil {
		t.Error("expected error when all messages fail, got nil")
	}
}

func TestSlackNotifier_PartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify([]model.Lead{sampleLead("A"), sampleLead("B")}); err != nil {
		t.Errorf("expected nil (partial success), got %v", err)
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify([]model.Lead{sampleLead("Test")}); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestSendTestMessage(t *testing.T) {
	var got []model.Lead
	n := notifyFunc(func(leads []model.Lead) error {
		got = leads
		return nil
	})
	if err := SendTestMessage(n); err != nil {
		t.Fatalf("SendTestMessage: %v", err)
	}
	if len(got) != 1 || got[0].Company != "LeadRadar Test" {
		t.Errorf("got %+v", got)
	}
}

type notifyFunc func([]model.Lead) error

func (f notifyFunc) Notify(leads []model.Lead) error { return f(leads) }
