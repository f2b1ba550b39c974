package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amishk599/leadradar/internal/model"
)

var acmeSignal = model.Signal{Content: "Acme is hiring a fractional CTO", Timestamp: 100, SourceURL: "u1"}

func newRelevance(t *testing.T, reply string) *RelevanceStage {
	t.Helper()
	s, err := NewRelevanceStage(&fakeClassifier{relevance: answer(reply)}, testRole(), time.Second)
	if err != nil {
		t.Fatalf("NewRelevanceStage: %v", err)
	}
	return s
}

func TestRelevanceBuildsLead(t *testing.T) {
	s := newRelevance(t, "Sure!\n```json\n"+
		`{"score": 0.9, "company": "Acme", "profile": "Seed SaaS", "contacts": ["cto@acme.io"], "context": "hiring fractional CTO", "timestamp": 5, "source_url": "spoofed"}`+
		"\n```")

	lead, err := s.Evaluate(context.Background(), acmeSignal)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if lead.Company != "Acme" || lead.Profile != "Seed SaaS" || lead.Context != "hiring fractional CTO" {
		t.Errorf("unexpected lead %+v", lead)
	}
	if len(lead.Contacts) != 1 || lead.Contacts[0] != "cto@acme.io" {
		t.Errorf("contacts = %v", lead.Contacts)
	}
	if lead.Timestamp != 100 || lead.SourceURL != "u1" {
		t.Errorf("timestamp/source_url should come from the signal, got %v %q", lead.Timestamp, lead.SourceURL)
	}
	if lead.Role != "fractional_cto" || lead.Status != model.DefaultStatus {
		t.Errorf("role=%q status=%q", lead.Role, lead.Status)
	}
}

func TestRelevanceKeepsClassifierStatus(t *testing.T) {
	s := newRelevance(t, `{"company": "Acme", "context": "x", "status": "HOT"}`)

	lead, err := s.Evaluate(context.Background(), acmeSignal)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if lead.Status != "HOT" {
		t.Errorf("status = %q, want HOT", lead.Status)
	}
}

func TestRelevanceDiscards(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  error
	}{
		{"no json", "This post is not about hiring.", model.ErrNoStructuredOutput},
		{"broken json", "```json\n{\"company\": \n```", model.ErrMalformedJSON},
		{"no company or context", `{"profile": "x"}`, model.ErrMalformedJSON},
		{"no company", `{"context": "hiring"}`, model.ErrNoCompany},
		{"company wrong type", `{"company": 42, "context": "hiring"}`, model.ErrMalformedJSON},
		{"score at threshold", `{"score": 0.7, "company": "Acme", "context": "x"}`, model.ErrBelowThreshold},
		{"score below threshold", `{"score": 0.2}`, model.ErrBelowThreshold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newRelevance(t, tt.reply).Evaluate(context.Background(), acmeSignal)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRelevanceClassifierTimeout(t *testing.T) {
	s, err := NewRelevanceStage(blockingProvider{}, testRole(), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewRelevanceStage: %v", err)
	}
	_, err = s.Evaluate(context.Background(), acmeSignal)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestRelevanceRejectsBadTemplate(t *testing.T) {
	role := testRole()
	role.RelevancePromptTemplate = "{{.Signal"
	if _, err := NewRelevanceStage(&fakeClassifier{}, role, time.Second); err == nil {
		t.Error("expected template parse error")
	}
}

// blockingProvider waits until its context is done.
type blockingProvider struct{}

func (blockingProvider) Complete(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
