package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/amishk599/leadradar/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testRole uses minimal templates so the fake classifier can tell the stages apart.
func testRole() model.RoleConfig {
	return model.RoleConfig{
		Role:                    "fractional_cto",
		SearchQuery:             "fractional CTO",
		RelevancePromptTemplate: "REL {{.Signal}}",
		NoveltyPromptTemplate:   "NOV {{.Company}}|{{.NewSignal}}|{{range .Priors}}{{.}};{{end}}",
		CollectionName:          "leads_fractional_cto",
		RelevanceThreshold:      0.7,
	}
}

// fakeClassifier answers relevance and novelty prompts with canned text.
type fakeClassifier struct {
	mu           sync.Mutex
	relevance    func(prompt string) (string, error)
	novelty      func(prompt string) (string, error)
	relCalls     int
	noveltyCalls int
}

func (f *fakeClassifier) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.HasPrefix(prompt, "NOV ") {
		f.noveltyCalls++
		if f.novelty == nil {
			return `{"novelty_score": 0.9}`, nil
		}
		return f.novelty(prompt)
	}
	f.relCalls++
	return f.relevance(prompt)
}

func answer(text string) func(string) (string, error) {
	return func(string) (string, error) { return text, nil }
}

// fakeSource returns canned signals.
type fakeSource struct {
	signals []model.Signal
	err     error
	queries []string
}

func (s *fakeSource) FetchSignals(_ context.Context, query string) ([]model.Signal, error) {
	s.queries = append(s.queries, query)
	return s.signals, s.err
}

// memStore is an in-memory HistoryStore that counts writes.
type memStore struct {
	mu     sync.Mutex
	docs   map[string]map[string][]model.SignalRecord
	writes int
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]map[string][]model.SignalRecord)}
}

func (m *memStore) Priors(_ context.Context, collection string) (map[string][]model.SignalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]model.SignalRecord)
	for company, recs := range m.docs[collection] {
		out[company] = append([]model.SignalRecord(nil), recs...)
	}
	return out, nil
}

func (m *memStore) Signals(_ context.Context, collection, company string) ([]model.SignalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SignalRecord(nil), m.docs[collection][company]...), nil
}

func (m *memStore) PutSignals(_ context.Context, collection, company string, records []model.SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string][]model.SignalRecord)
	}
	m.docs[collection][company] = records
	m.writes++
	return nil
}

func (m *memStore) records(collection, company string) []model.SignalRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[collection][company]
}

// recordingNotifier records which leads were sent to Notify.
type recordingNotifier struct {
	notified []model.Lead
}

func (n *recordingNotifier) Notify(leads []model.Lead) error {
	n.notified = append(n.notified, leads...)
	return nil
}

// rejectFilter rejects signals containing word.
type rejectFilter struct{ word string }

func (f rejectFilter) Match(s model.Signal) bool { return !strings.Contains(s.Content, f.word) }
