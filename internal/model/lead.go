package model

import "context"

// DefaultStatus is the lifecycle tag given to a lead when the classifier does not supply one.
const DefaultStatus = "NEW"

// MaxSignalsPerFetch bounds how many signals a source returns for one query.
const MaxSignalsPerFetch = 10

// Signal is one raw observed post about a company's hiring intent.
type Signal struct {
	Content   string  // post title + body
	Timestamp float64 // seconds since epoch
	SourceURL string
}

// RoleConfig is the static bundle of query, prompts and storage partition for one tracked role.
type RoleConfig struct {
	Role                    string
	SearchQuery             string
	RelevancePromptTemplate string
	NoveltyPromptTemplate   string
	CollectionName          string
	RelevanceThreshold      float64 // applied only when the classifier reports a score
}

// Lead is a signal judged to indicate genuine hiring intent for a role.
type Lead struct {
	Company   string   `json:"company"`
	Profile   string   `json:"profile,omitempty"`
	Contacts  []string `json:"contacts,omitempty"`
	Context   string   `json:"context"`
	Timestamp float64  `json:"timestamp"`
	SourceURL string   `json:"source_url"`
	Role      string   `json:"role"`
	Status    string   `json:"status"`
}

// SignalRecord is the persisted evidence of an accepted lead inside a company's history.
// Records are append-only; Hash is unique within one company's history.
type SignalRecord struct {
	Context   string  `json:"context" firestore:"context"`
	Timestamp float64 `json:"timestamp" firestore:"timestamp"`
	SourceURL string  `json:"source_url" firestore:"source_url"`
	Status    string  `json:"status" firestore:"status"`
	Hash      string  `json:"hash" firestore:"hash"`
}

// SignalSource fetches raw signals for a search query (e.g. Reddit search).
type SignalSource interface {
	FetchSignals(ctx context.Context, query string) ([]Signal, error)
}

// HistoryStore holds each company's accepted signal history, partitioned by collection.
// PutSignals replaces the whole list for (collection, company).
type HistoryStore interface {
	Priors(ctx context.Context, collection string) (map[string][]SignalRecord, error)
	Signals(ctx context.Context, collection, company string) ([]SignalRecord, error)
	PutSignals(ctx context.Context, collection, company string, records []SignalRecord) error
}

// HistoryUpdater is implemented by stores that can run a company's
// read-modify-write atomically. If fn returns an error nothing is written
// and the error is returned unchanged.
type HistoryUpdater interface {
	UpdateSignals(ctx context.Context, collection, company string, fn func([]SignalRecord) ([]SignalRecord, error)) error
}

// Notifier sends notifications for newly saved leads.
type Notifier interface {
	Notify(leads []Lead) error
}

// SignalFilter decides whether a signal is worth sending to the classifier.
type SignalFilter interface {
	Match(signal Signal) bool
}
