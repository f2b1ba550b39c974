package store

import (
	"context"

	"github.com/amishk599/leadradar/internal/model"
)

// DryRunStore reads through to an optional inner store and discards every
// write. Used by `check` so novelty still sees real history but nothing is saved.
type DryRunStore struct {
	inner model.HistoryStore
}

// NewDryRunStore wraps inner; a nil inner behaves as an empty store.
func NewDryRunStore(inner model.HistoryStore) *DryRunStore {
	return &DryRunStore{inner: inner}
}

func (s *DryRunStore) Priors(ctx context.Context, collection string) (map[string][]model.SignalRecord, error) {
	if s.inner == nil {
		return map[string][]model.SignalRecord{}, nil
	}
	return s.inner.Priors(ctx, collection)
}

func (s *DryRunStore) Signals(ctx context.Context, collection, company string) ([]model.SignalRecord, error) {
	if s.inner == nil {
		return nil, nil
	}
	return s.inner.Signals(ctx, collection, company)
}

func (s *DryRunStore) PutSignals(context.Context, string, string, []model.SignalRecord) error {
	return nil
}
