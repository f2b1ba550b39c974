package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/amishk599/leadradar/internal/model"
)

// Fingerprint returns the sha256 hex digest of context after trimming and
// collapsing internal whitespace. Case is preserved.
func Fingerprint(context string) string {
	normalized := strings.Join(strings.Fields(context), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// LeadTracker appends accepted leads to each company's history, skipping
// any whose fingerprint is already recorded.
type LeadTracker struct {
	store  model.HistoryStore
	logger *slog.Logger
}

func NewLeadTracker(store model.HistoryStore, logger *slog.Logger) *LeadTracker {
	return &LeadTracker{store: store, logger: logger}
}

// StoreNewLeads persists leads into collection and returns the ones actually
// written. Duplicates and leads without a company are skipped silently.
// Per-lead store failures are joined into the returned error; leads saved
// before a failure are still returned.
func (t *LeadTracker) StoreNewLeads(ctx context.Context, collection string, leads []model.Lead) ([]model.Lead, error) {
	var (
		saved []model.Lead
		errs  []error
	)
	for _, lead := range leads {
		if lead.Company == "" {
			t.logger.Debug("skipping lead without company", "collection", collection)
			continue
		}
		rec := model.SignalRecord{
			Context:   lead.Context,
			Timestamp: lead.Timestamp,
			SourceURL: lead.SourceURL,
			Status:    lead.Status,
			Hash:      Fingerprint(lead.Context),
		}
		if rec.Status == "" {
			rec.Status = model.DefaultStatus
		}

		err := t.appendRecord(ctx, collection, lead.Company, rec)
		switch {
		case errors.Is(err, model.ErrDuplicateContent):
			t.logger.Debug("duplicate signal", "collection", collection, "company", lead.Company, "hash", rec.Hash[:12])
		case err != nil:
			errs = append(errs, fmt.Errorf("storing lead for %s: %w", lead.Company, err))
		default:
			saved = append(saved, lead)
		}
	}
	return saved, errors.Join(errs...)
}

func (t *LeadTracker) appendRecord(ctx context.Context, collection, company string, rec model.SignalRecord) error {
	add := func(current []model.SignalRecord) ([]model.SignalRecord, error) {
		if slices.ContainsFunc(current, func(r model.SignalRecord) bool { return r.Hash == rec.Hash }) {
			return nil, model.ErrDuplicateContent
		}
		return append(current, rec), nil
	}

	if u, ok := t.store.(model.HistoryUpdater); ok {
		return u.UpdateSignals(ctx, collection, company, add)
	}

	// Plain read-modify-write: a concurrent writer to the same company can
	// overwrite this append between the read and the write.
	current, err := t.store.Signals(ctx, collection, company)
	if err != nil {
		return err
	}
	updated, err := add(current)
	if err != nil {
		return err
	}
	return t.store.PutSignals(ctx, collection, company, updated)
}
