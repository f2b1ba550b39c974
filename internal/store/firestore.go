package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/amishk599/leadradar/internal/model"
)

var (
	_ model.HistoryStore   = (*FirestoreStore)(nil)
	_ model.HistoryUpdater = (*FirestoreStore)(nil)
)

// historyDoc is the document shape at <collection>/<company>.
type historyDoc struct {
	Signals []model.SignalRecord `firestore:"signals"`
}

// FirestoreStore keeps one document per company, one collection per role.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to projectID using application default credentials
// (or FIRESTORE_EMULATOR_HOST when set).
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Priors(ctx context.Context, collection string) (map[string][]model.SignalRecord, error) {
	priors := make(map[string][]model.SignalRecord)
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", collection, err)
		}
		var doc historyDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", collection, snap.Ref.ID, err)
		}
		priors[snap.Ref.ID] = doc.Signals
	}
	return priors, nil
}

func (s *FirestoreStore) Signals(ctx context.Context, collection, company string) ([]model.SignalRecord, error) {
	snap, err := s.client.Collection(collection).Doc(company).Get(ctx)
	return snapshotSignals(snap, err, collection, company)
}

func (s *FirestoreStore) PutSignals(ctx context.Context, collection, company string, records []model.SignalRecord) error {
	if records == nil {
		records = []model.SignalRecord{}
	}
	_, err := s.client.Collection(collection).Doc(company).Set(ctx, historyDoc{Signals: records})
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", collection, company, err)
	}
	return nil
}

// UpdateSignals runs fn inside a Firestore transaction, which may retry fn on contention.
func (s *FirestoreStore) UpdateSignals(ctx context.Context, collection, company string, fn func([]model.SignalRecord) ([]model.SignalRecord, error)) error {
	ref := s.client.Collection(collection).Doc(company)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		current, err := snapshotSignals(snap, err, collection, company)
		if err != nil {
			return err
		}
		updated, err := fn(current)
		if err != nil {
			return err
		}
		if updated == nil {
			updated = []model.SignalRecord{}
		}
		return tx.Set(ref, historyDoc{Signals: updated})
	})
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func snapshotSignals(snap *firestore.DocumentSnapshot, err error, collection, company string) ([]model.SignalRecord, error) {
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", collection, company, err)
	}
	var doc historyDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decoding %s/%s: %w", collection, company, err)
	}
	return doc.Signals, nil
}
