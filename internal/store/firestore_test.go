package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/amishk599/leadradar/internal/model"
)

func newFirestoreStore(t *testing.T) (*FirestoreStore, string) {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	s, err := NewFirestoreStore(context.Background(), "leadradar-test")
	if err != nil {
		t.Fatalf("NewFirestoreStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, fmt.Sprintf("test_%d", time.Now().UnixNano())
}

func TestFirestoreMissingDocumentIsEmpty(t *testing.T) {
	s, coll := newFirestoreStore(t)

	got, err := s.Signals(context.Background(), coll, "Nobody")
	if err != nil {
		t.Fatalf("Signals: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %v", got)
	}
}

func TestFirestoreUpdateSignals(t *testing.T) {
	s, coll := newFirestoreStore(t)
	ctx := context.Background()

	err := s.UpdateSignals(ctx, coll, "Acme", func(cur []model.SignalRecord) ([]model.SignalRecord, error) {
		return append(cur, record("a", "h1")), nil
	})
	if err != nil {
		t.Fatalf("UpdateSignals: %v", err)
	}

	err = s.UpdateSignals(ctx, coll, "Acme", func([]model.SignalRecord) ([]model.SignalRecord, error) {
		return nil, model.ErrDuplicateContent
	})
	if !errors.Is(err, model.ErrDuplicateContent) {
		t.Fatalf("err = %v, want ErrDuplicateContent", err)
	}

	priors, err := s.Priors(ctx, coll)
	if err != nil {
		t.Fatalf("Priors: %v", err)
	}
	if len(priors["Acme"]) != 1 {
		t.Errorf("Priors = %+v", priors)
	}
}
