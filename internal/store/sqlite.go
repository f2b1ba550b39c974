package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/amishk599/leadradar/internal/model"
)

var (
	_ model.HistoryStore   = (*SQLiteStore)(nil)
	_ model.HistoryUpdater = (*SQLiteStore)(nil)
)

// SQLiteStore keeps each company's signal history as a JSON document in SQLite,
// one row per (collection, company).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// lead_history table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection serializes UpdateSignals transactions within the process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS lead_history (
		collection TEXT NOT NULL,
		company    TEXT NOT NULL,
		signals    TEXT NOT NULL DEFAULT '[]',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, company)
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating lead_history table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Priors returns every company's history in collection.
func (s *SQLiteStore) Priors(ctx context.Context, collection string) (map[string][]model.SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT company, signals FROM lead_history WHERE collection = ?", collection)
	if err != nil {
		return nil, fmt.Errorf("listing %s history: %w", collection, err)
	}
	defer rows.Close()

	priors := make(map[string][]model.SignalRecord)
	for rows.Next() {
		var company, raw string
		if err := rows.Scan(&company, &raw); err != nil {
			return nil, fmt.Errorf("scanning %s history: %w", collection, err)
		}
		records, err := decodeRecords([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", collection, company, err)
		}
		priors[company] = records
	}
	return priors, rows.Err()
}

// Signals returns company's history, or nil if it has none.
func (s *SQLiteStore) Signals(ctx context.Context, collection, company string) ([]model.SignalRecord, error) {
	return querySignals(ctx, s.db, collection, company)
}

// PutSignals replaces company's history with records.
func (s *SQLiteStore) PutSignals(ctx context.Context, collection, company string, records []model.SignalRecord) error {
	return upsertSignals(ctx, s.db, collection, company, records)
}

// UpdateSignals runs fn over company's history inside a transaction.
func (s *SQLiteStore) UpdateSignals(ctx context.Context, collection, company string, fn func([]model.SignalRecord) ([]model.SignalRecord, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s/%s update: %w", collection, company, err)
	}
	defer tx.Rollback()

	current, err := querySignals(ctx, tx, collection, company)
	if err != nil {
		return err
	}
	updated, err := fn(current)
	if err != nil {
		return err
	}
	if err := upsertSignals(ctx, tx, collection, company, updated); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s/%s update: %w", collection, company, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func querySignals(ctx context.Context, q queryer, collection, company string) ([]model.SignalRecord, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		"SELECT signals FROM lead_history WHERE collection = ? AND company = ?",
		collection, company,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", collection, company, err)
	}
	return decodeRecords([]byte(raw))
}

func upsertSignals(ctx context.Context, q queryer, collection, company string, records []model.SignalRecord) error {
	raw, err := encodeRecords(records)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO lead_history (collection, company, signals) VALUES (?, ?, ?)
		ON CONFLICT (collection, company) DO UPDATE SET signals = excluded.signals, updated_at = CURRENT_TIMESTAMP`,
		collection, company, string(raw),
	)
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", collection, company, err)
	}
	return nil
}

func decodeRecords(raw []byte) ([]model.SignalRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var records []model.SignalRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding signal records: %w", err)
	}
	return records, nil
}

func encodeRecords(records []model.SignalRecord) ([]byte, error) {
	if records == nil {
		records = []model.SignalRecord{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encoding signal records: %w", err)
	}
	return raw, nil
}
