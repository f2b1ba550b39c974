package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/amishk599/leadradar/internal/model"
)

var (
	_ model.HistoryStore   = (*PostgresStore)(nil)
	_ model.HistoryUpdater = (*PostgresStore)(nil)
)

// PostgresStore keeps company histories in a Postgres jsonb column.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn and ensures the lead_history table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	const ddl = `
create table if not exists lead_history (
	collection text not null,
	company    text not null,
	signals    jsonb not null default '[]'::jsonb,
	updated_at timestamptz not null default now(),
	primary key (collection, company)
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating lead_history table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Priors(ctx context.Context, collection string) (map[string][]model.SignalRecord, error) {
	const q = `select company, signals from lead_history where collection=$1`
	rows, err := s.db.QueryContext(ctx, q, collection)
	if err != nil {
		return nil, fmt.Errorf("listing %s history: %w", collection, err)
	}
	defer rows.Close()

	priors := make(map[string][]model.SignalRecord)
	for rows.Next() {
		var (
			company string
			js      []byte
		)
		if err := rows.Scan(&company, &js); err != nil {
			return nil, fmt.Errorf("scanning %s history: %w", collection, err)
		}
		records, err := decodeRecords(js)
		if err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", collection, company, err)
		}
		priors[company] = records
	}
	return priors, rows.Err()
}

func (s *PostgresStore) Signals(ctx context.Context, collection, company string) ([]model.SignalRecord, error) {
	const q = `select signals from lead_history where collection=$1 and company=$2`
	var js []byte
	err := s.db.QueryRowContext(ctx, q, collection, company).Scan(&js)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", collection, company, err)
	}
	return decodeRecords(js)
}

func (s *PostgresStore) PutSignals(ctx context.Context, collection, company string, records []model.SignalRecord) error {
	js, err := encodeRecords(records)
	if err != nil {
		return err
	}
	const q = `
insert into lead_history(collection, company, signals)
values ($1,$2,$3)
on conflict (collection, company)
do update set signals=excluded.signals, updated_at=now()`
	if _, err := s.db.ExecContext(ctx, q, collection, company, js); err != nil {
		return fmt.Errorf("writing %s/%s: %w", collection, company, err)
	}
	return nil
}

// UpdateSignals locks the company row for the duration of fn.
func (s *PostgresStore) UpdateSignals(ctx context.Context, collection, company string, fn func([]model.SignalRecord) ([]model.SignalRecord, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s/%s update: %w", collection, company, err)
	}
	defer tx.Rollback()

	// Make sure a row exists so FOR UPDATE has something to lock.
	const ensure = `insert into lead_history(collection, company) values ($1,$2) on conflict do nothing`
	if _, err := tx.ExecContext(ctx, ensure, collection, company); err != nil {
		return fmt.Errorf("reserving %s/%s: %w", collection, company, err)
	}

	const sel = `select signals from lead_history where collection=$1 and company=$2 for update`
	var js []byte
	if err := tx.QueryRowContext(ctx, sel, collection, company).Scan(&js); err != nil {
		return fmt.Errorf("locking %s/%s: %w", collection, company, err)
	}
	current, err := decodeRecords(js)
	if err != nil {
		return err
	}

	updated, err := fn(current)
	if err != nil {
		return err
	}
	out, err := encodeRecords(updated)
	if err != nil {
		return err
	}
	const upd = `update lead_history set signals=$3, updated_at=now() where collection=$1 and company=$2`
	if _, err := tx.ExecContext(ctx, upd, collection, company, out); err != nil {
		return fmt.Errorf("writing %s/%s: %w", collection, company, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s/%s update: %w", collection, company, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
