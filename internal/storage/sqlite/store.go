// Package sqlite persists negotiation state so a restarted bot keeps
// answering the threads it opened.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/dyike/marktbot/internal/models"
	"github.com/dyike/marktbot/internal/negotiation"
)

type Store struct {
	db *sql.DB
}

// Event is one persisted stage change.
type Event struct {
	ID        string
	ListingID string
	From      models.Stage
	To        models.Stage
	At        time.Time
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS negotiations (
    listing_id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    link TEXT NOT NULL DEFAULT '',
    ask_price TEXT NOT NULL DEFAULT '0',
    counter_price TEXT NOT NULL DEFAULT '0',
    stage TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS negotiation_events (
    id TEXT PRIMARY KEY,
    listing_id TEXT NOT NULL REFERENCES negotiations(listing_id) ON DELETE CASCADE,
    from_stage TEXT NOT NULL,
    to_stage TEXT NOT NULL,
    at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_negotiation_events_listing ON negotiation_events(listing_id, id);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, listingID string) (models.NegotiationRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT listing_id, title, link, ask_price, counter_price, stage, created_at, updated_at
FROM negotiations WHERE listing_id = ?
`, listingID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NegotiationRecord{}, false, nil
	}
	if err != nil {
		return models.NegotiationRecord{}, false, err
	}
	return rec, true, nil
}

func (s *Store) Create(ctx context.Context, rec models.NegotiationRecord) error {
	if rec.Stage != models.StageAsked {
		return negotiation.ErrInvalidTransition
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO negotiations (listing_id, title, link, ask_price, counter_price, stage, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, rec.ListingID, rec.Title, rec.Link, rec.AskPrice.String(), rec.CounterPrice.String(),
		rec.Stage.String(), formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	if isConstraint(err) {
		return negotiation.ErrNegotiationExists
	}
	if err != nil {
		return fmt.Errorf("insert negotiation: %w", err)
	}

	if err := insertEvent(ctx, tx, rec.ListingID, models.StageNone, rec.Stage, rec.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// Advance moves a record exactly one stage forward inside a transaction, so
// two processes sharing the database cannot both apply the same step.
func (s *Store) Advance(ctx context.Context, rec models.NegotiationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin advance: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT stage FROM negotiations WHERE listing_id = ?`, rec.ListingID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return negotiation.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load stage: %w", err)
	}
	from, err := models.ParseStage(current)
	if err != nil {
		return err
	}
	if !from.CanAdvanceTo(rec.Stage) {
		return negotiation.ErrInvalidTransition
	}

	res, err := tx.ExecContext(ctx, `
UPDATE negotiations
SET counter_price = ?, stage = ?, updated_at = ?
WHERE listing_id = ? AND stage = ?
`, rec.CounterPrice.String(), rec.Stage.String(), formatTime(rec.UpdatedAt), rec.ListingID, current)
	if err != nil {
		return fmt.Errorf("update negotiation: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return negotiation.ErrInvalidTransition
	}

	if err := insertEvent(ctx, tx, rec.ListingID, from, rec.Stage, rec.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) List(ctx context.Context) ([]models.NegotiationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT listing_id, title, link, ask_price, counter_price, stage, created_at, updated_at
FROM negotiations ORDER BY created_at ASC, listing_id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list negotiations: %w", err)
	}
	defer rows.Close()

	var out []models.NegotiationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Events returns the stage history of one listing, oldest first.
func (s *Store) Events(ctx context.Context, listingID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, listing_id, from_stage, to_stage, at
FROM negotiation_events WHERE listing_id = ? ORDER BY id ASC
`, listingID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev       Event
			from, to string
			at       string
		)
		if err := rows.Scan(&ev.ID, &ev.ListingID, &from, &to, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.From, err = models.ParseStage(from); err != nil {
			return nil, err
		}
		if ev.To, err = models.ParseStage(to); err != nil {
			return nil, err
		}
		if ev.At, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func insertEvent(ctx context.Context, tx *sql.Tx, listingID string, from, to models.Stage, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO negotiation_events (id, listing_id, from_stage, to_stage, at)
VALUES (?, ?, ?, ?, ?)
`, ulid.Make().String(), listingID, from.String(), to.String(), formatTime(at))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (models.NegotiationRecord, error) {
	var (
		rec                  models.NegotiationRecord
		ask, counter, stage  string
		createdAt, updatedAt string
	)
	if err := sc.Scan(&rec.ListingID, &rec.Title, &rec.Link, &ask, &counter, &stage, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan negotiation: %w", err)
	}

	var err error
	if rec.AskPrice, err = decimal.NewFromString(ask); err != nil {
		return rec, fmt.Errorf("ask price %q: %w", ask, err)
	}
	if rec.CounterPrice, err = decimal.NewFromString(counter); err != nil {
		return rec, fmt.Errorf("counter price %q: %w", counter, err)
	}
	if rec.Stage, err = models.ParseStage(stage); err != nil {
		return rec, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return rec, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return rec, err
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", v, err)
	}
	return t, nil
}

func isConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

var _ negotiation.Store = (*Store)(nil)
