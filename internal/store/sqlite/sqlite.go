// Package sqlite is an embedded history store for single-machine installs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS history_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	cuisine_counts TEXT NOT NULL,
	last_selected TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS imported_items (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	payload TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	item_id TEXT NOT NULL,
	cuisine TEXT NOT NULL,
	outcome TEXT NOT NULL,
	rating REAL,
	created_at TEXT NOT NULL
);
`

type Store struct {
	db *sql.DB
}

// Open creates the database file and tables if needed. ":memory:" gives a
// private in-memory database that lives as long as the Store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadHistory(ctx context.Context) (domain.HistoryState, error) {
	var counts, recent string
	err := s.db.QueryRowContext(ctx, `
		SELECT cuisine_counts, last_selected FROM history_state WHERE id = 1
	`).Scan(&counts, &recent)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HistoryState{}, store.ErrNotFound
	}
	if err != nil {
		return domain.HistoryState{}, err
	}

	var state domain.HistoryState
	if err := json.Unmarshal([]byte(counts), &state.CuisineCounts); err != nil {
		return domain.HistoryState{}, fmt.Errorf("decode cuisine counts: %w", err)
	}
	if err := json.Unmarshal([]byte(recent), &state.LastSelected); err != nil {
		return domain.HistoryState{}, fmt.Errorf("decode last selected: %w", err)
	}
	return state.Normalize(), nil
}

// SaveHistory replaces the single state row in one statement.
func (s *Store) SaveHistory(ctx context.Context, state domain.HistoryState) error {
	state = state.Normalize()
	counts, err := json.Marshal(state.CuisineCounts)
	if err != nil {
		return err
	}
	recent, err := json.Marshal(state.LastSelected)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history_state (id, cuisine_counts, last_selected, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			cuisine_counts = excluded.cuisine_counts,
			last_selected = excluded.last_selected,
			updated_at = excluded.updated_at
	`, string(counts), string(recent), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) ListImportedItems(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM imported_items ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0, 16)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var item domain.MenuItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, fmt.Errorf("decode imported item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) SaveImportedItem(ctx context.Context, item domain.MenuItem) error {
	if item.ID == "" {
		return store.ErrInvalidItem
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO imported_items (id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, item.ID, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) CreateFeedbackEvent(ctx context.Context, event domain.FeedbackEvent) error {
	var rating any
	if event.Rating != nil {
		rating = *event.Rating
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_events (id, item_id, cuisine, outcome, rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID, event.ItemID, event.Cuisine, event.Outcome, rating, event.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) ListFeedbackEvents(ctx context.Context, limit int) ([]domain.FeedbackEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, cuisine, outcome, rating, created_at
		FROM feedback_events
		ORDER BY seq DESC
		LIMIT ?
	`, store.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.FeedbackEvent, 0, 16)
	for rows.Next() {
		var (
			ev        domain.FeedbackEvent
			rating    sql.NullFloat64
			createdAt string
		)
		if err := rows.Scan(&ev.ID, &ev.ItemID, &ev.Cuisine, &ev.Outcome, &rating, &createdAt); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := rating.Float64
			ev.Rating = &v
		}
		if ev.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
