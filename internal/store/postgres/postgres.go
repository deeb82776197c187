package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Migrate creates missing tables. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadHistory(ctx context.Context) (domain.HistoryState, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return domain.HistoryState{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var updatedAt time.Time
	err = tx.QueryRowContext(ctx, `SELECT updated_at FROM history_meta WHERE id = 1`).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HistoryState{}, store.ErrNotFound
	}
	if err != nil {
		return domain.HistoryState{}, err
	}

	state := domain.NewHistoryState()

	countRows, err := tx.QueryContext(ctx, `SELECT cuisine, count FROM cuisine_counts`)
	if err != nil {
		return domain.HistoryState{}, err
	}
	for countRows.Next() {
		var cuisine string
		var count int
		if err := countRows.Scan(&cuisine, &count); err != nil {
			_ = countRows.Close()
			return domain.HistoryState{}, err
		}
		state.CuisineCounts[cuisine] = count
	}
	if err := countRows.Err(); err != nil {
		_ = countRows.Close()
		return domain.HistoryState{}, err
	}
	_ = countRows.Close()

	recentRows, err := tx.QueryContext(ctx, `SELECT item_id FROM recent_selections ORDER BY position`)
	if err != nil {
		return domain.HistoryState{}, err
	}
	defer recentRows.Close()
	for recentRows.Next() {
		var itemID string
		if err := recentRows.Scan(&itemID); err != nil {
			return domain.HistoryState{}, err
		}
		state.LastSelected = append(state.LastSelected, itemID)
	}
	if err := recentRows.Err(); err != nil {
		return domain.HistoryState{}, err
	}

	return state.Normalize(), nil
}

// SaveHistory replaces the stored state in one transaction.
func (s *Store) SaveHistory(ctx context.Context, state domain.HistoryState) error {
	state = state.Normalize()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cuisine_counts`); err != nil {
		return err
	}
	for _, cuisine := range state.SortedCuisines() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cuisine_counts (cuisine, count) VALUES ($1, $2)
		`, cuisine, state.CuisineCounts[cuisine]); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recent_selections`); err != nil {
		return err
	}
	for i, itemID := range state.LastSelected {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recent_selections (position, item_id) VALUES ($1, $2)
		`, i, itemID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history_meta (id, updated_at) VALUES (1, now())
		ON CONFLICT (id) DO UPDATE SET updated_at = now()
	`); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) ListImportedItems(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, restaurant, cuisine, veg, spice, oiliness, protein, price, eta_min, rating, tags, source
		FROM imported_items
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0, 32)
	for rows.Next() {
		var item domain.MenuItem
		var tags []byte
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Restaurant, &item.Cuisine, &item.Veg, &item.Spice,
			&item.Oiliness, &item.Protein, &item.Price, &item.ETAMin, &item.Rating, &tags, &item.Source,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(tags, &item.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SaveImportedItem(ctx context.Context, item domain.MenuItem) error {
	if item.ID == "" || item.Name == "" || item.Restaurant == "" {
		return store.ErrInvalidItem
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO imported_items (
			id, name, restaurant, cuisine, veg, spice, oiliness, protein, price, eta_min, rating, tags, source,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			restaurant = EXCLUDED.restaurant,
			cuisine = EXCLUDED.cuisine,
			veg = EXCLUDED.veg,
			spice = EXCLUDED.spice,
			oiliness = EXCLUDED.oiliness,
			protein = EXCLUDED.protein,
			price = EXCLUDED.price,
			eta_min = EXCLUDED.eta_min,
			rating = EXCLUDED.rating,
			tags = EXCLUDED.tags,
			source = EXCLUDED.source,
			updated_at = now()
	`, item.ID, item.Name, item.Restaurant, item.Cuisine, item.Veg, item.Spice, item.Oiliness,
		item.Protein, item.Price, item.ETAMin, item.Rating, string(tags), item.Source)
	return err
}

func (s *Store) CreateFeedbackEvent(ctx context.Context, event domain.FeedbackEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_events (id, item_id, cuisine, outcome, rating, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, event.ID, event.ItemID, event.Cuisine, event.Outcome, nullFloat(event.Rating), event.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("feedback event %s already recorded: %w", event.ID, store.ErrInvalidItem)
		}
		return err
	}
	return nil
}

func (s *Store) ListFeedbackEvents(ctx context.Context, limit int) ([]domain.FeedbackEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, cuisine, outcome, rating, created_at
		FROM feedback_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, store.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.FeedbackEvent, 0, 32)
	for rows.Next() {
		var ev domain.FeedbackEvent
		var rating sql.NullFloat64
		if err := rows.Scan(&ev.ID, &ev.ItemID, &ev.Cuisine, &ev.Outcome, &rating, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := rating.Float64
			ev.Rating = &v
		}
		ev.CreatedAt = ev.CreatedAt.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullFloat(val *float64) any {
	if val == nil {
		return nil
	}
	return *val
}
