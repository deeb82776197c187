package store

import (
	"context"
	"errors"

	"eatdecider/backend/internal/domain"
)

var (
	// ErrNotFound is returned by LoadHistory when nothing has been saved yet.
	ErrNotFound    = errors.New("not found")
	ErrInvalidItem = errors.New("invalid item")
)

// HistoryRepository persists the single HistoryState. Each call is atomic:
// a reader never observes a partially written state.
type HistoryRepository interface {
	LoadHistory(ctx context.Context) (domain.HistoryState, error)
	SaveHistory(ctx context.Context, state domain.HistoryState) error
}

// ImportedItemRepository holds items imported from share links. Saving an
// item with an existing id replaces it.
type ImportedItemRepository interface {
	ListImportedItems(ctx context.Context) ([]domain.MenuItem, error)
	SaveImportedItem(ctx context.Context, item domain.MenuItem) error
}

type FeedbackRepository interface {
	CreateFeedbackEvent(ctx context.Context, event domain.FeedbackEvent) error
	ListFeedbackEvents(ctx context.Context, limit int) ([]domain.FeedbackEvent, error)
}

type Repository interface {
	HistoryRepository
	ImportedItemRepository
	FeedbackRepository
	Close() error
}

// ClampLimit maps a requested page size to 1..500, defaulting to 50.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
