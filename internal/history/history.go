// Package history owns the read-modify-write cycle of the persisted
// HistoryState. All updates in a process go through one Store.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/logging"
	"eatdecider/backend/internal/metrics"
	"eatdecider/backend/internal/store"
)

// CuisineLookup resolves an item id to its cuisine; ok is false when unknown.
type CuisineLookup func(ctx context.Context, itemID string) (cuisine string, ok bool)

type Store struct {
	mu   sync.Mutex
	repo store.HistoryRepository
}

func NewStore(repo store.HistoryRepository) *Store {
	return &Store{repo: repo}
}

// Load returns the persisted state, or a fresh one if none exists or it
// cannot be read. Read failures are logged, not returned.
func (s *Store) Load(ctx context.Context) domain.HistoryState {
	state, err := s.repo.LoadHistory(ctx)
	if err == nil {
		return state.Normalize()
	}
	if !errors.Is(err, store.ErrNotFound) {
		metrics.HistoryPersistenceFailures.WithLabelValues("load").Inc()
		logging.Ctx(ctx).Warn().Str("component", "history").Err(err).Msg("history load failed, using empty history")
	}
	return domain.NewHistoryState()
}

// Update records a selection of itemID. The cuisine comes from lookup,
// defaulting to domain.DefaultCuisine. The returned state is the one that was
// computed; on a save failure it is returned together with an error wrapping
// domain.ErrPersistence. A failed read aborts the update without saving, so
// stored counts are never replaced by a fresh state.
func (s *Store) Update(ctx context.Context, itemID string, lookup CuisineLookup) (domain.HistoryState, string, error) {
	cuisine := domain.DefaultCuisine
	if lookup != nil {
		if c, ok := lookup(ctx, itemID); ok && c != "" {
			cuisine = c
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.LoadHistory(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		current = domain.NewHistoryState()
	case err != nil:
		metrics.HistoryPersistenceFailures.WithLabelValues("load").Inc()
		logging.Ctx(ctx).Warn().Str("component", "history").Err(err).Msg("history load failed, selection not recorded")
		return domain.NewHistoryState(), cuisine, fmt.Errorf("%w: load history: %v", domain.ErrPersistence, err)
	}

	next := current.Normalize().WithSelection(itemID, cuisine)
	if err := s.repo.SaveHistory(ctx, next); err != nil {
		metrics.HistoryPersistenceFailures.WithLabelValues("save").Inc()
		return next, cuisine, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return next, cuisine, nil
}
