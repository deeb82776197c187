package memory

import (
	"context"
	"sync"

	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/store"
)

// Store keeps everything in process memory. It backs tests and runs without
// a configured database.
type Store struct {
	mu         sync.RWMutex
	history    *domain.HistoryState
	imported   []domain.MenuItem
	importedAt map[string]int
	feedback   []domain.FeedbackEvent
}

func New() *Store {
	return &Store{importedAt: make(map[string]int)}
}

func (s *Store) Close() error { return nil }

func (s *Store) LoadHistory(_ context.Context) (domain.HistoryState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.history == nil {
		return domain.HistoryState{}, store.ErrNotFound
	}
	return s.history.Clone(), nil
}

func (s *Store) SaveHistory(_ context.Context, state domain.HistoryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := state.Normalize().Clone()
	s.history = &saved
	return nil
}

func (s *Store) ListImportedItems(_ context.Context) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.MenuItem(nil), s.imported...), nil
}

func (s *Store) SaveImportedItem(_ context.Context, item domain.MenuItem) error {
	if item.ID == "" {
		return store.ErrInvalidItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.importedAt[item.ID]; ok {
		s.imported[idx] = item
		return nil
	}
	s.importedAt[item.ID] = len(s.imported)
	s.imported = append(s.imported, item)
	return nil
}

func (s *Store) CreateFeedbackEvent(_ context.Context, event domain.FeedbackEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedback = append(s.feedback, event)
	return nil
}

// ListFeedbackEvents returns the newest events first.
func (s *Store) ListFeedbackEvents(_ context.Context, limit int) ([]domain.FeedbackEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = store.ClampLimit(limit)
	out := make([]domain.FeedbackEvent, 0, min(limit, len(s.feedback)))
	for i := len(s.feedback) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.feedback[i])
	}
	return out, nil
}
