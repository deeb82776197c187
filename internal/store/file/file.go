// Package file persists history, imported items and feedback in a single
// JSON document, rewritten atomically on every change.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/store"
)

// maxFeedbackEvents bounds the document; older events are dropped.
const maxFeedbackEvents = 1000

type document struct {
	History  *domain.HistoryState   `json:"history,omitempty"`
	Imported []domain.MenuItem      `json:"imported_items"`
	Feedback []domain.FeedbackEvent `json:"feedback_events"`
}

type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("file store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) read() (document, error) {
	var doc document
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc, nil
}

// write replaces the file via rename so readers see the old or the new
// document, never a mix.
func (s *Store) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

func (s *Store) update(fn func(*document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *Store) LoadHistory(_ context.Context) (domain.HistoryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return domain.HistoryState{}, err
	}
	if doc.History == nil {
		return domain.HistoryState{}, store.ErrNotFound
	}
	return doc.History.Normalize(), nil
}

func (s *Store) SaveHistory(_ context.Context, state domain.HistoryState) error {
	return s.update(func(doc *document) error {
		saved := state.Normalize()
		doc.History = &saved
		return nil
	})
}

func (s *Store) ListImportedItems(_ context.Context) ([]domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if doc.Imported == nil {
		return []domain.MenuItem{}, nil
	}
	return doc.Imported, nil
}

func (s *Store) SaveImportedItem(_ context.Context, item domain.MenuItem) error {
	if item.ID == "" {
		return store.ErrInvalidItem
	}
	return s.update(func(doc *document) error {
		for i := range doc.Imported {
			if doc.Imported[i].ID == item.ID {
				doc.Imported[i] = item
				return nil
			}
		}
		doc.Imported = append(doc.Imported, item)
		return nil
	})
}

func (s *Store) CreateFeedbackEvent(_ context.Context, event domain.FeedbackEvent) error {
	return s.update(func(doc *document) error {
		doc.Feedback = append(doc.Feedback, event)
		if over := len(doc.Feedback) - maxFeedbackEvents; over > 0 {
			doc.Feedback = append([]domain.FeedbackEvent(nil), doc.Feedback[over:]...)
		}
		return nil
	})
}

func (s *Store) ListFeedbackEvents(_ context.Context, limit int) ([]domain.FeedbackEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	limit = store.ClampLimit(limit)
	out := make([]domain.FeedbackEvent, 0, min(limit, len(doc.Feedback)))
	for i := len(doc.Feedback) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, doc.Feedback[i])
	}
	return out, nil
}
