package history

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/store"
	"eatdecider/backend/internal/store/memory"
)

type failingRepo struct {
	loadErr error
	saveErr error
	saved   int
}

func (f *failingRepo) LoadHistory(context.Context) (domain.HistoryState, error) {
	return domain.HistoryState{}, f.loadErr
}

func (f *failingRepo) SaveHistory(context.Context, domain.HistoryState) error {
	f.saved++
	return f.saveErr
}

func lookupFrom(m map[string]string) CuisineLookup {
	return func(_ context.Context, id string) (string, bool) {
		c, ok := m[id]
		return c, ok
	}
}

func TestUpdateKeepsTenMostRecentInOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New())

	ids := make([]string, 0, 11)
	for i := 1; i <= 11; i++ {
		id := fmt.Sprintf("item-%d", i)
		ids = append(ids, id)
		if _, _, err := s.Update(ctx, id, nil); err != nil {
			t.Fatalf("update %s: %v", id, err)
		}
	}

	state := s.Load(ctx)
	if !reflect.DeepEqual(state.LastSelected, ids[1:]) {
		t.Fatalf("expected %v, got %v", ids[1:], state.LastSelected)
	}
	if state.CuisineCount(domain.DefaultCuisine) != 11 {
		t.Fatalf("expected unknown items counted as %s, got %v", domain.DefaultCuisine, state.CuisineCounts)
	}
}

func TestUpdateResolvesCuisine(t *testing.T) {
	s := NewStore(memory.New())
	state, cuisine, err := s.Update(context.Background(), "BASE::1", lookupFrom(map[string]string{"BASE::1": "Thai"}))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if cuisine != "Thai" || state.CuisineCount("Thai") != 1 {
		t.Fatalf("expected Thai selection, got %q %+v", cuisine, state)
	}
}

func TestUpdateIsSerialized(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _ = s.Update(ctx, fmt.Sprintf("id-%d", i), lookupFrom(map[string]string{}))
		}(i)
	}
	wg.Wait()

	if got := s.Load(ctx).CuisineCount(domain.DefaultCuisine); got != 50 {
		t.Fatalf("expected 50 counted selections, got %d", got)
	}
}

func TestLoadFailureFallsBackToEmpty(t *testing.T) {
	repo := &failingRepo{loadErr: errors.New("disk on fire")}
	state := NewStore(repo).Load(context.Background())
	if len(state.CuisineCounts) != 0 || len(state.LastSelected) != 0 || state.CuisineCounts == nil {
		t.Fatalf("expected fresh state, got %+v", state)
	}
}

func TestSaveFailureReturnsStateAndPersistenceError(t *testing.T) {
	repo := &failingRepo{loadErr: store.ErrNotFound, saveErr: errors.New("read-only fs")}
	state, _, err := NewStore(repo).Update(context.Background(), "x", nil)
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(state.LastSelected) != 1 || state.LastSelected[0] != "x" {
		t.Fatalf("expected computed state to be returned, got %+v", state)
	}
	if repo.saved != 1 {
		t.Fatalf("expected one save attempt, got %d", repo.saved)
	}
}

type flakyRepo struct {
	*memory.Store
	failNextLoad bool
}

func (f *flakyRepo) LoadHistory(ctx context.Context) (domain.HistoryState, error) {
	if f.failNextLoad {
		f.failNextLoad = false
		return domain.HistoryState{}, errors.New("connection reset")
	}
	return f.Store.LoadHistory(ctx)
}

func TestUpdateLoadFailureKeepsStoredCounts(t *testing.T) {
	ctx := context.Background()
	repo := &flakyRepo{Store: memory.New()}
	s := NewStore(repo)
	thai := lookupFrom(map[string]string{"t": "Thai"})

	for i := 0; i < 5; i++ {
		if _, _, err := s.Update(ctx, "t", thai); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	repo.failNextLoad = true
	if _, _, err := s.Update(ctx, "t", thai); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence on load failure, got %v", err)
	}

	stored, err := repo.Store.LoadHistory(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := stored.CuisineCount("Thai"); got != 5 {
		t.Fatalf("expected stored Thai count 5, got %d", got)
	}
	if len(stored.LastSelected) != 5 {
		t.Fatalf("expected 5 recent selections, got %v", stored.LastSelected)
	}
}

func TestUpdateLoadFailureDoesNotSave(t *testing.T) {
	repo := &failingRepo{loadErr: errors.New("unreadable")}
	if _, _, err := NewStore(repo).Update(context.Background(), "x", nil); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if repo.saved != 0 {
		t.Fatalf("expected no save after a failed read, got %d", repo.saved)
	}
}
