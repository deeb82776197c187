package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"eatdecider/backend/internal/domain"
)

type fakeSource struct {
	name  string
	items []domain.MenuItem
	err   error
	delay time.Duration
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) GetCatalog(ctx context.Context) ([]domain.MenuItem, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

// stubbornSource ignores cancellation entirely.
type stubbornSource struct{ block chan struct{} }

func (s stubbornSource) Name() string { return "stubborn" }

func (s stubbornSource) GetCatalog(context.Context) ([]domain.MenuItem, error) {
	<-s.block
	return []domain.MenuItem{{ID: "late", Restaurant: "L", Name: "late"}}, nil
}

type fakeSearcher struct {
	queries []string
}

func (f *fakeSearcher) Name() string { return "search" }

func (f *fakeSearcher) Search(_ context.Context, query string) ([]domain.MenuItem, error) {
	f.queries = append(f.queries, query)
	return []domain.MenuItem{{ID: "ONDC::p::Paneer Wrap", Restaurant: "p", Name: "Paneer Wrap"}}, nil
}

func TestAggregatorToleratesFailingAndSlowSources(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	agg := NewAggregator(50*time.Millisecond, []Source{
		fakeSource{name: "base", items: []domain.MenuItem{{ID: "1", Restaurant: "A", Name: "X"}}},
		fakeSource{name: "broken", err: errors.New("boom")},
		fakeSource{name: "slow", delay: time.Second, items: []domain.MenuItem{{ID: "slow", Restaurant: "S", Name: "S"}}},
		stubbornSource{block: block},
		fakeSource{name: "manual", items: []domain.MenuItem{{ID: "2", Restaurant: "a", Name: "x"}, {ID: "3", Restaurant: "B", Name: "Y"}}},
	}, nil)

	started := time.Now()
	got := agg.Collect(context.Background(), "")
	if elapsed := time.Since(started); elapsed > 500*time.Millisecond {
		t.Fatalf("collect took %v, expected bounded by source timeout", elapsed)
	}
	if !reflect.DeepEqual(ids(got), []string{"1", "3"}) {
		t.Fatalf("unexpected items %v", ids(got))
	}
}

func TestAggregatorKeepsSourceOrderBeyondConcurrencyLimit(t *testing.T) {
	sources := make([]Source, 0, maxConcurrentFetches*2+1)
	want := make([]string, 0, cap(sources))
	for i := 0; i < cap(sources); i++ {
		id := fmt.Sprintf("item-%02d", i)
		want = append(want, id)
		// later sources finish first
		delay := time.Duration(cap(sources)-i) * time.Millisecond
		sources = append(sources, fakeSource{
			name:  fmt.Sprintf("src-%02d", i),
			delay: delay,
			items: []domain.MenuItem{{ID: id, Restaurant: "R", Name: id}},
		})
	}

	got := NewAggregator(time.Second, sources, nil).Collect(context.Background(), "")
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}
}

func TestAggregatorRunsSearchersOnlyWithQuery(t *testing.T) {
	searcher := &fakeSearcher{}
	agg := NewAggregator(time.Second, []Source{
		fakeSource{name: "base", items: []domain.MenuItem{{ID: "1", Restaurant: "A", Name: "Dal"}}},
	}, []Searcher{searcher})

	if got := agg.Collect(context.Background(), ""); len(got) != 1 {
		t.Fatalf("expected base only, got %v", ids(got))
	}
	if len(searcher.queries) != 0 {
		t.Fatalf("searcher should not run without a query")
	}

	got := agg.Collect(context.Background(), "paneer")
	if !reflect.DeepEqual(ids(got), []string{"ONDC::p::Paneer Wrap"}) {
		t.Fatalf("expected filtered marketplace item, got %v", ids(got))
	}
	if !reflect.DeepEqual(searcher.queries, []string{"paneer"}) {
		t.Fatalf("unexpected searcher calls %v", searcher.queries)
	}
}

func TestFileSourceJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "menu.json")
	yamlPath := filepath.Join(dir, "manual.yaml")
	if err := os.WriteFile(jsonPath, []byte(`[{"id":"b1","name":"Masala Dosa","restaurant":"Udupi","price":120,"veg":true},{"name":"broken"}]`), 0o600); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := os.WriteFile(yamlPath, []byte("items:\n  - name: Thai Green Curry\n    restaurant: Bangkok Bowl\n    price: 260\n    tags: [curry]\n"), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	base, err := NewFileSource("base", jsonPath, SourceBase).GetCatalog(context.Background())
	if err != nil || len(base) != 1 || base[0].ID != "b1" {
		t.Fatalf("unexpected base catalog %v err=%v", base, err)
	}

	manual, err := NewFileSource("manual", yamlPath, SourceManual).GetCatalog(context.Background())
	if err != nil || len(manual) != 1 {
		t.Fatalf("unexpected manual catalog %v err=%v", manual, err)
	}
	if manual[0].ID != "MANUAL::Bangkok Bowl::Thai Green Curry" || manual[0].Cuisine != "Thai" {
		t.Fatalf("unexpected manual item %+v", manual[0])
	}

	missing, err := NewFileSource("manual", filepath.Join(dir, "nope.json"), SourceManual).GetCatalog(context.Background())
	if err != nil || len(missing) != 0 {
		t.Fatalf("expected empty catalog for missing file, got %v err=%v", missing, err)
	}
}
