package recommendation

import (
	"context"
	"reflect"
	"testing"
	"time"

	"eatdecider/backend/internal/domain"
)

type countingCache struct {
	store map[string]domain.RecommendationResponse
	hits  int
}

func (c *countingCache) Get(_ context.Context, key string) (*domain.RecommendationResponse, bool, error) {
	resp, ok := c.store[key]
	if ok {
		c.hits++
	}
	return &resp, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, value *domain.RecommendationResponse, _ time.Duration) error {
	c.store[key] = *value
	return nil
}

func sampleCatalog() []domain.MenuItem {
	return []domain.MenuItem{
		{ID: "1", Name: "Pad Thai", Restaurant: "Bangkok Bowl", Cuisine: "Thai", Veg: true, Spice: 3, Oiliness: 2, Price: 220, ETAMin: 30, Rating: 4.3},
		{ID: "2", Name: "Masala Dosa", Restaurant: "Udupi Cafe", Cuisine: "South Indian", Veg: true, Spice: 2, Oiliness: 1.5, Price: 120, ETAMin: 20, Rating: 4.6},
		{ID: "3", Name: "Chicken Biryani", Restaurant: "Paradise", Cuisine: "Hyderabadi", Veg: false, Spice: 4, Oiliness: 3.5, Price: 320, ETAMin: 40, Rating: 4.4},
		{ID: "4", Name: "Margherita", Restaurant: "Slice", Cuisine: "Italian", Veg: true, Spice: 1, Oiliness: 3, Price: 280, ETAMin: 35, Rating: 4.1},
	}
}

func TestRecommendDeterministic(t *testing.T) {
	engine := NewEngine(nil, time.Minute)
	req := domain.RecommendationRequest{UserPreferences: basePrefs()}
	req.Count = 10
	hist := domain.NewHistoryState().WithSelection("1", "Thai")

	first := engine.Recommend(context.Background(), req, sampleCatalog(), hist)
	for i := 0; i < 5; i++ {
		again := engine.Recommend(context.Background(), req, sampleCatalog(), hist)
		first.LatencyMS, again.LatencyMS = 0, 0
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("expected identical output on rerun")
		}
	}
	if first.TotalCandidates != 3 {
		t.Fatalf("expected biryani excluded by eta, got %d candidates", first.TotalCandidates)
	}
	for _, p := range first.Picks {
		if p.Item.ID == "3" {
			t.Fatalf("ineligible item present in picks")
		}
		if p.Why == "" {
			t.Fatalf("expected explanation for %s", p.Item.ID)
		}
	}
	for i := 1; i < len(first.Picks); i++ {
		if first.Picks[i].Score > first.Picks[i-1].Score {
			t.Fatalf("picks not sorted by score")
		}
	}
}

func TestRecommendEmptyCatalogReturnsNote(t *testing.T) {
	engine := NewEngine(nil, 0)
	req := domain.RecommendationRequest{UserPreferences: basePrefs()}

	for _, items := range [][]domain.MenuItem{nil, {{ID: "x", Price: 5000, ETAMin: 20}}} {
		resp := engine.Recommend(context.Background(), req, items, domain.NewHistoryState())
		if resp.Picks == nil || len(resp.Picks) != 0 || resp.Note == "" {
			t.Fatalf("expected empty picks with note, got %+v", resp)
		}
	}
}

func TestRecommendArchetypesStrategy(t *testing.T) {
	engine := NewEngine(nil, 0)
	req := domain.RecommendationRequest{UserPreferences: basePrefs(), Strategy: domain.StrategyArchetypes}
	resp := engine.Recommend(context.Background(), req, sampleCatalog(), domain.NewHistoryState())
	if len(resp.Picks) != 3 || resp.Strategy != domain.StrategyArchetypes {
		t.Fatalf("expected three archetype picks, got %+v", resp)
	}
	if resp.Picks[0].Type != domain.PickSafe || resp.Picks[1].Type != domain.PickValue || resp.Picks[2].Type != domain.PickAdventure {
		t.Fatalf("unexpected pick types %+v", resp.Picks)
	}
}

func TestRecommendUsesCacheOnlyForIdenticalInputs(t *testing.T) {
	c := &countingCache{store: map[string]domain.RecommendationResponse{}}
	engine := NewEngine(c, time.Minute)
	req := domain.RecommendationRequest{UserPreferences: basePrefs()}
	hist := domain.NewHistoryState()

	engine.Recommend(context.Background(), req, sampleCatalog(), hist)
	engine.Recommend(context.Background(), req, sampleCatalog(), hist)
	if c.hits != 1 {
		t.Fatalf("expected one cache hit, got %d", c.hits)
	}

	engine.Recommend(context.Background(), req, sampleCatalog(), hist.WithSelection("2", "South Indian"))
	if c.hits != 1 {
		t.Fatalf("expected history change to miss the cache, got %d hits", c.hits)
	}

	relabeled := sampleCatalog()
	relabeled[1].Protein = 9
	relabeled[1].Source = "SHARE"
	resp := engine.Recommend(context.Background(), req, relabeled, hist)
	if c.hits != 1 {
		t.Fatalf("expected protein and source changes to miss the cache, got %d hits", c.hits)
	}
	for _, p := range resp.Picks {
		if p.Item.ID == "2" && (p.Item.Protein != 9 || p.Item.Source != "SHARE") {
			t.Fatalf("expected fresh item fields, got %+v", p.Item)
		}
	}
}
