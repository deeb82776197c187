package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"eatdecider/backend/internal/domain"
)

func TestNoopCacheAlwaysMisses(t *testing.T) {
	c := NoopRecommendationCache{}
	if err := c.Set(context.Background(), "k", &domain.RecommendationResponse{}, time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, err := c.Get(context.Background(), "k"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("EATDECIDER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("EATDECIDER_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c := NewRedisRecommendationCache(addr, "", 0)
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	key := "eat:recommendation:test-" + time.Now().Format("150405.000000")
	if _, ok, err := c.Get(ctx, key); ok || err != nil {
		t.Fatalf("expected miss before set, got ok=%v err=%v", ok, err)
	}

	want := &domain.RecommendationResponse{
		Picks:           []domain.Pick{{Item: domain.MenuItem{ID: "BASE::1", Name: "Dosa"}, Why: "because", Score: 1.25}},
		TotalCandidates: 4,
		Strategy:        domain.StrategyRanked,
	}
	if err := c.Set(ctx, key, want, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.TotalCandidates != 4 || got.Picks[0].Item.Name != "Dosa" || got.Picks[0].Score != 1.25 {
		t.Fatalf("unexpected cached value %+v", got)
	}
}
