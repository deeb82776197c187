package recommendation

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
	"time"

	"eatdecider/backend/internal/cache"
	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/logging"
	"eatdecider/backend/internal/metrics"
)

// Engine turns a catalog snapshot, preferences and a history snapshot into a
// recommendation. It holds no request state; the optional cache is keyed on
// every input so a hit is indistinguishable from a recomputation.
type Engine struct {
	cache    cache.RecommendationCache
	cacheTTL time.Duration
	weights  Weights
}

func NewEngine(cacheStore cache.RecommendationCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopRecommendationCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 20 * time.Second
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		weights:  DefaultWeights,
	}
}

func (e *Engine) Recommend(
	ctx context.Context,
	req domain.RecommendationRequest,
	items []domain.MenuItem,
	hist domain.HistoryState,
) domain.RecommendationResponse {
	startedAt := time.Now()

	strategy := req.Strategy
	if strategy == "" {
		strategy = domain.StrategyRanked
	}

	cacheKey := buildCacheKey(req.UserPreferences, strategy, items, hist)
	cached, ok, err := e.cache.Get(ctx, cacheKey)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("component", "engine").Msg("recommendation cache read failed")
	}
	if err == nil && ok {
		metrics.RecommendationCacheHits.Inc()
		cached.LatencyMS = time.Since(startedAt).Milliseconds()
		return *cached
	}

	ranked := Rank(ScoreCatalog(items, req.UserPreferences, hist, e.weights))
	resp := domain.RecommendationResponse{
		Picks:           []domain.Pick{},
		TotalCandidates: len(ranked),
		Strategy:        strategy,
	}

	if len(ranked) == 0 {
		resp.Note = NoResultsNote
	} else {
		var selections []Selection
		if strategy == domain.StrategyArchetypes {
			selections = SelectArchetypes(ranked, req.Novelty, hist)
		} else {
			selections = SelectRanked(ranked, req.Count)
		}
		for _, sel := range selections {
			c := sel.Candidate
			resp.Picks = append(resp.Picks, domain.Pick{
				Type:  sel.Type,
				Item:  c.Item,
				Fees:  c.Fees,
				Why:   Explain(c.Item, c.Fees, req.UserPreferences),
				Score: c.Score,
			})
		}
	}

	resp.LatencyMS = time.Since(startedAt).Milliseconds()
	if err := e.cache.Set(ctx, cacheKey, &resp, e.cacheTTL); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("component", "engine").Msg("recommendation cache write failed")
	}
	return resp
}

func buildCacheKey(prefs domain.UserPreferences, strategy string, items []domain.MenuItem, hist domain.HistoryState) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%g|%t|%g|%t|%g|%d|%d|%s\n",
		strategy, prefs.Budget, prefs.VegOnly, prefs.Spice, prefs.LowOil,
		prefs.Novelty, prefs.ETALimit, ClampCount(prefs.Count), strings.ToLower(prefs.Query))
	writeHistory(h, hist)
	for _, it := range items {
		fmt.Fprintf(h, "%s|%s|%s|%s|%t|%g|%g|%g|%g|%d|%g|%s|%s\n",
			it.ID, it.Name, it.Restaurant, it.Cuisine, it.Veg, it.Spice, it.Oiliness,
			it.Protein, it.Price, it.ETAMin, it.Rating, strings.Join(it.Tags, ","), it.Source)
	}
	return "eat:recommendation:" + hex.EncodeToString(h.Sum(nil))
}

func writeHistory(h hash.Hash, hist domain.HistoryState) {
	for _, cuisine := range hist.SortedCuisines() {
		fmt.Fprintf(h, "c:%s=%d\n", cuisine, hist.CuisineCounts[cuisine])
	}
}
