package recommendation

import (
	"math"

	"eatdecider/backend/internal/domain"
)

// IneligibleScore marks an item that failed a hard constraint. It sorts
// below any real score and such items never reach ranking.
const IneligibleScore = -1e9

// Weights holds every coefficient of the scoring formula. The values are
// part of the reproducibility contract; DefaultWeights is what the service
// uses and tests may build their own.
type Weights struct {
	RatingCenter float64
	Rating       float64
	SpiceGap     float64

	// Oil terms apply only when the user asks for low oil.
	OilHardLimit     float64
	OilQuadratic     float64
	OilQuadraticKnee float64
	OilLinear        float64
	OilLinearKnee    float64

	BudgetUse float64
	Discount  float64
	ETAOver   float64
}

var DefaultWeights = Weights{
	RatingCenter:     3.5,
	Rating:           0.6,
	SpiceGap:         0.25,
	OilHardLimit:     4.0,
	OilQuadratic:     0.6,
	OilQuadraticKnee: 2.0,
	OilLinear:        0.05,
	OilLinearKnee:    1.5,
	BudgetUse:        0.0015,
	Discount:         0.3,
	ETAOver:          0.03,
}

// ScoreItem applies the hard constraints and, for an eligible item, returns
// its score and fees. ok is false when the item must be excluded.
func ScoreItem(item domain.MenuItem, prefs domain.UserPreferences, hist domain.HistoryState, w Weights) (domain.ScoredCandidate, bool) {
	if prefs.VegOnly && !item.Veg {
		return domain.ScoredCandidate{Score: IneligibleScore, Item: item}, false
	}
	if item.ETAMin > prefs.ETALimit {
		return domain.ScoredCandidate{Score: IneligibleScore, Item: item}, false
	}
	if prefs.LowOil && item.Oiliness >= w.OilHardLimit {
		return domain.ScoredCandidate{Score: IneligibleScore, Item: item}, false
	}

	fees := CalculateFees(item.Price)
	if fees.Total > prefs.Budget {
		return domain.ScoredCandidate{Score: IneligibleScore, Item: item}, false
	}

	score := w.Rating * (item.Rating - w.RatingCenter)
	score -= w.SpiceGap * math.Abs(prefs.Spice-item.Spice)
	if prefs.LowOil {
		over := math.Max(0, item.Oiliness-w.OilQuadraticKnee)
		score -= w.OilQuadratic * over * over
		score -= w.OilLinear * math.Max(0, item.Oiliness-w.OilLinearKnee)
	}
	score += w.BudgetUse * math.Min(fees.Total, prefs.Budget)
	score += w.Discount * (fees.Discount / math.Max(1, item.Price))
	score -= w.ETAOver * math.Max(0, float64(item.ETAMin-prefs.ETALimit))
	score += noveltyBonus(item.Cuisine, prefs.Novelty, hist)

	return domain.ScoredCandidate{Score: score, Item: item, Fees: fees}, true
}

func noveltyBonus(cuisine string, weight float64, hist domain.HistoryState) float64 {
	return weight * (1.0 / (1.0 + float64(hist.CuisineCount(cuisine))))
}

// ScoreCatalog scores every item and returns the eligible ones in catalog order.
func ScoreCatalog(items []domain.MenuItem, prefs domain.UserPreferences, hist domain.HistoryState, w Weights) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, 0, len(items))
	for _, item := range items {
		if candidate, ok := ScoreItem(item, prefs, hist, w); ok {
			out = append(out, candidate)
		}
	}
	return out
}
