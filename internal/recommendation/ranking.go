package recommendation

import (
	"sort"

	"eatdecider/backend/internal/domain"
)

const (
	DefaultPickCount = 3
	MaxPickCount     = 50

	NoResultsNote = "No items meet your constraints. Try raising budget or ETA."
)

// Selection is a ranked candidate with its archetype label, if any.
type Selection struct {
	Type      string
	Candidate domain.ScoredCandidate
}

// Rank sorts candidates by score, highest first. Equal scores keep catalog order.
func Rank(candidates []domain.ScoredCandidate) []domain.ScoredCandidate {
	ranked := append([]domain.ScoredCandidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// ClampCount maps a requested result count to 1..MaxPickCount; zero or
// negative means DefaultPickCount.
func ClampCount(n int) int {
	if n <= 0 {
		return DefaultPickCount
	}
	if n > MaxPickCount {
		return MaxPickCount
	}
	return n
}

// SelectRanked returns the first n of already ranked candidates.
func SelectRanked(ranked []domain.ScoredCandidate, n int) []Selection {
	n = ClampCount(n)
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]Selection, 0, n)
	for _, c := range ranked[:n] {
		out = append(out, Selection{Candidate: c})
	}
	return out
}

// SelectArchetypes returns exactly three picks (Safe, Value, Adventure) from
// already ranked, non-empty candidates. The same item may fill several slots.
func SelectArchetypes(ranked []domain.ScoredCandidate, novelty float64, hist domain.HistoryState) []Selection {
	if len(ranked) == 0 {
		return nil
	}
	safe := ranked[0]

	value := ranked[0]
	bestRatio := valueRatio(value)
	for _, c := range ranked[1:] {
		if r := valueRatio(c); r > bestRatio {
			value, bestRatio = c, r
		}
	}

	var adventure domain.ScoredCandidate
	found := false
	bestAdventure := 0.0
	for _, c := range ranked {
		if c.Item.Cuisine == safe.Item.Cuisine {
			continue
		}
		key := c.Score + noveltyBonus(c.Item.Cuisine, novelty, hist)
		if !found || key > bestAdventure {
			adventure, bestAdventure, found = c, key, true
		}
	}
	if !found {
		if len(ranked) > 1 {
			adventure = ranked[1]
		} else {
			adventure = ranked[0]
		}
	}

	return []Selection{
		{Type: domain.PickSafe, Candidate: safe},
		{Type: domain.PickValue, Candidate: value},
		{Type: domain.PickAdventure, Candidate: adventure},
	}
}

func valueRatio(c domain.ScoredCandidate) float64 {
	total := c.Fees.Total
	if total < 1 {
		total = 1
	}
	return c.Item.Rating / total
}
