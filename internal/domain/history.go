package domain

import "sort"

// MaxRecentSelections bounds HistoryState.LastSelected.
const MaxRecentSelections = 10

// DefaultCuisine is used when an item's cuisine is unknown.
const DefaultCuisine = "Mixed"

// HistoryState is the only state that outlives a request: how often each
// cuisine was picked and the most recent picks, oldest first.
type HistoryState struct {
	CuisineCounts map[string]int `json:"cuisine_counts"`
	LastSelected  []string       `json:"last_selected"`
}

func NewHistoryState() HistoryState {
	return HistoryState{
		CuisineCounts: make(map[string]int),
		LastSelected:  make([]string, 0, MaxRecentSelections),
	}
}

// CuisineCount returns 0 for cuisines never selected.
func (h HistoryState) CuisineCount(cuisine string) int {
	return h.CuisineCounts[cuisine]
}

// SortedCuisines lists the cuisines with a count, alphabetically.
func (h HistoryState) SortedCuisines() []string {
	cuisines := make([]string, 0, len(h.CuisineCounts))
	for cuisine := range h.CuisineCounts {
		cuisines = append(cuisines, cuisine)
	}
	sort.Strings(cuisines)
	return cuisines
}

func (h HistoryState) Clone() HistoryState {
	out := HistoryState{
		CuisineCounts: make(map[string]int, len(h.CuisineCounts)),
		LastSelected:  make([]string, len(h.LastSelected), MaxRecentSelections),
	}
	for cuisine, count := range h.CuisineCounts {
		out.CuisineCounts[cuisine] = count
	}
	copy(out.LastSelected, h.LastSelected)
	return out
}

// WithSelection returns a copy of h with the selection applied: the cuisine
// count is incremented and itemID appended, evicting the oldest entries so at
// most MaxRecentSelections remain.
func (h HistoryState) WithSelection(itemID string, cuisine string) HistoryState {
	if cuisine == "" {
		cuisine = DefaultCuisine
	}
	next := h.Clone()
	next.CuisineCounts[cuisine]++
	next.LastSelected = append(next.LastSelected, itemID)
	if over := len(next.LastSelected) - MaxRecentSelections; over > 0 {
		next.LastSelected = append([]string(nil), next.LastSelected[over:]...)
	}
	return next
}

// Normalize repairs a decoded state so nil collections never leak to callers.
func (h HistoryState) Normalize() HistoryState {
	if h.CuisineCounts == nil {
		h.CuisineCounts = make(map[string]int)
	}
	if h.LastSelected == nil {
		h.LastSelected = make([]string, 0, MaxRecentSelections)
	}
	if over := len(h.LastSelected) - MaxRecentSelections; over > 0 {
		h.LastSelected = append([]string(nil), h.LastSelected[over:]...)
	}
	return h
}
