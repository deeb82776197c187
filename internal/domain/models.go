package domain

import (
	"strings"
	"time"
)

// MenuItem is a normalized catalog entry. Instances are rebuilt for every
// request from the configured sources and are never mutated in place.
type MenuItem struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Restaurant string   `json:"restaurant" yaml:"restaurant"`
	Cuisine    string   `json:"cuisine" yaml:"cuisine"`
	Veg        bool     `json:"veg" yaml:"veg"`
	Spice      float64  `json:"spice" yaml:"spice"`
	Oiliness   float64  `json:"oiliness" yaml:"oiliness"`
	Protein    float64  `json:"protein" yaml:"protein"`
	Price      float64  `json:"price" yaml:"price"`
	ETAMin     int      `json:"eta_min" yaml:"eta_min"`
	Rating     float64  `json:"rating" yaml:"rating"`
	Tags       []string `json:"tags" yaml:"tags"`
	Source     string   `json:"source,omitempty" yaml:"source,omitempty"`
}

// DedupKey identifies the same dish offered through different sources.
type DedupKey struct {
	Restaurant string
	Name       string
}

func (m MenuItem) DedupKey() DedupKey {
	return DedupKey{
		Restaurant: strings.ToLower(m.Restaurant),
		Name:       strings.ToLower(m.Name),
	}
}

// RawItem is an untrusted record as delivered by a source. Everything except
// id, name, restaurant and price may be absent.
type RawItem struct {
	ID         *string  `json:"id" yaml:"id"`
	Name       *string  `json:"name" yaml:"name"`
	Restaurant *string  `json:"restaurant" yaml:"restaurant"`
	Cuisine    *string  `json:"cuisine" yaml:"cuisine"`
	Veg        *bool    `json:"veg" yaml:"veg"`
	Spice      *float64 `json:"spice" yaml:"spice"`
	Oiliness   *float64 `json:"oiliness" yaml:"oiliness"`
	Protein    *float64 `json:"protein" yaml:"protein"`
	Price      *float64 `json:"price" yaml:"price"`
	ETAMin     *int     `json:"eta_min" yaml:"eta_min"`
	Rating     *float64 `json:"rating" yaml:"rating"`
	Tags       []string `json:"tags" yaml:"tags"`
}

type UserPreferences struct {
	Budget   float64 `json:"budget" validate:"gte=50"`
	VegOnly  bool    `json:"veg_only"`
	Spice    float64 `json:"spice" validate:"gte=0,lte=5"`
	LowOil   bool    `json:"low_oil"`
	Novelty  float64 `json:"novelty" validate:"gte=0,lte=1"`
	ETALimit int     `json:"eta_limit" validate:"gte=10,lte=120"`
	Query    string  `json:"query,omitempty" validate:"max=200"`
	Count    int     `json:"count,omitempty"`
}

// DefaultPreferences mirrors the defaults of the public recommend endpoint.
// Budget has no default and must be supplied by the caller.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Spice:    2.5,
		Novelty:  0.3,
		ETALimit: 35,
	}
}

const (
	StrategyRanked     = "ranked"
	StrategyArchetypes = "archetypes"
)

type RecommendationRequest struct {
	UserPreferences
	Strategy string `json:"strategy,omitempty" validate:"omitempty,oneof=ranked archetypes"`
}

type FeeBreakdown struct {
	Subtotal    float64 `json:"subtotal"`
	Delivery    float64 `json:"delivery"`
	PlatformFee float64 `json:"platform_fee"`
	Tax         float64 `json:"tax"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

type ScoredCandidate struct {
	Score float64
	Item  MenuItem
	Fees  FeeBreakdown
}

const (
	PickSafe      = "Safe"
	PickValue     = "Value"
	PickAdventure = "Adventure"
)

type Pick struct {
	Type  string       `json:"type,omitempty"`
	Item  MenuItem     `json:"item"`
	Fees  FeeBreakdown `json:"fees"`
	Why   string       `json:"why"`
	Score float64      `json:"score"`
}

type RecommendationResponse struct {
	Picks           []Pick `json:"picks"`
	TotalCandidates int    `json:"total_candidates"`
	Strategy        string `json:"strategy"`
	Note            string `json:"note,omitempty"`
	LatencyMS       int64  `json:"latency_ms"`
}

const (
	OutcomeSelected = "selected"
	OutcomeOrdered  = "ordered"
	OutcomeDisliked = "disliked"
)

type FeedbackRequest struct {
	ItemID  string   `json:"item_id" validate:"required,max=300"`
	Outcome string   `json:"outcome,omitempty" validate:"omitempty,oneof=selected ordered disliked"`
	Rating  *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
}

type FeedbackResponse struct {
	OK      bool         `json:"ok"`
	History HistoryState `json:"history"`
}

type FeedbackEvent struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Cuisine   string    `json:"cuisine"`
	Outcome   string    `json:"outcome"`
	Rating    *float64  `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ShareImportRequest struct {
	URL string `json:"url" validate:"required,url,max=2048"`
}

type ShareImportResponse struct {
	OK   bool     `json:"ok"`
	Item MenuItem `json:"item"`
}

type MenuResponse struct {
	Items []MenuItem `json:"items"`
}
