package catalog

import (
	"errors"
	"fmt"
	"strings"

	"eatdecider/backend/internal/domain"
)

// Defaults applied to optional fields a source did not provide.
const (
	DefaultSpice    = 2.0
	DefaultOiliness = 2.0
	DefaultProtein  = 10.0
	DefaultETAMin   = 30
	DefaultRating   = 4.0
)

var errIncompleteItem = errors.New("item needs name, restaurant and a non-negative price")

var nonVegKeywords = []string{"chicken", "mutton", "fish", "egg", "prawn", "beef", "pork"}

var cuisineKeywords = []struct {
	keyword string
	cuisine string
}{
	{"biryani", "Hyderabadi"},
	{"dosa", "South Indian"},
	{"idli", "South Indian"},
	{"paneer", "North Indian"},
	{"dal", "North Indian"},
	{"thali", "North Indian"},
	{"noodles", "Chinese"},
	{"manchurian", "Chinese"},
	{"pizza", "Italian"},
	{"pasta", "Italian"},
	{"burger", "Fast Food"},
	{"khow suey", "Burmese"},
	{"thai", "Thai"},
	{"roll", "Fast Food"},
	{"wrap", "Fast Food"},
}

// GuessVeg treats a dish as vegetarian unless its name mentions meat, fish or egg.
func GuessVeg(name string) bool {
	s := strings.ToLower(name)
	for _, kw := range nonVegKeywords {
		if strings.Contains(s, kw) {
			return false
		}
	}
	return true
}

// GuessCuisine maps the first known dish keyword in s to a cuisine.
func GuessCuisine(s string) string {
	s = strings.ToLower(s)
	for _, kc := range cuisineKeywords {
		if strings.Contains(s, kc.keyword) {
			return kc.cuisine
		}
	}
	return domain.DefaultCuisine
}

// ItemID builds the source-prefixed id used when a record carries none.
func ItemID(source, restaurant, name string) string {
	return fmt.Sprintf("%s::%s::%s", source, restaurant, name)
}

// Normalize validates an untrusted record and fills in the documented
// defaults. It is the only place missing fields are handled.
func Normalize(raw domain.RawItem, source string) (domain.MenuItem, error) {
	name := strings.TrimSpace(deref(raw.Name, ""))
	restaurant := strings.TrimSpace(deref(raw.Restaurant, ""))
	if name == "" || restaurant == "" || raw.Price == nil || *raw.Price < 0 {
		return domain.MenuItem{}, errIncompleteItem
	}

	item := domain.MenuItem{
		ID:         strings.TrimSpace(deref(raw.ID, "")),
		Name:       name,
		Restaurant: restaurant,
		Cuisine:    strings.TrimSpace(deref(raw.Cuisine, "")),
		Veg:        deref(raw.Veg, GuessVeg(name)),
		Spice:      clamp(deref(raw.Spice, DefaultSpice), 0, 5),
		Oiliness:   clamp(deref(raw.Oiliness, DefaultOiliness), 0, 5),
		Protein:    deref(raw.Protein, DefaultProtein),
		Price:      *raw.Price,
		ETAMin:     deref(raw.ETAMin, DefaultETAMin),
		Rating:     clamp(deref(raw.Rating, DefaultRating), 0, 5),
		Tags:       make([]string, 0, len(raw.Tags)),
		Source:     source,
	}
	if item.ID == "" {
		item.ID = ItemID(source, restaurant, name)
	}
	if item.Cuisine == "" {
		item.Cuisine = GuessCuisine(name + " " + restaurant)
	}
	if item.ETAMin <= 0 {
		item.ETAMin = DefaultETAMin
	}
	for _, tag := range raw.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			item.Tags = append(item.Tags, tag)
		}
	}
	return item, nil
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

func clamp(val float64, minVal float64, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
