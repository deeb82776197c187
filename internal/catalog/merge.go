package catalog

import (
	"strings"
	"unicode"

	"eatdecider/backend/internal/domain"
)

// Merge concatenates source lists in priority order, keeping the first item
// for each dedup key. Output order is first-seen order across all sources.
func Merge(sources ...[]domain.MenuItem) []domain.MenuItem {
	size := 0
	for _, items := range sources {
		size += len(items)
	}
	seen := make(map[domain.DedupKey]struct{}, size)
	out := make([]domain.MenuItem, 0, size)
	for _, items := range sources {
		for _, item := range items {
			key := item.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// Tokenize splits a query into lowercase runs of letters and digits.
func Tokenize(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// FilterByQuery keeps items whose name, restaurant and tags contain every
// query token. If nothing matches, the unfiltered items are returned.
func FilterByQuery(items []domain.MenuItem, query string) []domain.MenuItem {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return items
	}

	out := make([]domain.MenuItem, 0, len(items))
	for _, item := range items {
		haystack := strings.ToLower(item.Name + " " + item.Restaurant + " " + strings.Join(item.Tags, " "))
		if containsAll(haystack, tokens) {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return items
	}
	return out
}

func containsAll(haystack string, tokens []string) bool {
	for _, token := range tokens {
		if !strings.Contains(haystack, token) {
			return false
		}
	}
	return true
}

// FindItem returns the first item with the given id.
func FindItem(items []domain.MenuItem, id string) (domain.MenuItem, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.MenuItem{}, false
}
