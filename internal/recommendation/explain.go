package recommendation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"eatdecider/backend/internal/domain"
)

const maxExplainedTags = 3

// Explain renders the one-line justification shown next to a pick:
//
//	Paneer Tikka from Spice Hub | 4.4★, 28m ETA | ₹262.5 all-in (...) | spice 3.0/5 vs your 2.5/5 • tags: grill
func Explain(item domain.MenuItem, fees domain.FeeBreakdown, prefs domain.UserPreferences) string {
	parts := []string{
		fmt.Sprintf("%s from %s", item.Name, item.Restaurant),
		fmt.Sprintf("%s★, %dm ETA", num(item.Rating), item.ETAMin),
		fmt.Sprintf("₹%s all-in (₹%s + del %s + fee %s + tax %s - disc %s)",
			num(fees.Total), num(fees.Subtotal), num(fees.Delivery),
			num(fees.PlatformFee), num(fees.Tax), num(fees.Discount)),
	}

	taste := []string{fmt.Sprintf("spice %s/5 vs your %s/5", num(item.Spice), num(prefs.Spice))}
	if prefs.LowOil {
		taste = append(taste, fmt.Sprintf("low-oil fit: %d/5", oilFit(item.Oiliness)))
	}
	if len(item.Tags) > 0 {
		tags := item.Tags
		if len(tags) > maxExplainedTags {
			tags = tags[:maxExplainedTags]
		}
		taste = append(taste, "tags: "+strings.Join(tags, ", "))
	}
	parts = append(parts, strings.Join(taste, " • "))

	return strings.Join(parts, " | ")
}

func oilFit(oiliness float64) int {
	fit := 5 - int(math.Floor(oiliness))
	if fit < 0 {
		return 0
	}
	return fit
}

// num prints the shortest form of v with at least one decimal, so 30 reads
// "30.0" and 12.5 stays "12.5".
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
