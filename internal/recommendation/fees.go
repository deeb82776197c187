package recommendation

import (
	"math"
	"strconv"

	"eatdecider/backend/internal/domain"
)

const (
	DeliveryFee      = 30.0
	PlatformFeeRate  = 0.08
	TaxRate          = 0.05
	LowTierSubtotal  = 200.0
	LowTierDiscount  = 50.0
	HighTierSubtotal = 300.0
	HighTierDiscount = 80.0
)

// CalculateFees prices an order. The tier discounts ramp in one rupee of
// discount per rupee of subtotal until the tier amount is reached, so the
// total never drops when the subtotal crosses a tier threshold:
//
//	s < 200        -> 0
//	200 <= s < 300 -> min(50, s-200)
//	s >= 300       -> min(80, s-250)
func CalculateFees(subtotal float64) domain.FeeBreakdown {
	return breakdown(subtotal, rampedDiscount(subtotal))
}

// CalculateLegacyFees applies the flat tier discount (50 from 200, 80 from
// 300). Ranking never uses it; eatctl fees --tiered prints it next to the
// ramped breakdown for comparison with older quotes.
func CalculateLegacyFees(subtotal float64) domain.FeeBreakdown {
	return breakdown(subtotal, stepDiscount(subtotal))
}

func breakdown(subtotal float64, discount float64) domain.FeeBreakdown {
	if subtotal < 0 {
		subtotal = 0
	}
	platformFee := round2(PlatformFeeRate * subtotal)
	tax := round2(TaxRate * subtotal)
	total := round2(math.Max(subtotal+DeliveryFee+platformFee+tax-discount, 0))
	return domain.FeeBreakdown{
		Subtotal:    round2(subtotal),
		Delivery:    DeliveryFee,
		PlatformFee: platformFee,
		Tax:         tax,
		Discount:    round2(discount),
		Total:       total,
	}
}

func stepDiscount(subtotal float64) float64 {
	switch {
	case subtotal >= HighTierSubtotal:
		return HighTierDiscount
	case subtotal >= LowTierSubtotal:
		return LowTierDiscount
	default:
		return 0
	}
}

func rampedDiscount(subtotal float64) float64 {
	switch {
	case subtotal >= HighTierSubtotal:
		return math.Min(HighTierDiscount, subtotal-(HighTierSubtotal-LowTierDiscount))
	case subtotal >= LowTierSubtotal:
		return math.Min(LowTierDiscount, subtotal-LowTierSubtotal)
	default:
		return 0
	}
}

// round2 rounds the exact binary value to the cent, ties to even. Scaling by
// 100 first would round the product instead, which differs for values such
// as 0.225.
func round2(val float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(val, 'f', 2, 64), 64)
	if err != nil {
		return val
	}
	return r
}
