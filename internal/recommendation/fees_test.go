package recommendation

import (
	"testing"

	"eatdecider/backend/internal/domain"
)

func TestCalculateFeesAt250(t *testing.T) {
	got := CalculateFees(250)
	want := domain.FeeBreakdown{Subtotal: 250, Delivery: 30, PlatformFee: 20, Tax: 12.5, Discount: 50, Total: 262.5}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestCalculateFeesMonotonicAcrossTiers(t *testing.T) {
	subtotals := []float64{0, 50, 199.99, 200, 200.01, 249.99, 250, 299.99, 300, 300.01, 329.99, 330, 500}
	prev := CalculateFees(subtotals[0]).Total
	for _, s := range subtotals[1:] {
		total := CalculateFees(s).Total
		if total < prev {
			t.Fatalf("total decreased at subtotal %.2f: %.2f < %.2f", s, total, prev)
		}
		prev = total
	}
}

func TestCalculateFeesReachesFullTierDiscount(t *testing.T) {
	if d := CalculateFees(260).Discount; d != 50 {
		t.Fatalf("expected full low tier discount at 260, got %v", d)
	}
	if d := CalculateFees(400).Discount; d != 80 {
		t.Fatalf("expected full high tier discount at 400, got %v", d)
	}
	if d := CalculateFees(150).Discount; d != 0 {
		t.Fatalf("expected no discount below 200, got %v", d)
	}
}

func TestCalculateLegacyFeesStepTiers(t *testing.T) {
	cases := map[float64]float64{199.99: 0, 200: 50, 299.99: 50, 300: 80}
	for subtotal, discount := range cases {
		if got := CalculateLegacyFees(subtotal).Discount; got != discount {
			t.Fatalf("legacy discount at %.2f: expected %v, got %v", subtotal, discount, got)
		}
	}
	if got := CalculateLegacyFees(250); got != CalculateFees(250) {
		t.Fatalf("expected legacy and ramped fees to agree at 250: %+v vs %+v", got, CalculateFees(250))
	}
}

func TestCalculateFeesNeverNegative(t *testing.T) {
	if total := CalculateFees(0).Total; total != 30 {
		t.Fatalf("expected delivery-only total for zero subtotal, got %v", total)
	}
	if total := CalculateFees(-10).Total; total < 0 {
		t.Fatalf("expected non-negative total, got %v", total)
	}
}

func TestCalculateFeesRoundsFractionalSubtotals(t *testing.T) {
	cases := []struct {
		subtotal float64
		want     domain.FeeBreakdown
	}{
		{0.3, domain.FeeBreakdown{Subtotal: 0.3, Delivery: 30, PlatformFee: 0.02, Tax: 0.01, Total: 30.33}},
		{0.5, domain.FeeBreakdown{Subtotal: 0.5, Delivery: 30, PlatformFee: 0.04, Tax: 0.03, Total: 30.57}},
		{1.3, domain.FeeBreakdown{Subtotal: 1.3, Delivery: 30, PlatformFee: 0.1, Tax: 0.07, Total: 31.47}},
		{4.5, domain.FeeBreakdown{Subtotal: 4.5, Delivery: 30, PlatformFee: 0.36, Tax: 0.23, Total: 35.09}},
		{18.5, domain.FeeBreakdown{Subtotal: 18.5, Delivery: 30, PlatformFee: 1.48, Tax: 0.93, Total: 50.91}},
	}
	for _, tc := range cases {
		if got := CalculateFees(tc.subtotal); got != tc.want {
			t.Fatalf("subtotal %v: expected %+v, got %+v", tc.subtotal, tc.want, got)
		}
	}
}

func TestCalculateLegacyFeesFractionalTiers(t *testing.T) {
	cases := []struct {
		subtotal float64
		want     domain.FeeBreakdown
	}{
		{212.5, domain.FeeBreakdown{Subtotal: 212.5, Delivery: 30, PlatformFee: 17, Tax: 10.62, Discount: 50, Total: 220.12}},
		{350.3, domain.FeeBreakdown{Subtotal: 350.3, Delivery: 30, PlatformFee: 28.02, Tax: 17.52, Discount: 80, Total: 345.84}},
	}
	for _, tc := range cases {
		if got := CalculateLegacyFees(tc.subtotal); got != tc.want {
			t.Fatalf("subtotal %v: expected %+v, got %+v", tc.subtotal, tc.want, got)
		}
	}
}

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		0.225:  0.23,
		0.015:  0.01,
		0.125:  0.12,
		0.375:  0.38,
		2.675:  2.67,
		10.005: 10.01,
		-0.004: 0,
	}
	for in, want := range cases {
		if got := round2(in); got != want {
			t.Fatalf("round2(%v) = %v, want %v", in, got, want)
		}
	}
}
