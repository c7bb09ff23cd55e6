package sizing

import (
	"github.com/shopspring/decimal"
)

// Quantity converts available capital into a whole-unit quantity:
// floor(min(available, cap) / price). Capital math runs on decimals so
// repeated allocations do not drift.
func Quantity(price, available, allocationCap float64) int {
	if price <= 0 {
		return 0
	}

	budget := decimal.NewFromFloat(available)
	cap := decimal.NewFromFloat(allocationCap)
	if cap.LessThan(budget) {
		budget = cap
	}
	if budget.LessThanOrEqual(decimal.Zero) {
		return 0
	}

	qty := budget.Div(decimal.NewFromFloat(price)).Floor()
	return int(qty.IntPart())
}

// SlotAllocation splits remaining cash evenly across the position
// slots still open, so early entries leave room for later ones.
func SlotAllocation(remaining float64, maxPositions, currentlyOpen int) float64 {
	if remaining <= 0 {
		return 0
	}
	slots := maxPositions - currentlyOpen
	if slots < 1 {
		slots = 1
	}
	alloc, _ := decimal.NewFromFloat(remaining).
		Div(decimal.NewFromInt(int64(slots))).
		Round(2).Float64()
	return alloc
}

// QtyFromCash converts a cash amount into a fractional quantity at six
// decimal places. Returns 0 when price or cash is non-positive.
func QtyFromCash(price, cash float64) float64 {
	if price <= 0 || cash <= 0 {
		return 0
	}
	qty, _ := decimal.NewFromFloat(cash).
		Div(decimal.NewFromFloat(price)).
		Round(6).Float64()
	return qty
}
