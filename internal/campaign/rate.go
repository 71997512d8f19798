package campaign

import (
	"github.com/shopspring/decimal"
)

// Cost-per-1k-views bounds and stepping grids. Below the boundary the
// slider moves on a fine 0.05 grid, at or above it on a coarse 0.5 grid;
// exactly 3.00 belongs to the coarse side.
var (
	MinCostPer1k   = decimal.NewFromFloat(0.05)
	CostFloorUpper = decimal.NewFromInt(100)
	StepBoundary   = decimal.NewFromInt(3)
	FineStep       = decimal.NewFromFloat(0.05)
	CoarseStep     = decimal.NewFromFloat(0.5)
)

var thousand = decimal.NewFromInt(1000)

// RateQuote is the derived economics for a budget and a chosen cost per
// 1k views.
type RateQuote struct {
	CostPer1k   decimal.Decimal `json:"cost_per_1k"`
	RatePerView decimal.Decimal `json:"rate_per_view"`
	TotalViews  int64           `json:"total_views"`
	Blocks1k    int64           `json:"blocks_1k"`
}

// RatePerView converts a cost per 1k views into a per-view rate.
func RatePerView(costPer1k decimal.Decimal) decimal.Decimal {
	if costPer1k.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return costPer1k.Div(thousand)
}

// TotalViews computes floor(budget / costPer1k * 1000). Zero when either
// input is non-positive.
func TotalViews(budget, costPer1k decimal.Decimal) int64 {
	if costPer1k.LessThanOrEqual(decimal.Zero) || budget.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	return budget.Div(costPer1k).Mul(thousand).Floor().IntPart()
}

// Blocks1k returns the number of whole 1k-view blocks in totalViews.
func Blocks1k(totalViews int64) int64 {
	if totalViews < 0 {
		return 0
	}
	return totalViews / 1000
}

// ClampCost bounds a chosen cost to [0.05, max(budget, 100)]. A cost above
// the remaining budget clamps to the budget, so the buyer pays for at
// minimum one 1k-view block.
func ClampCost(budget, cost decimal.Decimal) decimal.Decimal {
	upper := budget
	if upper.LessThan(CostFloorUpper) {
		upper = CostFloorUpper
	}
	if cost.GreaterThan(upper) {
		cost = upper
	}
	if cost.GreaterThan(budget) && budget.GreaterThanOrEqual(MinCostPer1k) {
		cost = budget
	}
	if cost.LessThan(MinCostPer1k) {
		cost = MinCostPer1k
	}
	return cost
}

// SnapCost snaps a cost to its stepping grid: 0.05 below 3.00, 0.5 at or
// above it.
func SnapCost(cost decimal.Decimal) decimal.Decimal {
	step := FineStep
	if cost.GreaterThanOrEqual(StepBoundary) {
		step = CoarseStep
	}
	return snapToGrid(cost, step)
}

// StepUp moves a cost one increment up. Crossing the boundary from below
// lands exactly on 3.00; from there the coarse grid takes over.
func StepUp(cost decimal.Decimal) decimal.Decimal {
	if cost.LessThan(StepBoundary) {
		next := snapToGrid(cost.Add(FineStep), FineStep)
		if next.GreaterThanOrEqual(StepBoundary) {
			return StepBoundary
		}
		return next
	}
	return snapToGrid(cost.Add(CoarseStep), CoarseStep)
}

// StepDown moves a cost one increment down. Below the boundary the fine
// grid resumes; the result never drops under the minimum cost.
func StepDown(cost decimal.Decimal) decimal.Decimal {
	var next decimal.Decimal
	if cost.GreaterThan(StepBoundary) {
		next = snapToGrid(cost.Sub(CoarseStep), CoarseStep)
		if next.LessThan(StepBoundary) {
			next = StepBoundary
		}
	} else {
		next = snapToGrid(cost.Sub(FineStep), FineStep)
	}
	if next.LessThan(MinCostPer1k) {
		return MinCostPer1k
	}
	return next
}

// Quote clamps and snaps the chosen cost against the budget and derives the
// per-view rate, projected views and whole 1k blocks. A budget of zero
// yields all-zero derived values. Snapping can lift a budget-clamped cost
// back above the budget, so the clamp runs once more after the snap.
func Quote(budget, costPer1k decimal.Decimal) RateQuote {
	if budget.LessThanOrEqual(decimal.Zero) {
		return RateQuote{CostPer1k: decimal.Zero, RatePerView: decimal.Zero}
	}
	cost := ClampCost(budget, SnapCost(ClampCost(budget, costPer1k)))
	views := TotalViews(budget, cost)
	return RateQuote{
		CostPer1k:   cost,
		RatePerView: RatePerView(cost),
		TotalViews:  views,
		Blocks1k:    Blocks1k(views),
	}
}

func snapToGrid(v, step decimal.Decimal) decimal.Decimal {
	return v.Div(step).Round(0).Mul(step)
}
