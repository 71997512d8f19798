package campaign_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/clipfuse/clipfuse/internal/campaign"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// drawGridCost draws a cost that sits on the stepping grid: fine 0.05 steps
// below 3.00, coarse 0.5 steps from 3.00 up to 100.
func drawGridCost(t *rapid.T) decimal.Decimal {
	if rapid.Bool().Draw(t, "coarse") {
		k := rapid.Int64Range(0, 194).Draw(t, "coarseIdx") // 3.00 .. 100.00
		return dec("3").Add(dec("0.5").Mul(decimal.NewFromInt(k)))
	}
	k := rapid.Int64Range(1, 58).Draw(t, "fineIdx") // 0.05 .. 2.90
	return dec("0.05").Mul(decimal.NewFromInt(k))
}

// Multiplying the per-view rate back by 1000 must reproduce the cost with no
// drift, for any grid cost.
func TestRatePerViewExactness(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cost := drawGridCost(t)
		rate := campaign.RatePerView(cost)
		if !rate.Mul(decimal.NewFromInt(1000)).Equal(cost) {
			t.Fatalf("rate %s * 1000 != cost %s", rate, cost)
		}
	})
}

func TestRatePerViewZeroGuard(t *testing.T) {
	assert.True(t, campaign.RatePerView(decimal.Zero).IsZero())
	assert.True(t, campaign.RatePerView(dec("-1")).IsZero())
}

func TestTotalViews(t *testing.T) {
	tests := []struct {
		name   string
		budget string
		cost   string
		want   int64
	}{
		{"exact division", "1000", "0.05", 20_000_000},
		{"floors the remainder", "1000", "3", 333_333},
		{"budget below cost", "2", "3", 666},
		{"zero cost", "1000", "0", 0},
		{"zero budget", "0", "3", 0},
		{"negative budget", "-10", "3", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, campaign.TotalViews(dec(tt.budget), dec(tt.cost)))
		})
	}
}

func TestBlocks1k(t *testing.T) {
	assert.Equal(t, int64(333), campaign.Blocks1k(333_333))
	assert.Equal(t, int64(0), campaign.Blocks1k(999))
	assert.Equal(t, int64(0), campaign.Blocks1k(-5))
}

func TestStepUpBoundary(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{"fine step", "2.00", "2.05"},
		{"fine step near boundary", "2.90", "2.95"},
		{"crossing lands exactly on boundary", "2.95", "3.00"},
		{"off-grid crossing lands on boundary", "2.97", "3.00"},
		{"coarse from boundary", "3.00", "3.50"},
		{"coarse above boundary", "3.50", "4.00"},
		{"minimum cost", "0.05", "0.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := campaign.StepUp(dec(tt.from))
			assert.True(t, got.Equal(dec(tt.want)), "StepUp(%s) = %s, want %s", tt.from, got, tt.want)
		})
	}
}

func TestStepDownBoundary(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{"coarse step", "4.00", "3.50"},
		{"coarse stops at boundary", "3.50", "3.00"},
		{"off-grid coarse stops at boundary", "3.20", "3.00"},
		{"fine resumes below boundary", "3.00", "2.95"},
		{"fine step", "2.05", "2.00"},
		{"never drops under minimum", "0.05", "0.05"},
		{"clamps to minimum", "0.07", "0.05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := campaign.StepDown(dec(tt.from))
			assert.True(t, got.Equal(dec(tt.want)), "StepDown(%s) = %s, want %s", tt.from, got, tt.want)
		})
	}
}

// StepDown undoes StepUp for any grid cost that is not at the top of the
// range, including across the 3.00 boundary.
func TestStepRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cost := drawGridCost(t)
		up := campaign.StepUp(cost)
		down := campaign.StepDown(up)
		if !down.Equal(cost) {
			t.Fatalf("StepDown(StepUp(%s)) = %s", cost, down)
		}
	})
}

func TestClampCost(t *testing.T) {
	tests := []struct {
		name   string
		budget string
		cost   string
		want   string
	}{
		{"in range untouched", "1000", "3", "3"},
		{"below minimum", "1000", "0.01", "0.05"},
		{"above small budget clamps to budget", "50", "80", "50"},
		{"far above small budget still clamps to budget", "50", "500", "50"},
		{"upper bound is budget for large budgets", "200", "150", "150"},
		{"above large budget clamps to upper", "200", "400", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := campaign.ClampCost(dec(tt.budget), dec(tt.cost))
			assert.True(t, got.Equal(dec(tt.want)), "ClampCost(%s, %s) = %s, want %s", tt.budget, tt.cost, got, tt.want)
		})
	}
}

func TestQuote(t *testing.T) {
	q := campaign.Quote(dec("1000"), dec("3"))
	require.True(t, q.CostPer1k.Equal(dec("3")))
	require.True(t, q.RatePerView.Equal(dec("0.003")))
	assert.Equal(t, int64(333_333), q.TotalViews)
	assert.Equal(t, int64(333), q.Blocks1k)

	zero := campaign.Quote(decimal.Zero, dec("3"))
	assert.True(t, zero.CostPer1k.IsZero())
	assert.True(t, zero.RatePerView.IsZero())
	assert.Zero(t, zero.TotalViews)
	assert.Zero(t, zero.Blocks1k)
}

// A cost clamped to the budget must not snap back above it: the quote always
// buys at least one whole 1k-view block.
func TestQuoteClampsAfterSnap(t *testing.T) {
	q := campaign.Quote(dec("51.30"), dec("500"))
	assert.True(t, q.CostPer1k.Equal(dec("51.30")), "got cost %s", q.CostPer1k)
	assert.Equal(t, int64(1000), q.TotalViews)
	assert.Equal(t, int64(1), q.Blocks1k)
}

// For any budget and requested cost, the quoted views never cost more than
// the budget and the quoted cost stays inside the allowed band.
func TestQuoteInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		budgetCents := rapid.Int64Range(100, 10_000_000).Draw(t, "budgetCents")
		costCents := rapid.Int64Range(1, 50_000).Draw(t, "costCents")
		budget := decimal.New(budgetCents, -2)
		cost := decimal.New(costCents, -2)

		q := campaign.Quote(budget, cost)

		upper := budget
		if upper.LessThan(dec("100")) {
			upper = dec("100")
		}
		if q.CostPer1k.LessThan(dec("0.05")) || q.CostPer1k.GreaterThan(upper) {
			t.Fatalf("quoted cost %s outside [0.05, %s]", q.CostPer1k, upper)
		}

		spend := q.RatePerView.Mul(decimal.NewFromInt(q.TotalViews))
		if spend.GreaterThan(budget) {
			t.Fatalf("views %d at rate %s would cost %s, over budget %s",
				q.TotalViews, q.RatePerView, spend, budget)
		}
		if budget.GreaterThanOrEqual(dec("0.05")) && q.TotalViews < 1000 {
			t.Fatalf("budget %s bought only %d views", budget, q.TotalViews)
		}
	})
}
