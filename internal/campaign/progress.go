package campaign

import (
	"github.com/shopspring/decimal"
)

// Severity is the presentational tier for budget spend. It only selects a
// color in the client and never blocks further spend.
type Severity string

const (
	SeverityNominal  Severity = "nominal"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

var (
	hundred       = decimal.NewFromInt(100)
	warnThreshold = decimal.NewFromInt(50)
	critThreshold = decimal.NewFromInt(85)
)

// Progress is the spend state of a campaign budget.
type Progress struct {
	Percentage     decimal.Decimal `json:"percentage"`
	DisplayPercent decimal.Decimal `json:"display_percent"`
	Severity       Severity        `json:"severity"`
}

// Percent computes paid/total as a percentage. Zero when total is not
// positive; the raw value may exceed 100 on over-paid rows.
func Percent(total, paid decimal.Decimal) decimal.Decimal {
	if total.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return paid.Div(total).Mul(hundred)
}

// DisplayPercent clamps a raw percentage to [0, 100] for rendering. Only the
// bar is capped; numeric labels show the raw value.
func DisplayPercent(pct decimal.Decimal) decimal.Decimal {
	if pct.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// SeverityFor maps a raw percentage to its tier: <=50 nominal, >50 and <=85
// warn, >85 critical.
func SeverityFor(pct decimal.Decimal) Severity {
	switch {
	case pct.GreaterThan(critThreshold):
		return SeverityCritical
	case pct.GreaterThan(warnThreshold):
		return SeverityWarn
	default:
		return SeverityNominal
	}
}

// ProgressFor derives the full progress view for a budget and amount paid.
func ProgressFor(total, paid decimal.Decimal) Progress {
	pct := Percent(total, paid)
	return Progress{
		Percentage:     pct,
		DisplayPercent: DisplayPercent(pct),
		Severity:       SeverityFor(pct),
	}
}
