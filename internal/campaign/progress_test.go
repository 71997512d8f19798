package campaign_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/clipfuse/clipfuse/internal/campaign"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name  string
		total string
		paid  string
		want  string
	}{
		{"partial spend", "1000", "250", "25"},
		{"full spend", "1000", "1000", "100"},
		{"over-paid keeps raw value", "100", "150", "150"},
		{"zero total", "0", "50", "0"},
		{"negative total", "-10", "50", "0"},
		{"nothing paid", "1000", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := campaign.Percent(dec(tt.total), dec(tt.paid))
			assert.True(t, got.Equal(dec(tt.want)), "Percent(%s, %s) = %s, want %s", tt.total, tt.paid, got, tt.want)
		})
	}
}

func TestDisplayPercentClamp(t *testing.T) {
	assert.True(t, campaign.DisplayPercent(dec("-5")).IsZero())
	assert.True(t, campaign.DisplayPercent(dec("42.5")).Equal(dec("42.5")))
	assert.True(t, campaign.DisplayPercent(dec("100")).Equal(dec("100")))
	assert.True(t, campaign.DisplayPercent(dec("150")).Equal(dec("100")))
}

func TestSeverityTiers(t *testing.T) {
	tests := []struct {
		pct  string
		want campaign.Severity
	}{
		{"0", campaign.SeverityNominal},
		{"50", campaign.SeverityNominal},
		{"50.01", campaign.SeverityWarn},
		{"85", campaign.SeverityWarn},
		{"85.01", campaign.SeverityCritical},
		{"150", campaign.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.pct, func(t *testing.T) {
			assert.Equal(t, tt.want, campaign.SeverityFor(dec(tt.pct)))
		})
	}
}

func TestProgressFor(t *testing.T) {
	p := campaign.ProgressFor(dec("1000"), dec("900"))
	assert.True(t, p.Percentage.Equal(dec("90")))
	assert.True(t, p.DisplayPercent.Equal(dec("90")))
	assert.Equal(t, campaign.SeverityCritical, p.Severity)
}

// The display value is always within [0, 100] and the severity always agrees
// with the raw percentage, whatever the inputs.
func TestProgressInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		totalCents := rapid.Int64Range(0, 10_000_000).Draw(t, "totalCents")
		paidCents := rapid.Int64Range(0, 20_000_000).Draw(t, "paidCents")
		total := decimal.New(totalCents, -2)
		paid := decimal.New(paidCents, -2)

		p := campaign.ProgressFor(total, paid)

		if p.DisplayPercent.LessThan(decimal.Zero) || p.DisplayPercent.GreaterThan(decimal.NewFromInt(100)) {
			t.Fatalf("display percent %s out of range", p.DisplayPercent)
		}
		if p.Severity != campaign.SeverityFor(p.Percentage) {
			t.Fatalf("severity %s disagrees with raw percentage %s", p.Severity, p.Percentage)
		}
	})
}
