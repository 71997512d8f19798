package payment_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/clipfuse/clipfuse/internal/config"
	"github.com/clipfuse/clipfuse/internal/payment"
)

func feeService(t *testing.T) *payment.Service {
	t.Helper()
	return payment.NewService(nil, &config.StripeConfig{}, &config.PaymentsConfig{
		FeePercent:    0.029,
		FeeFixedCents: 30,
	})
}

func TestComputeFee(t *testing.T) {
	svc := feeService(t)

	tests := []struct {
		subtotal string
		want     string
	}{
		{"100", "3.20"},   // 2.90 + 0.30
		{"0", "0.30"},     // fixed part only
		{"1000", "29.30"}, // 29.00 + 0.30
		{"33.33", "1.27"}, // 0.96657 + 0.30 rounds to 1.27
	}
	for _, tt := range tests {
		t.Run(tt.subtotal, func(t *testing.T) {
			got := svc.ComputeFee(decimal.RequireFromString(tt.subtotal))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "ComputeFee(%s) = %s, want %s", tt.subtotal, got, tt.want)
		})
	}
}

// The fee always has at most two decimal places and never drops below the
// fixed component.
func TestComputeFeeInvariants(t *testing.T) {
	svc := feeService(t)
	fixed := decimal.RequireFromString("0.30")

	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(0, 10_000_000).Draw(t, "subtotalCents")
		subtotal := decimal.New(cents, -2)

		fee := svc.ComputeFee(subtotal)
		if fee.LessThan(fixed) {
			t.Fatalf("fee %s below fixed component for subtotal %s", fee, subtotal)
		}
		if fee.Exponent() < -2 {
			t.Fatalf("fee %s not rounded to cents", fee)
		}
	})
}
