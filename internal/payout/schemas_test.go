package payout_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/clipfuse/clipfuse/internal/payout"
)

func TestValidateDetails(t *testing.T) {
	tests := []struct {
		name       string
		methodType models.PayoutMethodType
		details    string
		valid      bool
	}{
		{"paypal with email", models.PayoutMethodPayPal, `{"email":"creator@example.com"}`, true},
		{"paypal missing email", models.PayoutMethodPayPal, `{}`, false},
		{"paypal rejects extra fields", models.PayoutMethodPayPal, `{"email":"a@b.com","iban":"x"}`, false},
		{"wise email only", models.PayoutMethodWise, `{"email":"creator@example.com"}`, true},
		{"wise with currency", models.PayoutMethodWise, `{"email":"creator@example.com","currency":"EUR"}`, true},
		{"wise bad currency length", models.PayoutMethodWise, `{"email":"a@b.com","currency":"EURO"}`, false},
		{"revolut with revtag", models.PayoutMethodRevolut, `{"revtag":"creator"}`, true},
		{"revolut empty revtag", models.PayoutMethodRevolut, `{"revtag":""}`, false},
		{"revolut missing revtag", models.PayoutMethodRevolut, `{"phone":"+123"}`, false},
		{"bank via iban", models.PayoutMethodBankTransfer, `{"account_holder":"Jo Doe","iban":"DE89370400440532013000"}`, true},
		{"bank via account and routing", models.PayoutMethodBankTransfer, `{"account_holder":"Jo Doe","account_number":"12345678","routing_number":"021000021"}`, true},
		{"bank account without routing", models.PayoutMethodBankTransfer, `{"account_holder":"Jo Doe","account_number":"12345678"}`, false},
		{"bank missing holder", models.PayoutMethodBankTransfer, `{"iban":"DE89370400440532013000"}`, false},
		{"bank short iban", models.PayoutMethodBankTransfer, `{"account_holder":"Jo Doe","iban":"DE89"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations, err := payout.ValidateDetails(tt.methodType, json.RawMessage(tt.details))
			require.NoError(t, err)
			if tt.valid {
				assert.Empty(t, violations)
			} else {
				assert.NotEmpty(t, violations)
			}
		})
	}
}

func TestValidateDetailsUnknownType(t *testing.T) {
	_, err := payout.ValidateDetails("crypto", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, payout.ErrInvalidMethodType)
}

func TestValidPayoutMethodType(t *testing.T) {
	assert.True(t, models.ValidPayoutMethodType(models.PayoutMethodPayPal))
	assert.True(t, models.ValidPayoutMethodType(models.PayoutMethodWise))
	assert.True(t, models.ValidPayoutMethodType(models.PayoutMethodRevolut))
	assert.True(t, models.ValidPayoutMethodType(models.PayoutMethodBankTransfer))
	assert.False(t, models.ValidPayoutMethodType("crypto"))
}
