package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PayoutMethodType represents the destination type for earnings withdrawal
type PayoutMethodType string

const (
	PayoutMethodPayPal       PayoutMethodType = "paypal"
	PayoutMethodWise         PayoutMethodType = "wise"
	PayoutMethodRevolut      PayoutMethodType = "revolut"
	PayoutMethodBankTransfer PayoutMethodType = "bank_transfer"
)

// ValidPayoutMethodType reports whether t is one of the supported types.
func ValidPayoutMethodType(t PayoutMethodType) bool {
	switch t {
	case PayoutMethodPayPal, PayoutMethodWise, PayoutMethodRevolut, PayoutMethodBankTransfer:
		return true
	}
	return false
}

// PayoutMethod represents a destination for influencer earnings. Details is
// an opaque JSON document whose shape depends on MethodType; it is validated
// against a per-type schema before persisting.
type PayoutMethod struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	UserID     uuid.UUID        `json:"user_id" db:"user_id"`
	MethodType PayoutMethodType `json:"method_type" db:"method_type"`
	Details    json.RawMessage  `json:"details" db:"details"`
	IsPrimary  bool             `json:"is_primary" db:"is_primary"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}
